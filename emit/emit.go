package emit

import (
	"github.com/IQBigBang/swarm-ir/errors"
	"github.com/IQBigBang/swarm-ir/ir"
	"github.com/IQBigBang/swarm-ir/types"
	"github.com/IQBigBang/swarm-ir/wasm"
)

// ImportModule is the module name extern functions are imported from.
const ImportModule = "env"

// PageSize is the WebAssembly linear memory page size.
const PageSize = 65536

// Compile lowers a verified IR module into a WebAssembly binary.
func Compile(m *ir.Module) ([]byte, error) {
	c := &compiler{m: m, out: &wasm.Module{}}
	if err := c.run(); err != nil {
		return nil, err
	}
	return c.out.Encode(), nil
}

type compiler struct {
	m   *ir.Module
	out *wasm.Module
}

func (c *compiler) run() error {
	// Imports come first so that function indices line up: externs
	// occupy the first band, defined functions follow.
	for _, ext := range c.m.Externs() {
		c.out.Imports = append(c.out.Imports, wasm.Import{
			Module:  ImportModule,
			Name:    ext.Name(),
			TypeIdx: c.funcTypeIdx(ext.Type()),
		})
	}

	for _, fn := range c.m.Funcs() {
		c.out.Funcs = append(c.out.Funcs, c.funcTypeIdx(fn.Type()))
		body, err := c.compileFunc(fn)
		if err != nil {
			return err
		}
		c.out.Code = append(c.out.Code, body)
	}

	c.emitFunctionTable()
	c.emitMemory()
	c.emitGlobals()
	c.emitExports()
	c.emitData()
	return nil
}

// valType maps an IR type to its WASM representation. Functions and
// pointers are i32 addresses; every integer is an i32.
func valType(t *types.Type) wasm.ValType {
	if t.IsStruct() {
		panic("emit: struct type has no value representation")
	}
	if t.IsFloat() {
		return wasm.ValF32
	}
	return wasm.ValI32
}

func (c *compiler) funcTypeIdx(ft *types.Type) uint32 {
	wt := wasm.FuncType{}
	for _, a := range ft.Args() {
		wt.Params = append(wt.Params, valType(a))
	}
	for _, r := range ft.Rets() {
		wt.Results = append(wt.Results, valType(r))
	}
	return c.out.AddType(wt)
}

func (c *compiler) compileFunc(fn *ir.Function) (wasm.FuncBody, error) {
	var body wasm.FuncBody
	for _, ty := range fn.Locals()[fn.NumArgs():] {
		body.Locals = append(body.Locals, wasm.LocalEntry{Count: 1, ValType: valType(ty)})
	}

	w := &coder{}
	if err := c.lowerBlock(fn, fn.EntryBlock(), w); err != nil {
		return body, err
	}
	w.op(wasm.OpEnd)
	body.Code = w.bytes()
	return body, nil
}

// blockType writes a structured instruction's block type: void, a
// single value type, or an index into the type section.
func (c *compiler) blockType(w *coder, rets []*types.Type) {
	switch len(rets) {
	case 0:
		w.op(wasm.BlockTypeVoid)
	case 1:
		w.op(byte(valType(rets[0])))
	default:
		ft := wasm.FuncType{}
		for _, r := range rets {
			ft.Results = append(ft.Results, valType(r))
		}
		w.s32(int32(c.out.AddType(ft)))
	}
}

func (c *compiler) lowerBlock(fn *ir.Function, blk *ir.Block, w *coder) error {
	for n := range blk.Body {
		instr := &blk.Body[n]
		if err := c.lowerInstr(fn, blk, instr, w); err != nil {
			if e, ok := err.(*errors.Error); ok {
				return e.At(fn.Name(), int(blk.ID), n)
			}
			return err
		}
	}
	return nil
}

func (c *compiler) lowerInstr(fn *ir.Function, blk *ir.Block, instr *ir.Instr, w *coder) error {
	switch instr.Op {
	case ir.OpLdInt:
		w.op(wasm.OpI32Const)
		w.s32(canonicalConst(instr.IntVal, instr.Ty))

	case ir.OpLdFloat:
		w.op(wasm.OpF32Const)
		w.f32(instr.FloatVal)

	case ir.OpIAdd:
		w.op(wasm.OpI32Add)
		emitCanon(w, instr.OperandTy)

	case ir.OpISub:
		w.op(wasm.OpI32Sub)
		emitCanon(w, instr.OperandTy)

	case ir.OpIMul:
		w.op(wasm.OpI32Mul)
		emitCanon(w, instr.OperandTy)

	case ir.OpIDiv:
		if instr.OperandTy.Signed() {
			w.op(wasm.OpI32DivS)
		} else {
			w.op(wasm.OpI32DivU)
		}

	case ir.OpFAdd:
		w.op(wasm.OpF32Add)
	case ir.OpFSub:
		w.op(wasm.OpF32Sub)
	case ir.OpFMul:
		w.op(wasm.OpF32Mul)
	case ir.OpFDiv:
		w.op(wasm.OpF32Div)

	case ir.OpItof:
		if instr.OperandTy.Signed() {
			w.op(wasm.OpF32ConvertI32S)
		} else {
			w.op(wasm.OpF32ConvertI32U)
		}

	case ir.OpFtoi:
		if c.m.Conf().SaturatingFtoi {
			w.op(wasm.OpPrefixFC)
			if instr.Ty.Signed() {
				w.u32(wasm.OpI32TruncSatF32S)
			} else {
				w.u32(wasm.OpI32TruncSatF32U)
			}
		} else {
			if instr.Ty.Signed() {
				w.op(wasm.OpI32TruncF32S)
			} else {
				w.op(wasm.OpI32TruncF32U)
			}
		}
		emitCanon(w, instr.Ty)

	case ir.OpIConv:
		emitIConv(w, instr.OperandTy, instr.Ty)

	case ir.OpICmp:
		emitICmp(w, instr.Cmp, instr.OperandTy)

	case ir.OpFCmp:
		emitFCmp(w, instr.Cmp)

	case ir.OpNot:
		w.op(wasm.OpI32Eqz)

	case ir.OpBitAnd:
		w.op(wasm.OpI32And)

	case ir.OpBitOr:
		w.op(wasm.OpI32Or)

	case ir.OpCall:
		idx, ok := c.m.FuncIndex(instr.Name)
		if !ok {
			return errors.UnknownName("function", instr.Name)
		}
		w.op(wasm.OpCall)
		w.u32(idx)

	case ir.OpCallIndirect:
		// The popped function value is a table index; slot 0 is
		// empty, so values are function index + 1 (see
		// emitFunctionTable).
		w.op(wasm.OpCallIndirect)
		w.u32(c.funcTypeIdx(instr.OperandTy))
		w.u32(0) // table index

	case ir.OpLdLocal:
		w.op(wasm.OpLocalGet)
		w.u32(uint32(instr.Local))

	case ir.OpStLocal:
		w.op(wasm.OpLocalSet)
		w.u32(uint32(instr.Local))

	case ir.OpLdGlobal:
		g, ok := c.m.LookupGlobal(instr.Name)
		if !ok {
			return errors.UnknownName("global", instr.Name)
		}
		w.op(wasm.OpGlobalGet)
		w.u32(uint32(g.Index()))

	case ir.OpStGlobal:
		g, ok := c.m.LookupGlobal(instr.Name)
		if !ok {
			return errors.UnknownName("global", instr.Name)
		}
		w.op(wasm.OpGlobalSet)
		w.u32(uint32(g.Index()))

	case ir.OpLdGlobalFunc:
		idx, ok := c.m.FuncIndex(instr.Name)
		if !ok {
			return errors.UnknownName("function", instr.Name)
		}
		w.op(wasm.OpI32Const)
		w.s32(int32(idx + 1))

	case ir.OpBitcast:
		from := valType(instr.OperandTy)
		to := valType(instr.Ty)
		switch {
		case from == to:
			// Same representation, nothing to do.
		case from == wasm.ValI32:
			w.op(wasm.OpF32ReinterpretI32)
		default:
			w.op(wasm.OpI32ReinterpretF32)
		}

	case ir.OpIf:
		then := fn.Block(instr.Then)
		w.op(wasm.OpIf)
		c.blockType(w, then.Returns)
		if err := c.lowerBlock(fn, then, w); err != nil {
			return err
		}
		w.op(wasm.OpEnd)

	case ir.OpIfElse:
		then := fn.Block(instr.Then)
		els := fn.Block(instr.Else)
		w.op(wasm.OpIf)
		c.blockType(w, then.Returns)
		if err := c.lowerBlock(fn, then, w); err != nil {
			return err
		}
		w.op(wasm.OpElse)
		if err := c.lowerBlock(fn, els, w); err != nil {
			return err
		}
		w.op(wasm.OpEnd)

	case ir.OpLoop:
		// The outer block is the break target; the trailing br 0
		// restarts the loop body.
		body := fn.Block(instr.Then)
		w.op(wasm.OpBlock)
		c.blockType(w, body.Returns)
		w.op(wasm.OpLoop)
		c.blockType(w, body.Returns)
		if err := c.lowerBlock(fn, body, w); err != nil {
			return err
		}
		w.op(wasm.OpBr)
		w.u32(0)
		w.op(wasm.OpEnd)
		w.op(wasm.OpEnd)

	case ir.OpBreak:
		// Walks out of the if/if_else nesting plus the loop, landing
		// on the block wrapped around it.
		w.op(wasm.OpBr)
		w.u32(uint32(blk.LoopDist) + 1)

	case ir.OpReturn:
		w.op(wasm.OpReturn)

	case ir.OpFail:
		w.op(wasm.OpUnreachable)

	case ir.OpDiscard:
		w.op(wasm.OpDrop)

	case ir.OpRead:
		emitRead(w, instr.Ty)

	case ir.OpWrite:
		emitWrite(w, instr.Ty)

	case ir.OpOffset:
		if size := instr.Ty.Size(); size != 1 {
			w.op(wasm.OpI32Const)
			w.s32(int32(size))
			w.op(wasm.OpI32Mul)
		}
		w.op(wasm.OpI32Add)

	case ir.OpGetFieldPtr:
		if off := instr.Ty.FieldOffset(instr.Field); off != 0 {
			w.op(wasm.OpI32Const)
			w.s32(int32(off))
			w.op(wasm.OpI32Add)
		}

	case ir.OpLdStaticMemPtr:
		item := c.m.StaticMemItem(instr.Item)
		w.op(wasm.OpI32Const)
		w.s32(int32(item.Addr))

	case ir.OpMemorySize:
		w.op(wasm.OpMemorySize)
		w.u32(0)

	case ir.OpMemoryGrow:
		w.op(wasm.OpMemoryGrow)
		w.u32(0)
	}
	return nil
}

// emitFunctionTable builds the funcref table holding every declared
// function. Slot 0 is left empty so a zero function value stays
// invalid; ld_global_func compensates by pushing index + 1.
func (c *compiler) emitFunctionTable() {
	total := uint32(len(c.m.Externs()) + len(c.m.Funcs()))
	size := total + 1
	c.out.Tables = append(c.out.Tables, wasm.TableType{Min: size, Max: &size})
	if total == 0 {
		return
	}
	idxs := make([]uint32, total)
	for i := range idxs {
		idxs[i] = uint32(i)
	}
	c.out.Elements = append(c.out.Elements, wasm.Element{Offset: 1, FuncIdxs: idxs})
}

func (c *compiler) emitMemory() {
	bytesNeeded := c.m.StaticMemHighWater() + c.m.Conf().MemoryReserve
	pages := (bytesNeeded + PageSize - 1) / PageSize
	if pages == 0 {
		pages = 1
	}
	c.out.Memories = append(c.out.Memories, wasm.MemoryType{Min: pages})
}

func (c *compiler) emitGlobals() {
	for _, g := range c.m.Globals() {
		w := &coder{}
		var vt wasm.ValType
		if g.IsInt() {
			w.op(wasm.OpI32Const)
			w.s32(g.IntValue())
			vt = wasm.ValI32
		} else {
			w.op(wasm.OpF32Const)
			w.f32(g.FloatValue())
			vt = wasm.ValF32
		}
		w.op(wasm.OpEnd)
		c.out.Globals = append(c.out.Globals, wasm.Global{
			Type: wasm.GlobalType{ValType: vt, Mutable: true},
			Init: w.bytes(),
		})
	}
}

func (c *compiler) emitExports() {
	numExterns := uint32(len(c.m.Externs()))
	for i, fn := range c.m.Funcs() {
		c.out.Exports = append(c.out.Exports, wasm.Export{
			Name: fn.Name(),
			Kind: wasm.KindFunc,
			Idx:  numExterns + uint32(i),
		})
	}
	c.out.Exports = append(c.out.Exports, wasm.Export{
		Name: "memory",
		Kind: wasm.KindMemory,
		Idx:  0,
	})
	for i, g := range c.m.Globals() {
		c.out.Exports = append(c.out.Exports, wasm.Export{
			Name: g.Name(),
			Kind: wasm.KindGlobal,
			Idx:  uint32(i),
		})
	}
}

func (c *compiler) emitData() {
	for _, item := range c.m.StaticMem() {
		c.out.Data = append(c.out.Data, wasm.DataSegment{
			Offset: item.Addr,
			Init:   item.Data,
		})
	}
}
