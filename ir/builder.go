package ir

import (
	"github.com/IQBigBang/swarm-ir/errors"
	"github.com/IQBigBang/swarm-ir/types"
)

// FunctionBuilder assembles a function instruction by instruction.
//
// A builder is created detached from any module; Finish validates the
// function's structure and attaches it. A finished builder must not
// be touched again; doing so panics.
type FunctionBuilder struct {
	name     string
	ty       *types.Type
	blocks   []*Block
	locals   []*types.Type
	current  BlockID
	finished bool
}

// NewFunctionBuilder creates a builder for a function of the given
// type. The main block is created implicitly: it carries the
// function's return types and tag main.
func NewFunctionBuilder(name string, fnType *types.Type) (*FunctionBuilder, error) {
	if !fnType.IsFunc() {
		return nil, errors.MalformedDeclaration("function %q declared with non-function type %s", name, fnType)
	}
	main := &Block{
		ID:       EntryBlockID,
		Tag:      TagMain,
		Returns:  fnType.Rets(),
		Parent:   NoBlock,
		LoopDist: NoLoop,
	}
	return &FunctionBuilder{
		name:    name,
		ty:      fnType,
		blocks:  []*Block{main},
		locals:  append([]*types.Type(nil), fnType.Args()...),
		current: EntryBlockID,
	}, nil
}

func (b *FunctionBuilder) active() {
	if b.finished {
		panic("ir: use of a finished FunctionBuilder")
	}
}

// GetArg returns a reference to the n-th declared argument.
func (b *FunctionBuilder) GetArg(n int) LocalRef {
	b.active()
	if n < 0 || n >= len(b.ty.Args()) {
		panic("ir: argument index out of range")
	}
	return LocalRef(n)
}

// NewLocal allocates a local slot of the given type. Struct-typed
// locals are rejected.
func (b *FunctionBuilder) NewLocal(ty *types.Type) (LocalRef, error) {
	b.active()
	if ty.IsStruct() {
		return 0, errors.TypeMisuse(errors.PhaseBuild, "struct type %s as a local", ty)
	}
	b.locals = append(b.locals, ty)
	return LocalRef(len(b.locals) - 1), nil
}

// NewBlock creates a block with the given result signature and tag.
// Blocks meant to be referenced by if/if_else/loop must be created
// with tag undefined; the referencing appender sets the tag.
func (b *FunctionBuilder) NewBlock(returns []*types.Type, tag BlockTag) (BlockID, error) {
	b.active()
	if tag == TagMain {
		return 0, errors.BlockMisuse(errors.PhaseBuild, "function already has a main block")
	}
	for _, ty := range returns {
		if ty.IsStruct() {
			return 0, errors.TypeMisuse(errors.PhaseBuild, "struct type %s in block returns", ty)
		}
	}
	blk := &Block{
		ID:       BlockID(len(b.blocks)),
		Tag:      tag,
		Returns:  append([]*types.Type(nil), returns...),
		Parent:   NoBlock,
		LoopDist: NoLoop,
	}
	b.blocks = append(b.blocks, blk)
	return blk.ID, nil
}

// SwitchBlock makes the given block the target of subsequent appends.
func (b *FunctionBuilder) SwitchBlock(id BlockID) error {
	b.active()
	if id < 0 || int(id) >= len(b.blocks) {
		return errors.BlockMisuse(errors.PhaseBuild, "switch to unknown block b%d", id)
	}
	b.current = id
	return nil
}

// CurrentBlock returns the block receiving appends.
func (b *FunctionBuilder) CurrentBlock() BlockID {
	b.active()
	return b.current
}

func (b *FunctionBuilder) push(i Instr) {
	b.active()
	blk := b.blocks[b.current]
	blk.Body = append(blk.Body, i)
}

// LdInt appends a load of a constant integer of the given type.
func (b *FunctionBuilder) LdInt(val uint32, intTy *types.Type) error {
	if !intTy.IsInt() {
		return errors.TypeMisuse(errors.PhaseBuild, "ld_int with non-integer type %s", intTy)
	}
	b.push(Instr{Op: OpLdInt, IntVal: val, Ty: intTy, Else: NoBlock})
	return nil
}

// LdFloat appends a load of a constant float32.
func (b *FunctionBuilder) LdFloat(val float32) {
	b.push(Instr{Op: OpLdFloat, FloatVal: val, Else: NoBlock})
}

// IAdd appends an integer addition.
func (b *FunctionBuilder) IAdd() { b.push(Instr{Op: OpIAdd, Else: NoBlock}) }

// ISub appends an integer subtraction.
func (b *FunctionBuilder) ISub() { b.push(Instr{Op: OpISub, Else: NoBlock}) }

// IMul appends an integer multiplication.
func (b *FunctionBuilder) IMul() { b.push(Instr{Op: OpIMul, Else: NoBlock}) }

// IDiv appends an integer division. Division by zero traps.
func (b *FunctionBuilder) IDiv() { b.push(Instr{Op: OpIDiv, Else: NoBlock}) }

// FAdd appends a float addition.
func (b *FunctionBuilder) FAdd() { b.push(Instr{Op: OpFAdd, Else: NoBlock}) }

// FSub appends a float subtraction.
func (b *FunctionBuilder) FSub() { b.push(Instr{Op: OpFSub, Else: NoBlock}) }

// FMul appends a float multiplication.
func (b *FunctionBuilder) FMul() { b.push(Instr{Op: OpFMul, Else: NoBlock}) }

// FDiv appends a float division.
func (b *FunctionBuilder) FDiv() { b.push(Instr{Op: OpFDiv, Else: NoBlock}) }

// Itof appends a 32-bit-integer to float conversion.
func (b *FunctionBuilder) Itof() { b.push(Instr{Op: OpItof, Else: NoBlock}) }

// Ftoi appends a float to integer conversion targeting intTy.
func (b *FunctionBuilder) Ftoi(intTy *types.Type) error {
	if !intTy.IsInt() {
		return errors.TypeMisuse(errors.PhaseBuild, "ftoi with non-integer target %s", intTy)
	}
	b.push(Instr{Op: OpFtoi, Ty: intTy, Else: NoBlock})
	return nil
}

// IConv appends an integer-to-integer conversion targeting intTy.
func (b *FunctionBuilder) IConv(intTy *types.Type) error {
	if !intTy.IsInt() {
		return errors.TypeMisuse(errors.PhaseBuild, "iconv with non-integer target %s", intTy)
	}
	b.push(Instr{Op: OpIConv, Ty: intTy, Else: NoBlock})
	return nil
}

// ICmp appends an integer comparison; the result is uint32 0 or 1.
func (b *FunctionBuilder) ICmp(cmp Cmp) { b.push(Instr{Op: OpICmp, Cmp: cmp, Else: NoBlock}) }

// FCmp appends a float comparison; the result is uint32 0 or 1.
func (b *FunctionBuilder) FCmp(cmp Cmp) { b.push(Instr{Op: OpFCmp, Cmp: cmp, Else: NoBlock}) }

// Not appends a boolean not: 1 if the operand is 0, 0 otherwise.
func (b *FunctionBuilder) Not() { b.push(Instr{Op: OpNot, Else: NoBlock}) }

// BitAnd appends a bitwise and.
func (b *FunctionBuilder) BitAnd() { b.push(Instr{Op: OpBitAnd, Else: NoBlock}) }

// BitOr appends a bitwise or.
func (b *FunctionBuilder) BitOr() { b.push(Instr{Op: OpBitOr, Else: NoBlock}) }

// Call appends a direct call to a named function.
func (b *FunctionBuilder) Call(name string) {
	b.push(Instr{Op: OpCall, Name: name, Else: NoBlock})
}

// CallIndirect appends a call through a function value on the stack.
func (b *FunctionBuilder) CallIndirect() { b.push(Instr{Op: OpCallIndirect, Else: NoBlock}) }

// LdLocal appends a load of a local.
func (b *FunctionBuilder) LdLocal(loc LocalRef) {
	b.push(Instr{Op: OpLdLocal, Local: loc, Else: NoBlock})
}

// StLocal appends a store into a local.
func (b *FunctionBuilder) StLocal(loc LocalRef) {
	b.push(Instr{Op: OpStLocal, Local: loc, Else: NoBlock})
}

// LdGlobal appends a load of a named global.
func (b *FunctionBuilder) LdGlobal(name string) {
	b.push(Instr{Op: OpLdGlobal, Name: name, Else: NoBlock})
}

// StGlobal appends a store into a named global.
func (b *FunctionBuilder) StGlobal(name string) {
	b.push(Instr{Op: OpStGlobal, Name: name, Else: NoBlock})
}

// LdGlobalFunc appends a load of a function value for a named
// function.
func (b *FunctionBuilder) LdGlobalFunc(name string) {
	b.push(Instr{Op: OpLdGlobalFunc, Name: name, Else: NoBlock})
}

// Bitcast appends a size-preserving reinterpretation to the target
// type.
func (b *FunctionBuilder) Bitcast(target *types.Type) {
	b.push(Instr{Op: OpBitcast, Ty: target, Else: NoBlock})
}

// If appends a conditional: the then block runs when the popped
// condition is non-zero. The block's tag transitions from undefined
// to if_else.
func (b *FunctionBuilder) If(then BlockID) error {
	if err := b.claimBlock(then, TagIfElse); err != nil {
		return err
	}
	b.push(Instr{Op: OpIf, Then: then, Else: NoBlock})
	return nil
}

// IfElse appends a two-way conditional.
func (b *FunctionBuilder) IfElse(then, els BlockID) error {
	if err := b.claimBlock(then, TagIfElse); err != nil {
		return err
	}
	if err := b.claimBlock(els, TagIfElse); err != nil {
		return err
	}
	b.push(Instr{Op: OpIfElse, Then: then, Else: els})
	return nil
}

// Loop appends a loop around the given body block. The body runs
// repeatedly until a break inside it executes.
func (b *FunctionBuilder) Loop(body BlockID) error {
	if err := b.claimBlock(body, TagLoop); err != nil {
		return err
	}
	b.push(Instr{Op: OpLoop, Then: body, Else: NoBlock})
	return nil
}

// claimBlock marks a block as used by a control-flow instruction of
// the current block. A block can be claimed exactly once.
func (b *FunctionBuilder) claimBlock(id BlockID, tag BlockTag) error {
	b.active()
	if id < 0 || int(id) >= len(b.blocks) {
		return errors.BlockMisuse(errors.PhaseBuild, "reference to unknown block b%d", id)
	}
	blk := b.blocks[id]
	if blk.Tag != TagUndefined {
		return errors.BlockMisuse(errors.PhaseBuild, "block b%d already used as %s", id, blk.Tag)
	}
	blk.Tag = tag
	blk.Parent = b.current
	return nil
}

// Break appends a break out of the innermost enclosing loop.
func (b *FunctionBuilder) Break() { b.push(Instr{Op: OpBreak, Else: NoBlock}) }

// Return appends a return from the function.
func (b *FunctionBuilder) Return() { b.push(Instr{Op: OpReturn, Else: NoBlock}) }

// Fail appends a trap.
func (b *FunctionBuilder) Fail() { b.push(Instr{Op: OpFail, Else: NoBlock}) }

// Discard appends a pop of one value.
func (b *FunctionBuilder) Discard() { b.push(Instr{Op: OpDiscard, Else: NoBlock}) }

// Read appends a memory read of the given element type through a
// popped pointer.
func (b *FunctionBuilder) Read(ty *types.Type) {
	b.push(Instr{Op: OpRead, Ty: ty, Else: NoBlock})
}

// Write appends a memory write of the given element type.
func (b *FunctionBuilder) Write(ty *types.Type) {
	b.push(Instr{Op: OpWrite, Ty: ty, Else: NoBlock})
}

// Offset appends pointer arithmetic: pops index n and pointer p,
// pushes p + n*sizeof(ty).
func (b *FunctionBuilder) Offset(ty *types.Type) {
	b.push(Instr{Op: OpOffset, Ty: ty, Else: NoBlock})
}

// GetFieldPtr appends a pointer adjustment to the n-th field of a
// struct.
func (b *FunctionBuilder) GetFieldPtr(structTy *types.Type, field int) error {
	if !structTy.IsStruct() {
		return errors.TypeMisuse(errors.PhaseBuild, "get_field_ptr with non-struct type %s", structTy)
	}
	b.push(Instr{Op: OpGetFieldPtr, Ty: structTy, Field: field, Else: NoBlock})
	return nil
}

// LdStaticMemPtr appends a load of a static memory blob's address.
func (b *FunctionBuilder) LdStaticMemPtr(item SMItemRef) {
	b.push(Instr{Op: OpLdStaticMemPtr, Item: item, Else: NoBlock})
}

// MemorySize appends a query of the linear memory size in pages.
func (b *FunctionBuilder) MemorySize() { b.push(Instr{Op: OpMemorySize, Else: NoBlock}) }

// MemoryGrow appends a memory grow by a popped number of pages.
func (b *FunctionBuilder) MemoryGrow() { b.push(Instr{Op: OpMemoryGrow, Else: NoBlock}) }

// Finish validates the function's block structure, derives loop
// distances and attaches the function to the module. The builder
// must not be used afterwards.
func (b *FunctionBuilder) Finish(m *Module) error {
	b.active()

	fn := &Function{
		name:   b.name,
		ty:     b.ty,
		blocks: b.blocks,
		locals: b.locals,
	}
	if err := verifyStructure(fn); err != nil {
		return err
	}
	if err := m.addFunction(fn); err != nil {
		return err
	}
	b.finished = true
	return nil
}

// verifyStructure checks the block-tree invariants of a single
// function and computes each block's innermost loop distance.
func verifyStructure(fn *Function) error {
	name := fn.Name()

	for _, blk := range fn.blocks {
		if blk.IsMain() {
			continue
		}
		if blk.Tag == TagUndefined {
			return errors.BlockMisuse(errors.PhaseVerify, "block b%d is never used", blk.ID).At(name, int(blk.ID), -1)
		}
		if blk.Parent == NoBlock {
			return errors.BlockMisuse(errors.PhaseVerify, "block b%d has tag %s but no parent", blk.ID, blk.Tag).At(name, int(blk.ID), -1)
		}
	}

	// Walk the tree from the main block, assigning loop distances.
	visited := make([]bool, len(fn.blocks))
	stack := []BlockID{EntryBlockID}
	visited[EntryBlockID] = true
	fn.blocks[EntryBlockID].LoopDist = NoLoop
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		parent := fn.blocks[id]

		for n := range parent.Body {
			instr := &parent.Body[n]
			var children []BlockID
			switch instr.Op {
			case OpIf, OpLoop:
				children = []BlockID{instr.Then}
			case OpIfElse:
				children = []BlockID{instr.Then, instr.Else}
			default:
				continue
			}
			for _, child := range children {
				blk := fn.Block(child)
				if blk == nil {
					return errors.BlockMisuse(errors.PhaseVerify, "reference to unknown block b%d", child).At(name, int(id), n)
				}
				if visited[child] {
					return errors.BlockMisuse(errors.PhaseVerify, "block b%d referenced more than once", child).At(name, int(id), n)
				}
				visited[child] = true
				if instr.Op == OpLoop {
					blk.LoopDist = 0
				} else if parent.InLoop() {
					blk.LoopDist = parent.LoopDist + 1
				} else {
					blk.LoopDist = NoLoop
				}
				stack = append(stack, child)
			}
		}
	}
	for i, seen := range visited {
		if !seen {
			return errors.BlockMisuse(errors.PhaseVerify, "block b%d is not reachable from the main block", i).At(name, i, -1)
		}
	}

	// A break is only legal under an enclosing loop.
	for _, blk := range fn.blocks {
		for n := range blk.Body {
			if blk.Body[n].Op == OpBreak && !blk.InLoop() {
				return errors.BlockMisuse(errors.PhaseVerify, "break outside of a loop").At(name, int(blk.ID), n)
			}
		}
	}
	return nil
}
