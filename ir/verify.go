package ir

import (
	"github.com/IQBigBang/swarm-ir/errors"
	"github.com/IQBigBang/swarm-ir/types"
)

// VerifyModule runs the stack-type verifier over every defined
// function. It resolves call and global references, so it must run
// once all declarations exist. The first violation aborts
// verification.
//
// As a side effect the verifier annotates instructions with the
// operand types the emitter needs (see Instr.OperandTy).
func VerifyModule(m *Module) error {
	for _, fn := range m.funcs {
		if err := verifyFunction(m, fn); err != nil {
			return err
		}
	}
	return nil
}

func verifyFunction(m *Module, fn *Function) error {
	v := &verifier{m: m, fn: fn}
	for _, blk := range fn.blocks {
		if err := v.verifyBlock(blk); err != nil {
			return err
		}
	}
	return nil
}

type verifier struct {
	m  *Module
	fn *Function
}

// typeStack is the abstract operand stack.
type typeStack struct {
	vals []*types.Type
}

func (s *typeStack) push(t *types.Type) { s.vals = append(s.vals, t) }

func (s *typeStack) pushAll(ts []*types.Type) { s.vals = append(s.vals, ts...) }

func (s *typeStack) pop() (*types.Type, bool) {
	if len(s.vals) == 0 {
		return nil, false
	}
	t := s.vals[len(s.vals)-1]
	s.vals = s.vals[:len(s.vals)-1]
	return t, true
}

func (v *verifier) verifyBlock(blk *Block) error {
	name := v.fn.Name()
	bid := int(blk.ID)
	var stack typeStack

	fail := func(n int, err *errors.Error) error {
		return err.At(name, bid, n)
	}
	pop := func(n int, what string) (*types.Type, error) {
		t, ok := stack.pop()
		if !ok {
			return nil, fail(n, errors.StackUnderflow("%s needs an operand", what))
		}
		return t, nil
	}
	popExpect := func(n int, what string, want *types.Type) error {
		got, err := pop(n, what)
		if err != nil {
			return err
		}
		if got != want {
			return fail(n, errors.StackMismatch("%s expects %s, got %s", what, want, got))
		}
		return nil
	}

	for n := range blk.Body {
		instr := &blk.Body[n]

		// A diverging instruction terminates the block; anything
		// after it is unreachable.
		if n > 0 && blk.Body[n-1].IsDiverging() {
			return fail(n, errors.StackMismatch("unreachable instruction after a diverging one"))
		}

		switch instr.Op {
		case OpLdInt:
			stack.push(instr.Ty)

		case OpLdFloat:
			stack.push(v.m.types.Float32())

		case OpIAdd, OpISub, OpIMul, OpIDiv, OpBitAnd, OpBitOr:
			rhs, err := pop(n, "integer arithmetic")
			if err != nil {
				return err
			}
			if !rhs.IsInt() {
				return fail(n, errors.StackMismatch("integer arithmetic expects an integer, got %s", rhs))
			}
			if err := popExpect(n, "integer arithmetic", rhs); err != nil {
				return err
			}
			instr.OperandTy = rhs
			stack.push(rhs)

		case OpFAdd, OpFSub, OpFMul, OpFDiv:
			f32 := v.m.types.Float32()
			if err := popExpect(n, "float arithmetic", f32); err != nil {
				return err
			}
			if err := popExpect(n, "float arithmetic", f32); err != nil {
				return err
			}
			stack.push(f32)

		case OpICmp:
			rhs, err := pop(n, "icmp")
			if err != nil {
				return err
			}
			if !rhs.IsInt() {
				return fail(n, errors.StackMismatch("icmp expects an integer, got %s", rhs))
			}
			if err := popExpect(n, "icmp", rhs); err != nil {
				return err
			}
			instr.OperandTy = rhs
			stack.push(v.m.types.Uint32())

		case OpFCmp:
			f32 := v.m.types.Float32()
			if err := popExpect(n, "fcmp", f32); err != nil {
				return err
			}
			if err := popExpect(n, "fcmp", f32); err != nil {
				return err
			}
			stack.push(v.m.types.Uint32())

		case OpNot:
			t, err := pop(n, "not")
			if err != nil {
				return err
			}
			if !t.IsInt() {
				return fail(n, errors.StackMismatch("not expects an integer, got %s", t))
			}
			instr.OperandTy = t
			stack.push(v.m.types.Uint32())

		case OpItof:
			t, err := pop(n, "itof")
			if err != nil {
				return err
			}
			if !t.IsInt() || t.Bits() != 32 {
				return fail(n, errors.StackMismatch("itof expects a 32-bit integer, got %s", t))
			}
			instr.OperandTy = t
			stack.push(v.m.types.Float32())

		case OpFtoi:
			if err := popExpect(n, "ftoi", v.m.types.Float32()); err != nil {
				return err
			}
			stack.push(instr.Ty)

		case OpIConv:
			t, err := pop(n, "iconv")
			if err != nil {
				return err
			}
			if !t.IsInt() {
				return fail(n, errors.StackMismatch("iconv expects an integer, got %s", t))
			}
			instr.OperandTy = t
			stack.push(instr.Ty)

		case OpCall:
			decl, ok := v.m.LookupFunc(instr.Name)
			if !ok {
				return fail(n, errors.UnknownName("function", instr.Name))
			}
			if err := v.popArgs(&stack, n, blk, decl.ArgTypes(), "call "+instr.Name); err != nil {
				return err
			}
			stack.pushAll(decl.RetTypes())

		case OpCallIndirect:
			fty, err := pop(n, "call_indirect")
			if err != nil {
				return err
			}
			if !fty.IsFunc() {
				return fail(n, errors.SignatureMismatch("call_indirect expects a function value, got %s", fty))
			}
			instr.OperandTy = fty
			if err := v.popArgs(&stack, n, blk, fty.Args(), "call_indirect"); err != nil {
				return err
			}
			stack.pushAll(fty.Rets())

		case OpLdLocal:
			ty := v.fn.LocalType(int(instr.Local))
			if ty == nil {
				return fail(n, errors.LocalOutOfRange(int(instr.Local), len(v.fn.locals)))
			}
			stack.push(ty)

		case OpStLocal:
			ty := v.fn.LocalType(int(instr.Local))
			if ty == nil {
				return fail(n, errors.LocalOutOfRange(int(instr.Local), len(v.fn.locals)))
			}
			if err := popExpect(n, "st_local", ty); err != nil {
				return err
			}

		case OpLdGlobal:
			g, ok := v.m.LookupGlobal(instr.Name)
			if !ok {
				return fail(n, errors.UnknownName("global", instr.Name))
			}
			stack.push(g.Type())

		case OpStGlobal:
			g, ok := v.m.LookupGlobal(instr.Name)
			if !ok {
				return fail(n, errors.UnknownName("global", instr.Name))
			}
			if err := popExpect(n, "st_global", g.Type()); err != nil {
				return err
			}

		case OpLdGlobalFunc:
			decl, ok := v.m.LookupFunc(instr.Name)
			if !ok {
				return fail(n, errors.UnknownName("function", instr.Name))
			}
			stack.push(decl.Type())

		case OpBitcast:
			src, err := pop(n, "bitcast")
			if err != nil {
				return err
			}
			if src.IsStruct() || instr.Ty.IsStruct() {
				return fail(n, errors.TypeMisuse(errors.PhaseVerify, "bitcast involving a struct type"))
			}
			if src.Size() != 4 || instr.Ty.Size() != 4 {
				return fail(n, errors.TypeMisuse(errors.PhaseVerify, "bitcast between %s and %s of different sizes", src, instr.Ty))
			}
			instr.OperandTy = src
			stack.push(instr.Ty)

		case OpIf:
			cond, err := pop(n, "if condition")
			if err != nil {
				return err
			}
			if !cond.IsInt() {
				return fail(n, errors.StackMismatch("if condition expects an integer, got %s", cond))
			}
			then := v.fn.Block(instr.Then)
			if len(then.Returns) != 0 {
				return fail(n, errors.StackMismatch("if without else requires a void then-block, b%d returns %d values", then.ID, len(then.Returns)))
			}

		case OpIfElse:
			cond, err := pop(n, "if condition")
			if err != nil {
				return err
			}
			if !cond.IsInt() {
				return fail(n, errors.StackMismatch("if condition expects an integer, got %s", cond))
			}
			then := v.fn.Block(instr.Then)
			els := v.fn.Block(instr.Else)
			if !typesEqual(then.Returns, els.Returns) {
				return fail(n, errors.StackMismatch("if_else branches disagree: b%d vs b%d", then.ID, els.ID))
			}
			stack.pushAll(then.Returns)

		case OpLoop:
			body := v.fn.Block(instr.Then)
			if len(body.Returns) != 0 {
				return fail(n, errors.StackMismatch("loop body b%d must be void", body.ID))
			}

		case OpBreak:
			if !blk.InLoop() {
				return fail(n, errors.BlockMisuse(errors.PhaseVerify, "break outside of a loop"))
			}

		case OpReturn:
			rets := v.fn.RetTypes()
			for i := len(rets) - 1; i >= 0; i-- {
				if err := popExpect(n, "return", rets[i]); err != nil {
					return err
				}
			}

		case OpFail:
			// Always valid; the rest of the block is unreachable.

		case OpDiscard:
			if _, err := pop(n, "discard"); err != nil {
				return err
			}

		case OpRead:
			if instr.Ty.IsStruct() {
				return fail(n, errors.TypeMisuse(errors.PhaseVerify, "read of a struct type %s", instr.Ty))
			}
			if err := popExpect(n, "read", v.m.types.Ptr()); err != nil {
				return err
			}
			stack.push(instr.Ty)

		case OpWrite:
			if instr.Ty.IsStruct() {
				return fail(n, errors.TypeMisuse(errors.PhaseVerify, "write of a struct type %s", instr.Ty))
			}
			if err := popExpect(n, "write", instr.Ty); err != nil {
				return err
			}
			if err := popExpect(n, "write", v.m.types.Ptr()); err != nil {
				return err
			}

		case OpOffset:
			idx, err := pop(n, "offset")
			if err != nil {
				return err
			}
			if !idx.IsInt() || idx.Bits() != 32 {
				return fail(n, errors.StackMismatch("offset expects a 32-bit integer index, got %s", idx))
			}
			if err := popExpect(n, "offset", v.m.types.Ptr()); err != nil {
				return err
			}
			stack.push(v.m.types.Ptr())

		case OpGetFieldPtr:
			if instr.Field < 0 || instr.Field >= instr.Ty.NumFields() {
				return fail(n, errors.TypeMisuse(errors.PhaseVerify, "field %d out of range for %s", instr.Field, instr.Ty))
			}
			if err := popExpect(n, "get_field_ptr", v.m.types.Ptr()); err != nil {
				return err
			}
			stack.push(v.m.types.Ptr())

		case OpLdStaticMemPtr:
			if v.m.StaticMemItem(instr.Item) == nil {
				return fail(n, errors.New(errors.PhaseVerify, errors.KindUnknownName, "static memory item #%d not declared", instr.Item))
			}
			stack.push(v.m.types.Ptr())

		case OpMemorySize:
			stack.push(v.m.types.Int32())

		case OpMemoryGrow:
			if err := popExpect(n, "memory.grow", v.m.types.Int32()); err != nil {
				return err
			}
			stack.push(v.m.types.Int32())
		}
	}

	// At the end of the block the stack must match the block's
	// declared result signature, unless the block ends diverging.
	if blk.endsDiverging() {
		return nil
	}
	if !typesEqual(stack.vals, blk.Returns) {
		return errors.StackMismatch("block leaves %s, declared %s",
			typeListString(stack.vals), typeListString(blk.Returns)).At(name, bid, len(blk.Body)-1)
	}
	return nil
}

// popArgs pops call arguments right-to-left: the last argument sits
// on top of the stack.
func (v *verifier) popArgs(stack *typeStack, n int, blk *Block, args []*types.Type, what string) error {
	for i := len(args) - 1; i >= 0; i-- {
		got, ok := stack.pop()
		if !ok {
			return errors.StackUnderflow("%s is missing argument %d", what, i).At(v.fn.Name(), int(blk.ID), n)
		}
		if got != args[i] {
			return errors.SignatureMismatch("%s argument %d expects %s, got %s", what, i, args[i], got).At(v.fn.Name(), int(blk.ID), n)
		}
	}
	return nil
}

func typesEqual(a, b []*types.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func typeListString(ts []*types.Type) string {
	s := "["
	for i, t := range ts {
		if i != 0 {
			s += ", "
		}
		s += t.String()
	}
	return s + "]"
}
