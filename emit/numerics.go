package emit

import (
	"github.com/IQBigBang/swarm-ir/ir"
	"github.com/IQBigBang/swarm-ir/types"
	"github.com/IQBigBang/swarm-ir/wasm"
)

// Sub-32-bit integers are polyfilled on the i32 operand stack. After
// every narrowing operation the value is put back into canonical
// form: masked for unsigned widths, sign-extended for signed widths.
// Values in canonical form compare correctly with the plain i32
// comparison instructions.

// emitCanon writes the canonicalization idiom for a narrow integer
// type; 32-bit types need none.
func emitCanon(w *coder, ty *types.Type) {
	switch {
	case ty.Bits() == 32:
	case ty.Signed():
		emitSignExtend(w, 32-int32(ty.Bits()))
	case ty.Bits() == 16:
		emitMask(w, 0xFFFF)
	default:
		emitMask(w, 0xFF)
	}
}

// emitMask writes `i32.const m ; i32.and`.
func emitMask(w *coder, m int32) {
	w.op(wasm.OpI32Const)
	w.s32(m)
	w.op(wasm.OpI32And)
}

// emitSignExtend writes `i32.const k ; i32.shl ; i32.const k ; i32.shr_s`.
func emitSignExtend(w *coder, k int32) {
	w.op(wasm.OpI32Const)
	w.s32(k)
	w.op(wasm.OpI32Shl)
	w.op(wasm.OpI32Const)
	w.s32(k)
	w.op(wasm.OpI32ShrS)
}

// emitIConv converts a canonical integer of type src into a canonical
// integer of type dst. Conversions to a 32-bit type are free: the
// value already occupies a full i32.
func emitIConv(w *coder, src, dst *types.Type) {
	if dst.Bits() == 32 {
		return
	}
	if sameWidthSign(src, dst) {
		return
	}
	if dst.Signed() {
		// A canonical narrower value is already within range.
		if src.Bits() < dst.Bits() {
			return
		}
		emitSignExtend(w, 32-int32(dst.Bits()))
		return
	}
	// Unsigned destination: a canonical unsigned narrower value
	// needs no masking, everything else does.
	if !src.Signed() && src.Bits() <= dst.Bits() {
		return
	}
	if dst.Bits() == 16 {
		emitMask(w, 0xFFFF)
	} else {
		emitMask(w, 0xFF)
	}
}

func sameWidthSign(a, b *types.Type) bool {
	return a.Bits() == b.Bits() && a.Signed() == b.Signed()
}

// canonicalConst returns the compile-time canonical form of an
// integer constant of the given type.
func canonicalConst(v uint32, ty *types.Type) int32 {
	switch ty.Bits() {
	case 8:
		if ty.Signed() {
			return int32(int8(v))
		}
		return int32(v & 0xFF)
	case 16:
		if ty.Signed() {
			return int32(int16(v))
		}
		return int32(v & 0xFFFF)
	default:
		return int32(v)
	}
}

func emitICmp(w *coder, cmp ir.Cmp, operand *types.Type) {
	signed := operand.Signed()
	switch cmp {
	case ir.CmpEq:
		w.op(wasm.OpI32Eq)
	case ir.CmpNe:
		w.op(wasm.OpI32Ne)
	case ir.CmpLt:
		if signed {
			w.op(wasm.OpI32LtS)
		} else {
			w.op(wasm.OpI32LtU)
		}
	case ir.CmpLe:
		if signed {
			w.op(wasm.OpI32LeS)
		} else {
			w.op(wasm.OpI32LeU)
		}
	case ir.CmpGt:
		if signed {
			w.op(wasm.OpI32GtS)
		} else {
			w.op(wasm.OpI32GtU)
		}
	case ir.CmpGe:
		if signed {
			w.op(wasm.OpI32GeS)
		} else {
			w.op(wasm.OpI32GeU)
		}
	}
}

func emitFCmp(w *coder, cmp ir.Cmp) {
	switch cmp {
	case ir.CmpEq:
		w.op(wasm.OpF32Eq)
	case ir.CmpNe:
		w.op(wasm.OpF32Ne)
	case ir.CmpLt:
		w.op(wasm.OpF32Lt)
	case ir.CmpLe:
		w.op(wasm.OpF32Le)
	case ir.CmpGt:
		w.op(wasm.OpF32Gt)
	case ir.CmpGe:
		w.op(wasm.OpF32Ge)
	}
}

// alignExp returns the memarg alignment exponent for a type.
func alignExp(ty *types.Type) uint32 {
	switch ty.Align() {
	case 1:
		return 0
	case 2:
		return 1
	default:
		return 2
	}
}

func emitRead(w *coder, ty *types.Type) {
	switch {
	case ty.IsFloat():
		w.op(wasm.OpF32Load)
	case ty.Bits() == 16:
		if ty.Signed() {
			w.op(wasm.OpI32Load16S)
		} else {
			w.op(wasm.OpI32Load16U)
		}
	case ty.Bits() == 8:
		if ty.Signed() {
			w.op(wasm.OpI32Load8S)
		} else {
			w.op(wasm.OpI32Load8U)
		}
	default:
		// int32, uint32, ptr and func values are plain i32 loads.
		w.op(wasm.OpI32Load)
	}
	w.u32(alignExp(ty))
	w.u32(0) // offset
}

func emitWrite(w *coder, ty *types.Type) {
	switch {
	case ty.IsFloat():
		w.op(wasm.OpF32Store)
	case ty.Bits() == 16:
		w.op(wasm.OpI32Store16)
	case ty.Bits() == 8:
		w.op(wasm.OpI32Store8)
	default:
		w.op(wasm.OpI32Store)
	}
	w.u32(alignExp(ty))
	w.u32(0) // offset
}
