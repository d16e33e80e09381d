// Package types implements the compiler's type universe.
//
// Types are hash-consed by a Registry: structurally equal types are
// represented by the same *Type, so equality is pointer identity.
// The Registry also computes the memory layout (size, alignment and
// field offsets) of every type at interning time, following the
// 32-bit WebAssembly layout rules:
//
//	int32, uint32, float32, ptr, func   size 4, align 4
//	int16, uint16                       size 2, align 2
//	int8, uint8                         size 1, align 1
//	struct                              padded field-by-field, no trailing padding
//
// A Registry belongs to exactly one IR module and must not be shared.
package types
