package types

import "github.com/IQBigBang/swarm-ir/errors"

// Registry hash-conses type descriptors. It is seeded with the
// primitive types; function and struct types are interned on demand.
type Registry struct {
	index map[string]*Type

	int8T    *Type
	uint8T   *Type
	int16T   *Type
	uint16T  *Type
	int32T   *Type
	uint32T  *Type
	float32T *Type
	ptrT     *Type
}

// NewRegistry constructs a registry seeded with the primitive types.
func NewRegistry() *Registry {
	r := &Registry{index: make(map[string]*Type, 16)}
	r.int8T = r.intern(&Type{kind: KindInt, bits: 8, signed: true, size: 1, align: 1})
	r.uint8T = r.intern(&Type{kind: KindInt, bits: 8, size: 1, align: 1})
	r.int16T = r.intern(&Type{kind: KindInt, bits: 16, signed: true, size: 2, align: 2})
	r.uint16T = r.intern(&Type{kind: KindInt, bits: 16, size: 2, align: 2})
	r.int32T = r.intern(&Type{kind: KindInt, bits: 32, signed: true, size: 4, align: 4})
	r.uint32T = r.intern(&Type{kind: KindInt, bits: 32, size: 4, align: 4})
	r.float32T = r.intern(&Type{kind: KindFloat, size: 4, align: 4})
	r.ptrT = r.intern(&Type{kind: KindPtr, size: 4, align: 4})
	return r
}

// intern returns the canonical instance for t's structure.
func (r *Registry) intern(t *Type) *Type {
	key := t.render()
	if existing, ok := r.index[key]; ok {
		return existing
	}
	t.str = key
	r.index[key] = t
	return t
}

// Int8 returns the signed 8-bit integer type.
func (r *Registry) Int8() *Type { return r.int8T }

// Uint8 returns the unsigned 8-bit integer type.
func (r *Registry) Uint8() *Type { return r.uint8T }

// Int16 returns the signed 16-bit integer type.
func (r *Registry) Int16() *Type { return r.int16T }

// Uint16 returns the unsigned 16-bit integer type.
func (r *Registry) Uint16() *Type { return r.uint16T }

// Int32 returns the signed 32-bit integer type.
func (r *Registry) Int32() *Type { return r.int32T }

// Uint32 returns the unsigned 32-bit integer type.
func (r *Registry) Uint32() *Type { return r.uint32T }

// Float32 returns the 32-bit float type.
func (r *Registry) Float32() *Type { return r.float32T }

// Ptr returns the untyped pointer type.
func (r *Registry) Ptr() *Type { return r.ptrT }

// Func interns a function type. Struct types may not appear among the
// arguments or returns; they are passed by pointer instead.
func (r *Registry) Func(args, rets []*Type) (*Type, error) {
	for _, a := range args {
		if a.IsStruct() {
			return nil, errors.MalformedDeclaration("struct type %s in function arguments", a)
		}
	}
	for _, ret := range rets {
		if ret.IsStruct() {
			return nil, errors.MalformedDeclaration("struct type %s in function returns", ret)
		}
	}
	t := &Type{
		kind:  KindFunc,
		args:  append([]*Type(nil), args...),
		rets:  append([]*Type(nil), rets...),
		size:  4,
		align: 4,
	}
	return r.intern(t), nil
}

// Struct interns a struct type, computing its layout.
//
// The layout is the usual C-style padding scheme: each field is placed
// at the next offset aligned to its own alignment, the struct's
// alignment is the maximum field alignment, and there is no trailing
// padding.
func (r *Registry) Struct(fields ...*Type) *Type {
	t := &Type{
		kind:      KindStruct,
		fields:    append([]*Type(nil), fields...),
		fieldOffs: make([]uint32, len(fields)),
		align:     1,
	}
	size := uint32(0)
	for i, f := range fields {
		if rem := size % f.align; rem != 0 {
			size += f.align - rem
		}
		t.fieldOffs[i] = size
		size += f.size
		if f.align > t.align {
			t.align = f.align
		}
	}
	t.size = size
	return r.intern(t)
}
