package types

import (
	"errors"
	"testing"

	irerrors "github.com/IQBigBang/swarm-ir/errors"
)

func TestPrimitiveLayout(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		ty    *Type
		size  uint32
		align uint32
	}{
		{r.Int8(), 1, 1},
		{r.Uint8(), 1, 1},
		{r.Int16(), 2, 2},
		{r.Uint16(), 2, 2},
		{r.Int32(), 4, 4},
		{r.Uint32(), 4, 4},
		{r.Float32(), 4, 4},
		{r.Ptr(), 4, 4},
	}
	for _, tt := range tests {
		if tt.ty.Size() != tt.size || tt.ty.Align() != tt.align {
			t.Errorf("%s: got size/align %d/%d, want %d/%d",
				tt.ty, tt.ty.Size(), tt.ty.Align(), tt.size, tt.align)
		}
	}
}

func TestInterningIdentity(t *testing.T) {
	r := NewRegistry()

	f1, err := r.Func([]*Type{r.Int32(), r.Int32()}, []*Type{r.Int32()})
	if err != nil {
		t.Fatal(err)
	}
	f2, err := r.Func([]*Type{r.Int32(), r.Int32()}, []*Type{r.Int32()})
	if err != nil {
		t.Fatal(err)
	}
	if f1 != f2 {
		t.Error("structurally equal func types interned to distinct pointers")
	}

	s1 := r.Struct(r.Int8(), r.Int32())
	s2 := r.Struct(r.Int8(), r.Int32())
	if s1 != s2 {
		t.Error("structurally equal struct types interned to distinct pointers")
	}
	if s1 == r.Struct(r.Int32(), r.Int8()) {
		t.Error("field order must distinguish struct types")
	}
}

func TestStructLayout(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name  string
		ty    *Type
		size  uint32
		align uint32
		offs  []uint32
	}{
		{
			"three_int32",
			r.Struct(r.Int32(), r.Int32(), r.Int32()),
			12, 4, []uint32{0, 4, 8},
		},
		{
			"int8_int32",
			r.Struct(r.Int8(), r.Int32()),
			8, 4, []uint32{0, 4},
		},
		{
			"int8_int16_int8",
			r.Struct(r.Int8(), r.Int16(), r.Int8()),
			6, 2, []uint32{0, 2, 4},
		},
		{
			"nested",
			r.Struct(r.Int32(), r.Struct(r.Int8(), r.Int16())),
			8, 4, []uint32{0, 4},
		},
		{
			"int16_int32_int8_uint8",
			r.Struct(r.Int16(), r.Int32(), r.Int8(), r.Uint8()),
			10, 4, []uint32{0, 4, 8, 9},
		},
		{
			"empty",
			r.Struct(),
			0, 1, nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.ty.Size() != tt.size {
				t.Errorf("size: got %d, want %d", tt.ty.Size(), tt.size)
			}
			if tt.ty.Align() != tt.align {
				t.Errorf("align: got %d, want %d", tt.ty.Align(), tt.align)
			}
			for i, want := range tt.offs {
				if got := tt.ty.FieldOffset(i); got != want {
					t.Errorf("field %d offset: got %d, want %d", i, got, want)
				}
			}
		})
	}
}

func TestNestedStructFieldOffsets(t *testing.T) {
	r := NewRegistry()

	inner := r.Struct(r.Int16(), r.Int32(), r.Int8(), r.Uint8()) // size 10, align 4
	outer := r.Struct(r.Struct(), inner, r.Float32(), inner)

	if outer.Size() != 26 {
		t.Errorf("outer size: got %d, want 26", outer.Size())
	}
	if outer.Align() != 4 {
		t.Errorf("outer align: got %d, want 4", outer.Align())
	}
	wantOffs := []uint32{0, 0, 12, 16}
	for i, want := range wantOffs {
		if got := outer.FieldOffset(i); got != want {
			t.Errorf("field %d offset: got %d, want %d", i, got, want)
		}
	}
}

func TestFuncRejectsStruct(t *testing.T) {
	r := NewRegistry()
	s := r.Struct(r.Int32())

	if _, err := r.Func([]*Type{s}, nil); err == nil {
		t.Error("struct argument should be rejected")
	} else if !errors.Is(err, &irerrors.Error{Phase: irerrors.PhaseBuild, Kind: irerrors.KindMalformedDeclaration}) {
		t.Errorf("wrong error: %v", err)
	}

	if _, err := r.Func(nil, []*Type{s}); err == nil {
		t.Error("struct return should be rejected")
	}
}

func TestPredicates(t *testing.T) {
	r := NewRegistry()
	f, _ := r.Func(nil, nil)

	if !r.Int8().IsInt() || !r.Uint32().IsInt() || r.Float32().IsInt() {
		t.Error("IsInt misclassifies")
	}
	if !r.Int32().IsNumeric() || !r.Float32().IsNumeric() || r.Ptr().IsNumeric() {
		t.Error("IsNumeric misclassifies")
	}
	if !r.Ptr().IsPtrLike() || !f.IsPtrLike() || r.Int32().IsPtrLike() {
		t.Error("IsPtrLike misclassifies")
	}
	if r.Int16().Bits() != 16 || r.Uint8().Bits() != 8 || r.Ptr().Bits() != 0 {
		t.Error("Bits misreports")
	}
	if !r.Int16().Signed() || r.Uint16().Signed() {
		t.Error("Signed misreports")
	}
}

func TestString(t *testing.T) {
	r := NewRegistry()
	f, _ := r.Func([]*Type{r.Int32(), r.Ptr()}, []*Type{r.Float32()})

	tests := []struct {
		ty   *Type
		want string
	}{
		{r.Uint16(), "uint16"},
		{r.Ptr(), "ptr"},
		{f, "(int32, ptr) -> float32"},
		{r.Struct(r.Int8(), r.Int32()), "struct{int8, int32}"},
	}
	for _, tt := range tests {
		if got := tt.ty.String(); got != tt.want {
			t.Errorf("String: got %q, want %q", got, tt.want)
		}
	}
}
