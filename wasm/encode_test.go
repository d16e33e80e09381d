package wasm

import (
	"bytes"
	"testing"
)

func header() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
}

func TestEncodeEmptyModule(t *testing.T) {
	m := &Module{}
	if !bytes.Equal(m.Encode(), header()) {
		t.Errorf("empty module: got %v", m.Encode())
	}
}

func TestEncodeMinimalFunction(t *testing.T) {
	m := &Module{}
	ti := m.AddType(FuncType{Results: []ValType{ValI32}})
	m.Funcs = append(m.Funcs, ti)
	m.Exports = append(m.Exports, Export{Name: "f", Kind: KindFunc, Idx: 0})
	m.Code = append(m.Code, FuncBody{Code: []byte{OpI32Const, 42, OpEnd}})

	want := append(header(),
		// type section: 1 type, () -> (i32)
		SectionType, 5, 1, FuncTypeByte, 0, 1, byte(ValI32),
		// function section
		SectionFunction, 2, 1, 0,
		// export section: "f" func 0
		SectionExport, 5, 1, 1, 'f', KindFunc, 0,
		// code section: one body, no locals
		SectionCode, 6, 1, 4, 0, OpI32Const, 42, OpEnd,
	)
	if got := m.Encode(); !bytes.Equal(got, want) {
		t.Errorf("minimal function:\n got %v\nwant %v", got, want)
	}
}

func TestAddTypeDeduplicates(t *testing.T) {
	m := &Module{}
	a := m.AddType(FuncType{Params: []ValType{ValI32}, Results: []ValType{ValI32}})
	b := m.AddType(FuncType{Params: []ValType{ValI32}, Results: []ValType{ValI32}})
	c := m.AddType(FuncType{Params: []ValType{ValF32}, Results: []ValType{ValI32}})

	if a != b {
		t.Error("equal types got distinct indices")
	}
	if a == c {
		t.Error("distinct types share an index")
	}
	if len(m.Types) != 2 {
		t.Errorf("want 2 types, got %d", len(m.Types))
	}
}

func TestEncodeMemoryAndData(t *testing.T) {
	m := &Module{}
	m.Memories = append(m.Memories, MemoryType{Min: 1})
	m.Exports = append(m.Exports, Export{Name: "memory", Kind: KindMemory, Idx: 0})
	m.Data = append(m.Data, DataSegment{Offset: 1024, Init: []byte{1, 2, 3}})

	got := m.Encode()

	// memory section: id 5, size 3, count 1, flags 0, min 1
	memSec := []byte{SectionMemory, 3, 1, 0, 1}
	if !bytes.Contains(got, memSec) {
		t.Errorf("memory section missing: %v", got)
	}
	// data segment offset expr: i32.const 1024 end
	dataExpr := []byte{OpI32Const, 0x80, 0x08, OpEnd, 3, 1, 2, 3}
	if !bytes.Contains(got, dataExpr) {
		t.Errorf("data segment missing: %v", got)
	}
}

func TestEncodeTableAndElements(t *testing.T) {
	m := &Module{}
	max := uint32(4)
	m.Tables = append(m.Tables, TableType{Min: 4, Max: &max})
	m.Elements = append(m.Elements, Element{Offset: 1, FuncIdxs: []uint32{0, 1, 2}})

	got := m.Encode()

	tableSec := []byte{SectionTable, 5, 1, byte(ValFuncRef), 1, 4, 4}
	if !bytes.Contains(got, tableSec) {
		t.Errorf("table section missing: %v", got)
	}
	elemSec := []byte{SectionElement, 9, 1, 0, OpI32Const, 1, OpEnd, 3, 0, 1, 2}
	if !bytes.Contains(got, elemSec) {
		t.Errorf("element section missing: %v", got)
	}
}

func TestEncodeGlobals(t *testing.T) {
	m := &Module{}
	m.Globals = append(m.Globals, Global{
		Type: GlobalType{ValType: ValI32, Mutable: true},
		Init: []byte{OpI32Const, 5, OpEnd},
	})

	got := m.Encode()
	globalSec := []byte{SectionGlobal, 6, 1, byte(ValI32), 1, OpI32Const, 5, OpEnd}
	if !bytes.Contains(got, globalSec) {
		t.Errorf("global section missing: %v", got)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	build := func() []byte {
		m := &Module{}
		ti := m.AddType(FuncType{Params: []ValType{ValI32, ValI32}, Results: []ValType{ValI32}})
		m.Imports = append(m.Imports, Import{Module: "env", Name: "h", TypeIdx: ti})
		m.Funcs = append(m.Funcs, ti)
		m.Memories = append(m.Memories, MemoryType{Min: 1})
		m.Exports = append(m.Exports, Export{Name: "f", Kind: KindFunc, Idx: 1})
		m.Code = append(m.Code, FuncBody{
			Locals: []LocalEntry{{Count: 1, ValType: ValI32}},
			Code:   []byte{OpLocalGet, 0, OpLocalGet, 1, OpI32Add, OpEnd},
		})
		return m.Encode()
	}
	if !bytes.Equal(build(), build()) {
		t.Error("two identical builds produced different bytes")
	}
}
