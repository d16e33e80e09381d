package wasm

// Module represents a WebAssembly module under construction.
// Fields mirror the binary sections; empty sections are not emitted.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // Type indices for declared functions
	Tables   []TableType
	Memories []MemoryType
	Globals  []Global
	Exports  []Export
	Elements []Element
	Code     []FuncBody
	Data     []DataSegment
}

// ValType represents a WebAssembly value type.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValF32:
		return "f32"
	case ValFuncRef:
		return "funcref"
	default:
		return "unknown"
	}
}

// FuncType represents a function signature with parameter and result types.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// AddType adds a function type and returns its index, reusing an
// existing equal entry.
func (m *Module) AddType(ft FuncType) uint32 {
	for i, t := range m.Types {
		if typesEqual(t, ft) {
			return uint32(i)
		}
	}
	idx := uint32(len(m.Types))
	m.Types = append(m.Types, ft)
	return idx
}

func typesEqual(a, b FuncType) bool {
	if len(a.Params) != len(b.Params) || len(a.Results) != len(b.Results) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	for i := range a.Results {
		if a.Results[i] != b.Results[i] {
			return false
		}
	}
	return true
}

// Import represents an imported function.
type Import struct {
	Module  string
	Name    string
	TypeIdx uint32
}

// TableType describes a funcref table with fixed size limits.
type TableType struct {
	Min uint32
	Max *uint32
}

// MemoryType describes a linear memory with size limits in pages.
type MemoryType struct {
	Min uint32
	Max *uint32
}

// GlobalType describes a global variable's type and mutability.
type GlobalType struct {
	ValType ValType
	Mutable bool
}

// Global represents a global variable with type and initialization.
type Global struct {
	Type GlobalType
	Init []byte // Raw init expression bytes, including the end opcode
}

// Export describes an exported item.
// Kind uses KindFunc, KindMemory or KindGlobal.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// Element represents an active element segment initializing table 0
// with function indices at a constant offset.
type Element struct {
	Offset   uint32
	FuncIdxs []uint32
}

// FuncBody represents a function's local declarations and bytecode.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte // Raw code bytes including the end opcode
}

// LocalEntry represents a group of local variables with the same type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// DataSegment represents an active data segment for memory 0 at a
// constant offset.
type DataSegment struct {
	Offset uint32
	Init   []byte
}
