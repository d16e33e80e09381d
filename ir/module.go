package ir

import (
	"github.com/IQBigBang/swarm-ir/errors"
	"github.com/IQBigBang/swarm-ir/types"
)

// Config holds configuration of the resulting WebAssembly module.
type Config struct {
	// StaticMemBase is the address of the first static memory blob.
	// The space below it is never written, so address 0 stays an
	// invalid pointer.
	StaticMemBase uint32
	// MemoryReserve is extra linear memory, in bytes, requested
	// beyond the static memory high-water mark.
	MemoryReserve uint32
	// SaturatingFtoi selects i32.trunc_sat_f32_* for float-to-int
	// conversions instead of the trapping i32.trunc_f32_*.
	SaturatingFtoi bool
}

// DefaultConfig returns the default module configuration.
func DefaultConfig() Config {
	return Config{StaticMemBase: 1024}
}

// FuncDecl is either a defined Function or an ExternFunction.
type FuncDecl interface {
	Name() string
	Type() *types.Type
	ArgTypes() []*types.Type
	RetTypes() []*types.Type
	IsExtern() bool
}

// Module owns every piece of the IR: the type registry, globals,
// extern declarations, defined functions and static memory.
// A module is populated through builder calls, frozen by compilation
// and then consumed.
type Module struct {
	types       *types.Registry
	funcIndex   map[string]FuncDecl
	globalIndex map[string]*Global
	externs     []*ExternFunction
	funcs       []*Function
	globals     []*Global
	staticMem   []*SMItem
	staticNext  uint32
	conf        Config
	frozen      bool
}

// NewModule creates an empty module.
func NewModule(conf Config) *Module {
	if conf.StaticMemBase == 0 {
		conf.StaticMemBase = DefaultConfig().StaticMemBase
	}
	return &Module{
		types:       types.NewRegistry(),
		funcIndex:   make(map[string]FuncDecl),
		globalIndex: make(map[string]*Global),
		conf:        conf,
		staticNext:  conf.StaticMemBase,
	}
}

// Types returns the module's type registry.
func (m *Module) Types() *types.Registry { return m.types }

// Conf returns the module configuration.
func (m *Module) Conf() Config { return m.conf }

// Freeze marks the module immutable. Further declarations panic.
func (m *Module) Freeze() { m.frozen = true }

// Frozen reports whether the module has been compiled.
func (m *Module) Frozen() bool { return m.frozen }

func (m *Module) mutable() {
	if m.frozen {
		panic("ir: module mutated after compilation")
	}
}

// NewIntGlobal declares a mutable int32 global with an initial value.
func (m *Module) NewIntGlobal(name string, value int32) error {
	return m.addGlobal(&Global{name: name, ty: m.types.Int32(), intVal: value})
}

// NewFloatGlobal declares a mutable float32 global with an initial value.
func (m *Module) NewFloatGlobal(name string, value float32) error {
	return m.addGlobal(&Global{name: name, ty: m.types.Float32(), floatVal: value})
}

func (m *Module) addGlobal(g *Global) error {
	m.mutable()
	if _, ok := m.globalIndex[g.name]; ok {
		return errors.MalformedDeclaration("duplicate global %q", g.name)
	}
	g.idx = len(m.globals)
	m.globals = append(m.globals, g)
	m.globalIndex[g.name] = g
	return nil
}

// NewExternFunction declares an imported function.
func (m *Module) NewExternFunction(name string, fnType *types.Type) error {
	m.mutable()
	if !fnType.IsFunc() {
		return errors.MalformedDeclaration("extern function %q declared with non-function type %s", name, fnType)
	}
	if _, ok := m.funcIndex[name]; ok {
		return errors.MalformedDeclaration("duplicate function %q", name)
	}
	f := &ExternFunction{name: name, ty: fnType, idx: len(m.externs)}
	m.externs = append(m.externs, f)
	m.funcIndex[name] = f
	return nil
}

// addFunction attaches a finished function. Called by
// FunctionBuilder.Finish.
func (m *Module) addFunction(f *Function) error {
	m.mutable()
	if _, ok := m.funcIndex[f.name]; ok {
		return errors.MalformedDeclaration("duplicate function %q", f.name)
	}
	f.idx = len(m.funcs)
	m.funcs = append(m.funcs, f)
	m.funcIndex[f.name] = f
	return nil
}

// NewStaticMemBlob places a byte blob into static memory and returns
// its handle. Blobs are laid out in declaration order, each aligned
// to 4 bytes.
func (m *Module) NewStaticMemBlob(data []byte, mutable bool) SMItemRef {
	m.mutable()
	addr := m.staticNext
	if rem := addr % 4; rem != 0 {
		addr += 4 - rem
	}
	item := &SMItem{
		Data:    append([]byte(nil), data...),
		Addr:    addr,
		Mutable: mutable,
	}
	m.staticNext = addr + uint32(len(item.Data))
	m.staticMem = append(m.staticMem, item)
	return SMItemRef(len(m.staticMem) - 1)
}

// StaticMem returns the static memory blobs in declaration order.
func (m *Module) StaticMem() []*SMItem { return m.staticMem }

// StaticMemItem returns the blob behind a handle, or nil when the
// handle is invalid.
func (m *Module) StaticMemItem(ref SMItemRef) *SMItem {
	if ref < 0 || int(ref) >= len(m.staticMem) {
		return nil
	}
	return m.staticMem[ref]
}

// StaticMemHighWater returns the first address past the static memory
// image.
func (m *Module) StaticMemHighWater() uint32 { return m.staticNext }

// LookupFunc resolves a function or extern declaration by name.
func (m *Module) LookupFunc(name string) (FuncDecl, bool) {
	d, ok := m.funcIndex[name]
	return d, ok
}

// LookupGlobal resolves a global by name.
func (m *Module) LookupGlobal(name string) (*Global, bool) {
	g, ok := m.globalIndex[name]
	return g, ok
}

// FuncIndex returns the function index used in the emitted module:
// extern functions occupy indices 0..E-1 in declaration order,
// defined functions follow in declaration order.
func (m *Module) FuncIndex(name string) (uint32, bool) {
	d, ok := m.funcIndex[name]
	if !ok {
		return 0, false
	}
	switch f := d.(type) {
	case *ExternFunction:
		return uint32(f.idx), true
	default:
		return uint32(len(m.externs) + d.(*Function).idx), true
	}
}

// Externs returns the extern function declarations in order.
func (m *Module) Externs() []*ExternFunction { return m.externs }

// Funcs returns the defined functions in declaration order.
func (m *Module) Funcs() []*Function { return m.funcs }

// Globals returns the globals in declaration order.
func (m *Module) Globals() []*Global { return m.globals }

// Function is a named, defined function: a function type, an ordered
// list of blocks and an ordered list of locals. The first locals are
// the declared arguments.
type Function struct {
	name   string
	ty     *types.Type
	blocks []*Block
	locals []*types.Type
	idx    int
}

// Name returns the function name.
func (f *Function) Name() string { return f.name }

// Type returns the function's type.
func (f *Function) Type() *types.Type { return f.ty }

// ArgTypes returns the declared argument types.
func (f *Function) ArgTypes() []*types.Type { return f.ty.Args() }

// RetTypes returns the declared return types.
func (f *Function) RetTypes() []*types.Type { return f.ty.Rets() }

// IsExtern reports false for defined functions.
func (f *Function) IsExtern() bool { return false }

// Blocks returns the function's blocks indexed by BlockID.
func (f *Function) Blocks() []*Block { return f.blocks }

// Block returns the block with the given id, or nil when out of range.
func (f *Function) Block(id BlockID) *Block {
	if id < 0 || int(id) >= len(f.blocks) {
		return nil
	}
	return f.blocks[id]
}

// EntryBlock returns the main block.
func (f *Function) EntryBlock() *Block { return f.blocks[EntryBlockID] }

// LocalType returns the type of the n-th local, or nil when out of
// range.
func (f *Function) LocalType(n int) *types.Type {
	if n < 0 || n >= len(f.locals) {
		return nil
	}
	return f.locals[n]
}

// Locals returns the types of all locals, arguments included.
func (f *Function) Locals() []*types.Type { return f.locals }

// NumArgs returns the number of declared arguments.
func (f *Function) NumArgs() int { return len(f.ty.Args()) }

// IsLocalAnArg reports whether the n-th local is a declared argument.
func (f *Function) IsLocalAnArg(n int) bool { return n < f.NumArgs() }

// ExternFunction is an imported function declaration.
type ExternFunction struct {
	name string
	ty   *types.Type
	idx  int
}

// Name returns the declared name.
func (f *ExternFunction) Name() string { return f.name }

// Type returns the declared function type.
func (f *ExternFunction) Type() *types.Type { return f.ty }

// ArgTypes returns the declared argument types.
func (f *ExternFunction) ArgTypes() []*types.Type { return f.ty.Args() }

// RetTypes returns the declared return types.
func (f *ExternFunction) RetTypes() []*types.Type { return f.ty.Rets() }

// IsExtern reports true for extern declarations.
func (f *ExternFunction) IsExtern() bool { return true }

// Global is a named scalar global, either int32 or float32.
type Global struct {
	name     string
	ty       *types.Type
	intVal   int32
	floatVal float32
	idx      int
}

// Name returns the global's name.
func (g *Global) Name() string { return g.name }

// Type returns the global's type.
func (g *Global) Type() *types.Type { return g.ty }

// IsInt reports whether the global holds an int32.
func (g *Global) IsInt() bool { return g.ty.IsInt() }

// IntValue returns the initial value of an int32 global.
func (g *Global) IntValue() int32 { return g.intVal }

// FloatValue returns the initial value of a float32 global.
func (g *Global) FloatValue() float32 { return g.floatVal }

// Index returns the global's declaration index.
func (g *Global) Index() int { return g.idx }

// SMItem is a blob placed into the module's data segment at a fixed
// address.
type SMItem struct {
	Data    []byte
	Addr    uint32
	Mutable bool
}
