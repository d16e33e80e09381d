// Package swarmir is a library for programmatically constructing a
// typed stack-based intermediate representation, verifying its
// well-formedness and emitting a WebAssembly module implementing its
// semantics.
//
// A module is assembled through the ir package: declare types through
// the module's type registry, add globals, extern functions and
// static memory blobs, and build functions block by block with a
// FunctionBuilder. CompileFullModule then verifies the whole module
// and produces the final binary:
//
//	m := ir.NewModule(ir.DefaultConfig())
//	i32 := m.Types().Int32()
//	fty, _ := m.Types().Func([]*types.Type{i32, i32}, []*types.Type{i32})
//	b, _ := ir.NewFunctionBuilder("add", fty)
//	b.LdLocal(b.GetArg(0))
//	b.LdLocal(b.GetArg(1))
//	b.IAdd()
//	b.Return()
//	_ = b.Finish(m)
//	bin, err := swarmir.CompileFullModule(m, false)
//
// The emitted binary is a WebAssembly 1.0 module exporting one memory
// named "memory" and every defined function and global by its
// declared name.
package swarmir
