// Package wasm provides the WebAssembly binary module model and
// encoder.
//
// The package covers the WebAssembly 1.0 surface the compiler emits:
// the core value types i32 and f32, functions, one funcref table, one
// linear memory, mutable globals, exports, active element and data
// segments. A Module is assembled section by section and serialized
// with Encode; sections are written in the order the specification
// mandates and empty sections are omitted.
package wasm
