// Package emit lowers a verified IR module to a WebAssembly binary.
//
// Every IR value lives on the WASM operand stack as i32 or f32;
// integers narrower than 32 bits are polyfilled by keeping them in a
// canonical form (masked for unsigned widths, sign-extended for
// signed widths) after every narrowing operation. Structured control
// flow maps one-to-one: each IR block is spliced inline at its single
// use site as a nested block, loop or if.
//
// Function values are indices into a funcref table holding every
// declared function. Slot 0 is left empty so that a function value of
// zero is never valid, preserving pointer semantics.
//
// The emitter assumes the module has been verified. Unresolved
// function and global names are returned as errors; other IR the
// verifier would have rejected is not re-checked and may panic or
// produce an invalid module.
package emit
