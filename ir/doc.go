// Package ir implements the typed stack-based intermediate
// representation: the module and function model, the function builder,
// and the verifier.
//
// # Model
//
// A Module owns globals, extern function declarations, defined
// functions, static memory blobs and the type registry. Functions are
// built through a FunctionBuilder and attached with Finish. Each
// function is a set of blocks forming a tree rooted at the main block:
// every non-main block is referenced by exactly one structured
// control-flow instruction (if, if_else or loop) in exactly one place.
//
// # Verification
//
// Verification happens in two stages. Finish checks the structural
// invariants of a single function: the block tree shape, block tags,
// loop distances and break placement. Struct-typed locals and block
// results are rejected earlier, when they are created. VerifyModule
// simulates the abstract operand stack of every block, checks local
// indices and struct misuse in memory and bitcast instructions, and
// resolves function and global names; it runs once all declarations
// exist, as part of compiling the module.
package ir
