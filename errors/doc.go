// Package errors provides the structured error type used throughout
// the compiler.
//
// Every error carries a Phase (where in the pipeline it occurred) and a
// Kind (the stable category of the failure), plus optional location
// information pointing at the offending function, block and instruction.
// The set of kinds is part of the public contract: callers match on
// Kind, never on the message text.
package errors
