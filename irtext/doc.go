// Package irtext parses the textual IR format produced by the ir
// package's Dump method.
//
// The format is a flat list of declarations:
//
//	global "counter" = int32 5
//	extern func "print" (int32) -> ();
//	func "twice" (int32) -> int32 {
//	locals:
//	  #0 int32
//	b0: () -> int32 tag=main
//	  ld.loc #0
//	  ld.int32 2
//	  imul
//	  return
//	}
//
// Parsing drives a FunctionBuilder, so the parsed module passes
// through exactly the same structural checks as a programmatically
// built one. Static memory items have no textual declaration form and
// are rejected.
package irtext
