// Package codegen lowers small typed functions to WebAssembly, which the
// engine then compiles to native code.
//
// A function is a list of named parameters, a return kind and a body
// expression:
//
//	// (a: int, b: float) -> int
//	f := codegen.NewFunc("scale",
//	    []codegen.Param{{Name: "a", Type: abi.Int}, {Name: "b", Type: abi.Float}},
//	    abi.Int,
//	    codegen.ToInt(codegen.Mul(codegen.ToFloat(codegen.Ref("a")), codegen.Ref("b"))))
//
//	wasm, err := codegen.Encode(f)
//
// Expressions are type-checked during encoding: operands of a binary
// operator share a kind, comparisons yield bool, and both branches of If
// agree. Kinds never convert implicitly; use ToFloat and ToInt.
//
// Ints are signed 64-bit with wrapping arithmetic. Integer division by zero
// traps at run time.
package codegen
