// Package nativecall lets a dynamically-typed interpreter call functions that
// were compiled ahead of time to native machine code.
//
// The hard part is the boundary: a call site holds loosely-typed values of any
// count, while native code has a fixed calling convention that must never be
// entered with the wrong arity or the wrong representation for an argument.
// This module validates arguments against a per-function signature before any
// native call happens, lays them out in stack slots, performs the call and
// tags the result.
//
// # Architecture Overview
//
//	nativecall/          Root package with the Entry calling contract
//	├── abi/             Value kinds and their stack-slot encoding
//	├── jit/             Signature, Function, ArgsBuilder, Args, trampoline
//	├── engine/          wazero-backed native code (AOT compiled WebAssembly)
//	├── codegen/         Typed expression IR lowered to WebAssembly
//	├── native/          Shared-library symbols bound via purego
//	├── runtime/         High-level API combining the above
//	├── errors/          Structured error types
//	└── cmd/nativecall/  Command line tool
//
// # Quick Start
//
//	rt, err := runtime.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	fn, err := rt.Compile(ctx, codegen.NewFunc("func",
//	    []codegen.Param{{Name: "a", Type: abi.Int}, {Name: "b", Type: abi.Float}},
//	    abi.Int, codegen.IntConst(1)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := fn.Invoke(ctx, abi.IntValue(1), abi.FloatValue(2.0))
//	fmt.Println(result) // int(1)
//
// # Incremental Arguments
//
// Call sites that evaluate argument expressions one at a time validate each
// result as soon as it is known:
//
//	b := fn.ArgsBuilder()
//	if err := b.Set(0, abi.IntValue(1)); err != nil { ... }
//	if err := b.Set(1, abi.FloatValue(2)); err != nil { ... }
//	args, ok := b.IntoArgs()
//	result, err := args.Invoke(ctx)
//
// # Thread Safety
//
// jit.Function is immutable and safe for concurrent use. ArgsBuilder and Args
// belong to a single call site and must not be shared between goroutines.
// Calls are synchronous; a non-terminating native function blocks its caller.
package nativecall
