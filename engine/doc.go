// Package engine turns WebAssembly modules into natively compiled functions.
//
// wazero compiles each module ahead of time to machine code for the host
// (amd64, arm64; other platforms fall back to its interpreter). An exported
// function becomes a jit.Function once its core signature has been checked
// against the declared one.
//
// # Kinds and Core Types
//
//	Kind     Core Type
//	──────────────────
//	int      i64
//	float    f64
//	bool     i32
//
// A declared signature binds only to an export with exactly the matching core
// parameter and result types. An export with f32, v128 or reference types, or
// more than one result, cannot be bound.
//
// # Usage
//
//	eng, err := engine.NewEngine(ctx)
//	defer eng.Close(ctx)
//
//	mod, err := eng.LoadModule(ctx, wasmBytes)
//	fn, err := mod.Function("add", jit.MustSignature(abi.Int, abi.Int, abi.Int))
//	result, err := fn.Invoke(ctx, abi.IntValue(2), abi.IntValue(3))
//
// # Thread Safety
//
// Engine and Module are safe for concurrent use. Functions bound from a
// module may be invoked concurrently; the module must outlive those calls.
//
// # Cancellation
//
// The engine does not close modules when a call's context is done. A call
// that does not terminate blocks its caller.
package engine
