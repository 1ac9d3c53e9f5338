// Package runtime is the high-level API for compiling, loading and calling
// native functions.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	// (a: int, b: float) -> int
//	fn, err := rt.Compile(ctx, codegen.NewFunc("scale",
//	    []codegen.Param{{Name: "a", Type: abi.Int}, {Name: "b", Type: abi.Float}},
//	    abi.Int,
//	    codegen.ToInt(codegen.Mul(codegen.ToFloat(codegen.Ref("a")), codegen.Ref("b")))))
//
//	result, err := fn.Invoke(ctx, abi.IntValue(4), abi.FloatValue(2.5))
//	fmt.Println(result) // int(10)
//
// # Sources of Native Code
//
//	Compile(f)              - one codegen function
//	CompileModule(m)        - several codegen functions in one module
//	LoadWASM(bytes, wit)    - a core WebAssembly module
//	OpenLibrary(path)       - a shared library, bound symbol by symbol
//
// For core modules, WIT text declares export signatures:
//
//	mod, err := rt.LoadWASM(ctx, wasmBytes, `
//	    export add: func(a: s64, b: s64) -> s64;
//	    export is-even: func(n: s64) -> bool;
//	`)
//	add, err := mod.Function("add")
//
// Only s64, f64 and bool appear in declarations. An export without one is
// bound with the signature its core types imply (i64 int, f64 float, i32
// bool).
//
// # Thread Safety
//
// Runtime and Module are safe for concurrent use, as is every jit.Function
// they return. Args builders are single-owner.
//
// # Resource Management
//
// Close the runtime when done. It releases every module and library it
// produced; functions obtained from them must not be invoked afterwards.
package runtime
