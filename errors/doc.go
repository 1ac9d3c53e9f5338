// Package errors provides structured error types for the nativecall module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: location path, expected/actual type names,
// and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindTypeMismatch).
//		Path("compute", "arg1").
//		Expected("float").
//		Actual("int").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.WrongArity(path, 2, 3)
//	err := errors.TypeMismatch(path, "float", "int")
//
// Pre-call validation failures match the package sentinels with errors.Is:
//
//	if errors.Is(err, errors.ErrArgumentTypeMismatch) { ... }
package errors
