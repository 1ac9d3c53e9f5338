// Package jit marshals arguments for natively compiled functions and performs
// the call.
//
// A Function pairs native code (a nativecall.Entry) with its Signature.
// There are two ways to call it, and both end in the same trampoline:
//
//	// Bulk: all arguments at once.
//	result, err := fn.Invoke(ctx, abi.IntValue(1), abi.FloatValue(2))
//
//	// Incremental: one slot at a time, each checked when set.
//	b := fn.ArgsBuilder()
//	err := b.Set(0, abi.IntValue(1))
//	err = b.Set(1, abi.FloatValue(2))
//	args, ok := b.IntoArgs()
//	result, err := args.Invoke(ctx)
//
// # Validation Order
//
// The bulk path reports errors.ErrWrongNumberOfArguments before looking at
// any kind, then errors.ErrArgumentTypeMismatch for the first mismatched
// position. Native code is entered only after both checks pass, so a
// malformed call can never reach a calling convention it does not fit.
//
// # Results
//
// When the signature declares a return kind, the result slot is lifted and
// tagged with it. When it does not, the result is the zero abi.Value no
// matter what the native code left behind.
//
// Errors reported by the native code itself (a WebAssembly trap, a closed
// module) surface as errors.KindTrap and never as one of the validation
// kinds.
package jit
