package jit

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/nativecall"
	"github.com/wippyai/nativecall/abi"
	"github.com/wippyai/nativecall/errors"
)

// Function is a handle to native code and its signature. It holds no mutable
// state and may be invoked concurrently from any number of goroutines.
type Function struct {
	entry nativecall.Entry
	name  string
	sig   Signature
	id    uuid.UUID
}

// NewFunction attaches sig to entry. The caller guarantees that entry
// follows the stack-slot layout sig describes; backends in this module
// check that before calling NewFunction.
func NewFunction(name string, sig Signature, entry nativecall.Entry) (*Function, error) {
	if entry == nil {
		return nil, errors.InvalidInput(errors.PhaseLoad, "function "+strconv.Quote(name)+" has no entry")
	}
	return &Function{
		entry: entry,
		name:  name,
		sig:   sig,
		id:    uuid.New(),
	}, nil
}

// Name returns the function's name.
func (f *Function) Name() string {
	return f.name
}

// ID returns an identifier unique to this handle.
func (f *Function) ID() uuid.UUID {
	return f.id
}

// Signature returns the function's signature.
func (f *Function) Signature() Signature {
	return f.sig
}

// ArgsBuilder returns a fresh builder for one call of f.
func (f *Function) ArgsBuilder() *ArgsBuilder {
	return NewArgsBuilder(f)
}

// Invoke calls f with args.
//
// The argument count is checked first and reported as
// errors.ErrWrongNumberOfArguments whether args is too short or too long.
// Then each position is checked in order; the first position whose kind
// differs from the signature is reported as errors.ErrArgumentTypeMismatch.
// Native code runs only if every check passes.
//
// The result is the zero abi.Value when the signature declares no return.
func (f *Function) Invoke(ctx context.Context, args ...abi.Value) (abi.Value, error) {
	if err := f.check(args); err != nil {
		Logger().Debug("invoke rejected",
			zap.String("func", f.name),
			zap.Stringer("func_id", f.id),
			zap.Error(err))
		return abi.Value{}, err
	}
	return f.call(ctx, args)
}

func (f *Function) check(args []abi.Value) error {
	if len(args) != len(f.sig.params) {
		return errors.WrongArity([]string{f.name}, len(f.sig.params), len(args))
	}
	for i, v := range args {
		if err := f.checkSlot(i, v); err != nil {
			return err
		}
	}
	return nil
}

func (f *Function) checkSlot(i int, v abi.Value) error {
	want := f.sig.params[i]
	if v.Type() == want {
		return nil
	}
	err := errors.TypeMismatch([]string{f.name, argName(i)}, want.String(), v.Type().String())
	err.Value = i
	return err
}

func argName(i int) string {
	return "arg" + strconv.Itoa(i)
}
