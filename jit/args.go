package jit

import (
	"context"
	"slices"

	"github.com/wippyai/nativecall/abi"
	"github.com/wippyai/nativecall/errors"
)

// Args is a complete, validated argument list for one function. It is only
// obtainable from ArgsBuilder.IntoArgs, so every Args matches its function's
// signature in count and kinds.
type Args struct {
	fn     *Function
	values []abi.Value
}

// Function returns the function the arguments were built for.
func (a *Args) Function() *Function {
	return a.fn
}

// Values returns a copy of the arguments in declaration order.
func (a *Args) Values() []abi.Value {
	return slices.Clone(a.values)
}

// Invoke calls the function with the arguments. It is equivalent to
// Function.Invoke with the same values.
func (a *Args) Invoke(ctx context.Context) (abi.Value, error) {
	if a == nil || a.fn == nil {
		return abi.Value{}, errors.InvalidInput(errors.PhaseInvoke, "args were not built by an ArgsBuilder")
	}
	return a.fn.call(ctx, a.values)
}
