package jit

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/nativecall/abi"
	"github.com/wippyai/nativecall/errors"
)

// call is the only path into native code. Callers have already checked
// values against f.sig.
func (f *Function) call(ctx context.Context, values []abi.Value) (abi.Value, error) {
	stack := make([]uint64, max(len(values), 1))
	for i, v := range values {
		stack[i] = v.Lower()
	}

	if err := f.entry.Call(ctx, stack); err != nil {
		Logger().Warn("native call failed",
			zap.String("func", f.name),
			zap.Stringer("func_id", f.id),
			zap.Error(err))
		return abi.Value{}, errors.Trap([]string{f.name}, err)
	}

	// Whatever the code left in stack[0] is meaningless without a declared
	// return kind.
	if !f.sig.HasReturn() {
		return abi.Value{}, nil
	}
	return abi.Lift(f.sig.ret, stack[0]), nil
}
