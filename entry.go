package nativecall

import "context"

// Entry is native code callable under the stack-slot convention.
//
// On entry stack[0:n] holds the n lowered arguments in declaration order.
// On return stack[0] holds the lowered result, if the function has one.
// len(stack) is at least max(n, 1).
type Entry interface {
	Call(ctx context.Context, stack []uint64) error
}

// EntryFunc adapts an ordinary function to Entry.
type EntryFunc func(ctx context.Context, stack []uint64) error

// Call implements Entry.
func (f EntryFunc) Call(ctx context.Context, stack []uint64) error {
	return f(ctx, stack)
}
