package jit

import (
	"github.com/wippyai/nativecall/abi"
	"github.com/wippyai/nativecall/errors"
)

// ArgsBuilder accumulates the arguments of one call, validating each slot as
// it is set. A failed Set leaves every slot as it was, so a call site can
// retry one bad argument without re-evaluating the others.
//
// An ArgsBuilder is single-use and belongs to one goroutine. IntoArgs
// consumes it.
type ArgsBuilder struct {
	fn       *Function
	slots    []abi.Value
	set      []bool
	consumed bool
}

// NewArgsBuilder returns a builder with every slot of fn unset.
func NewArgsBuilder(fn *Function) *ArgsBuilder {
	n := fn.sig.Arity()
	return &ArgsBuilder{
		fn:    fn,
		slots: make([]abi.Value, n),
		set:   make([]bool, n),
	}
}

// Len returns the number of slots.
func (b *ArgsBuilder) Len() int {
	return len(b.slots)
}

// Set stores v in slot index. It fails with errors.ErrIndexOutOfRange or
// errors.ErrArgumentTypeMismatch without changing any slot. Setting a slot
// that is already set overwrites it.
func (b *ArgsBuilder) Set(index int, v abi.Value) error {
	if b.consumed {
		return errors.Consumed("args builder for " + b.fn.name)
	}
	if index < 0 || index >= len(b.slots) {
		return errors.OutOfBounds(errors.PhaseValidate, []string{b.fn.name}, index, len(b.slots))
	}
	if err := b.fn.checkSlot(index, v); err != nil {
		return err
	}
	b.slots[index] = v
	b.set[index] = true
	return nil
}

// IsSet reports whether slot index holds an accepted value.
func (b *ArgsBuilder) IsSet(index int) bool {
	if b.consumed || index < 0 || index >= len(b.set) {
		return false
	}
	return b.set[index]
}

// IntoArgs consumes the builder. It returns the completed Args if every slot
// is set, and false otherwise. The builder cannot be used afterwards in
// either case.
func (b *ArgsBuilder) IntoArgs() (*Args, bool) {
	if b.consumed {
		return nil, false
	}
	b.consumed = true

	slots, set := b.slots, b.set
	b.slots, b.set = nil, nil

	for _, ok := range set {
		if !ok {
			return nil, false
		}
	}
	return &Args{fn: b.fn, values: slots}, true
}
