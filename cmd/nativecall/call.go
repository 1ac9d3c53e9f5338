package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/wippyai/nativecall/abi"
	"github.com/wippyai/nativecall/jit"
)

// splitArgs splits a comma-separated -args value. An empty string means no
// arguments.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseArgs parses each literal against the matching parameter of sig.
func parseArgs(sig jit.Signature, literals []string) ([]abi.Value, error) {
	if len(literals) != sig.Arity() {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", sig, sig.Arity(), len(literals))
	}
	values := make([]abi.Value, len(literals))
	for i, lit := range literals {
		v, err := abi.ParseValue(sig.Param(i), lit)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %q is not a valid %s", i, lit, sig.Param(i))
		}
		values[i] = v
	}
	return values, nil
}

// call parses literals and invokes fn with them through an ArgsBuilder.
func call(ctx context.Context, fn *jit.Function, literals []string) (abi.Value, error) {
	values, err := parseArgs(fn.Signature(), literals)
	if err != nil {
		return abi.Value{}, err
	}

	b := fn.ArgsBuilder()
	for i, v := range values {
		if err := b.Set(i, v); err != nil {
			return abi.Value{}, err
		}
	}
	args, ok := b.IntoArgs()
	if !ok {
		return abi.Value{}, fmt.Errorf("%s: not every argument was set", fn.Name())
	}
	return args.Invoke(ctx)
}

// formatResult renders a call result; a function with no return prints "()".
func formatResult(v abi.Value) string {
	if !v.IsValid() {
		return "()"
	}
	return v.String()
}
