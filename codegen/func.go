package codegen

import (
	"strconv"

	"github.com/wippyai/nativecall/abi"
	"github.com/wippyai/nativecall/errors"
	"github.com/wippyai/nativecall/jit"
)

// Param is a named, typed function parameter.
type Param struct {
	Name string
	Type abi.Type
}

// Func is a function definition. A Func with Return abi.Invalid returns
// nothing; its Body, if any, is evaluated for effect (traps) and discarded.
type Func struct {
	Name   string
	Params []Param
	Return abi.Type
	Body   Expr
}

// NewFunc builds a function definition. Nothing is checked until the
// function is encoded.
func NewFunc(name string, params []Param, ret abi.Type, body Expr) *Func {
	return &Func{
		Name:   name,
		Params: append([]Param(nil), params...),
		Return: ret,
		Body:   body,
	}
}

// Signature returns the signature native code generated from f has.
func (f *Func) Signature() (jit.Signature, error) {
	params := make([]abi.Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type
	}
	sig, err := jit.NewSignature(f.Return, params...)
	if err != nil {
		return jit.Signature{}, errors.Wrap(errors.PhaseCompile, errors.KindInvalidInput, err, "function "+strconv.Quote(f.Name))
	}
	return sig, nil
}

func (f *Func) validate() error {
	if f.Name == "" {
		return errors.InvalidInput(errors.PhaseCompile, "function has no name")
	}
	seen := make(map[string]bool, len(f.Params))
	for i, p := range f.Params {
		if p.Name == "" {
			return errors.New(errors.PhaseCompile, errors.KindInvalidInput).
				Path(f.Name, "param"+strconv.Itoa(i)).
				Detail("parameter has no name").
				Build()
		}
		if seen[p.Name] {
			return errors.New(errors.PhaseCompile, errors.KindInvalidInput).
				Path(f.Name, p.Name).
				Detail("duplicate parameter").
				Build()
		}
		seen[p.Name] = true
		if !p.Type.Valid() {
			return errors.New(errors.PhaseCompile, errors.KindInvalidInput).
				Path(f.Name, p.Name).
				Actual(p.Type.String()).
				Detail("parameter needs a kind").
				Build()
		}
	}
	if f.Return != abi.Invalid && !f.Return.Valid() {
		return errors.New(errors.PhaseCompile, errors.KindInvalidInput).
			Path(f.Name).
			Actual(f.Return.String()).
			Detail("unknown return kind").
			Build()
	}
	if f.Return.Valid() && f.Body == nil {
		return errors.New(errors.PhaseCompile, errors.KindInvalidInput).
			Path(f.Name).
			Expected(f.Return.String()).
			Detail("function returns a value but has no body").
			Build()
	}
	return nil
}
