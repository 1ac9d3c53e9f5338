package jit

import (
	"slices"
	"strings"

	"github.com/wippyai/nativecall/abi"
	"github.com/wippyai/nativecall/errors"
)

// Signature is the ordered parameter kinds and optional return kind of one
// compiled function. Arity is fixed: there are no variadic or optional
// parameters. A Signature is immutable.
type Signature struct {
	params []abi.Type
	ret    abi.Type
}

// NewSignature builds a signature. ret is abi.Invalid for a function that
// returns nothing.
func NewSignature(ret abi.Type, params ...abi.Type) (Signature, error) {
	if ret != abi.Invalid && !ret.Valid() {
		return Signature{}, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Path("return").
			Actual(ret.String()).
			Detail("unknown return kind").
			Build()
	}
	for i, p := range params {
		if !p.Valid() {
			return Signature{}, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
				Path(argName(i)).
				Actual(p.String()).
				Detail("parameter kind must be int, float or bool").
				Build()
		}
	}
	return Signature{params: slices.Clone(params), ret: ret}, nil
}

// MustSignature is like NewSignature but panics on error.
func MustSignature(ret abi.Type, params ...abi.Type) Signature {
	sig, err := NewSignature(ret, params...)
	if err != nil {
		panic(err)
	}
	return sig
}

// Arity returns the number of parameters.
func (s Signature) Arity() int {
	return len(s.params)
}

// Param returns the kind of parameter i.
func (s Signature) Param(i int) abi.Type {
	return s.params[i]
}

// Params returns a copy of the parameter kinds.
func (s Signature) Params() []abi.Type {
	return slices.Clone(s.params)
}

// Return returns the return kind, or abi.Invalid if there is none.
func (s Signature) Return() abi.Type {
	return s.ret
}

// HasReturn reports whether the signature declares a return kind.
func (s Signature) HasReturn() bool {
	return s.ret.Valid()
}

// Equal reports whether both signatures declare the same kinds.
func (s Signature) Equal(o Signature) bool {
	return s.ret == o.ret && slices.Equal(s.params, o.params)
}

// String formats the signature as "(int, float) -> int".
func (s Signature) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range s.params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	if s.HasReturn() {
		b.WriteString(" -> ")
		b.WriteString(s.ret.String())
	}
	return b.String()
}

// ParseSignature parses the format produced by String. Parameter names are
// allowed and ignored: "(a: int, b: float) -> int".
func ParseSignature(text string) (Signature, error) {
	text = strings.TrimSpace(text)
	paramsText, retText, hasRet := strings.Cut(text, "->")
	paramsText = strings.TrimSpace(paramsText)

	if !strings.HasPrefix(paramsText, "(") || !strings.HasSuffix(paramsText, ")") {
		return Signature{}, errors.InvalidInput(errors.PhaseParse, "signature must start with a parenthesized parameter list: "+text)
	}
	inner := strings.TrimSpace(paramsText[1 : len(paramsText)-1])

	var params []abi.Type
	if inner != "" {
		for _, part := range strings.Split(inner, ",") {
			typeName := part
			if _, after, ok := strings.Cut(part, ":"); ok {
				typeName = after
			}
			t, err := abi.ParseType(typeName)
			if err != nil {
				return Signature{}, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parameter "+strings.TrimSpace(part))
			}
			params = append(params, t)
		}
	}

	ret := abi.Invalid
	if hasRet {
		retText = strings.TrimSpace(retText)
		if retText != "()" {
			t, err := abi.ParseType(retText)
			if err != nil {
				return Signature{}, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "return type")
			}
			ret = t
		}
	}

	return NewSignature(ret, params...)
}
