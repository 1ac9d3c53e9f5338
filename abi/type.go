package abi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/nativecall/errors"
)

// Type is the kind of a value passable across the native boundary.
type Type uint8

const (
	// Invalid is the zero Type. It is never a parameter or return type;
	// a signature uses it to mean "no return value".
	Invalid Type = iota
	// Int is a 64-bit signed integer.
	Int
	// Float is a 64-bit IEEE 754 float.
	Float
	// Bool is a boolean, passed as a 32-bit 0/1 integer.
	Bool
)

var typeNames = [...]string{
	Invalid: "invalid",
	Int:     "int",
	Float:   "float",
	Bool:    "bool",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

// Valid reports whether t is a passable kind.
func (t Type) Valid() bool {
	switch t {
	case Int, Float, Bool:
		return true
	default:
		return false
	}
}

// ValueType returns the core value type carrying t in a stack slot.
// It returns 0 for Invalid.
func (t Type) ValueType() api.ValueType {
	switch t {
	case Int:
		return api.ValueTypeI64
	case Float:
		return api.ValueTypeF64
	case Bool:
		return api.ValueTypeI32
	default:
		return 0
	}
}

// FromValueType maps a core value type back to its kind.
// Types without a kind (f32, externref) map to Invalid.
func FromValueType(vt api.ValueType) Type {
	switch vt {
	case api.ValueTypeI64:
		return Int
	case api.ValueTypeF64:
		return Float
	case api.ValueTypeI32:
		return Bool
	default:
		return Invalid
	}
}

// ParseType resolves a type name. Guest annotation names (int, float, bool)
// are accepted as well as their WIT spellings (s64, f64, bool).
func ParseType(name string) (Type, error) {
	name = strings.TrimSpace(name)
	switch name {
	case "int", "i64":
		return Int, nil
	case "float", "f64":
		return Float, nil
	case "bool":
		return Bool, nil
	case "":
		return Invalid, errors.InvalidInput(errors.PhaseParse, "empty type name")
	}

	wt, err := wit.ParseType(name)
	if err != nil {
		return Invalid, errors.ParseFailed("type "+name, err)
	}
	return FromWIT(wt)
}

// FromWIT maps a WIT primitive to its kind.
func FromWIT(t wit.Type) (Type, error) {
	switch t.(type) {
	case wit.S64:
		return Int, nil
	case wit.F64:
		return Float, nil
	case wit.Bool:
		return Bool, nil
	default:
		return Invalid, errors.New(errors.PhaseParse, errors.KindUnsupported).
			Actual(witName(t)).
			Detail("only s64, f64 and bool cross the native boundary").
			Build()
	}
}

func witName(t wit.Type) string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", t)
}
