package abi

import (
	"strconv"

	"github.com/tetratelabs/wazero/api"
)

// Value is a concrete value of one Type. Values are comparable with ==;
// two values are equal when both kind and payload bits are equal.
//
// The zero Value carries no kind and stands for "no value". It is never
// accepted as an argument.
type Value struct {
	bits uint64
	typ  Type
}

// IntValue returns an Int value.
func IntValue(v int64) Value {
	return Value{typ: Int, bits: uint64(v)}
}

// FloatValue returns a Float value.
func FloatValue(v float64) Value {
	return Value{typ: Float, bits: api.EncodeF64(v)}
}

// BoolValue returns a Bool value.
func BoolValue(v bool) Value {
	if v {
		return Value{typ: Bool, bits: 1}
	}
	return Value{typ: Bool}
}

// Type returns the value's kind.
func (v Value) Type() Type {
	return v.typ
}

// IsValid reports whether v carries a value.
func (v Value) IsValid() bool {
	return v.typ.Valid()
}

// Int returns the payload of an Int value.
func (v Value) Int() (int64, bool) {
	if v.typ != Int {
		return 0, false
	}
	return int64(v.bits), true
}

// Float returns the payload of a Float value.
func (v Value) Float() (float64, bool) {
	if v.typ != Float {
		return 0, false
	}
	return api.DecodeF64(v.bits), true
}

// Bool returns the payload of a Bool value.
func (v Value) Bool() (bool, bool) {
	if v.typ != Bool {
		return false, false
	}
	return v.bits != 0, true
}

func (v Value) String() string {
	switch v.typ {
	case Int:
		return "int(" + strconv.FormatInt(int64(v.bits), 10) + ")"
	case Float:
		return "float(" + strconv.FormatFloat(api.DecodeF64(v.bits), 'g', -1, 64) + ")"
	case Bool:
		return "bool(" + strconv.FormatBool(v.bits != 0) + ")"
	default:
		return "none"
	}
}

// Lower encodes v into a stack slot.
func (v Value) Lower() uint64 {
	return v.bits
}

// Lift decodes a stack slot written by native code as a value of kind t.
// Only the bits t occupies are read: a Bool reads the low 32 bits.
func Lift(t Type, slot uint64) Value {
	switch t {
	case Int:
		return Value{typ: Int, bits: slot}
	case Float:
		return Value{typ: Float, bits: slot}
	case Bool:
		return BoolValue(api.DecodeU32(slot) != 0)
	default:
		return Value{}
	}
}

// ParseValue parses a literal of kind t, as typed on a command line.
func ParseValue(t Type, s string) (Value, error) {
	switch t {
	case Int:
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return Value{}, err
		}
		return IntValue(n), nil
	case Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, err
		}
		return FloatValue(f), nil
	case Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	default:
		return Value{}, strconv.ErrSyntax
	}
}
