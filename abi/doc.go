// Package abi defines the values that cross the native call boundary.
//
// Every argument and result is an abi.Value: a kind (abi.Type) paired with a
// payload. There is no implicit conversion between kinds; an Int is never
// accepted where a Float is declared.
//
// Each kind occupies one 64-bit stack slot:
//
//	Kind    Core Representation    Slot Encoding
//	─────────────────────────────────────────────
//	int     i64                    two's complement
//	float   f64                    IEEE 754 bits
//	bool    i32                    0 or 1 in the low 32 bits
//
// New kinds are added here (constant, ValueType, Lift) without touching
// call sites.
package abi
