package codegen

import (
	"fmt"

	"github.com/wippyai/nativecall/abi"
)

// Expr is a typed expression. Every expression yields exactly one value;
// its kind is fixed by the kinds of its operands and checked when the
// enclosing function is generated.
type Expr interface {
	fmt.Stringer
	gen(g *generator) (abi.Type, error)
}

// BinOp is a binary operator.
type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpMin
	OpMax
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var binOpNames = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpRem: "%",
	OpAnd: "&", OpOr: "|", OpXor: "^", OpShl: "<<", OpShr: ">>",
	OpMin: "min", OpMax: "max",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
}

func (op BinOp) String() string {
	if int(op) < len(binOpNames) {
		return binOpNames[op]
	}
	return fmt.Sprintf("binop(%d)", uint8(op))
}

// UnOp is a unary operator.
type UnOp uint8

const (
	OpNeg UnOp = iota
	OpNot
	OpAbs
	OpSqrt
	OpToFloat
	OpToInt
)

var unOpNames = [...]string{
	OpNeg: "neg", OpNot: "not", OpAbs: "abs", OpSqrt: "sqrt",
	OpToFloat: "float", OpToInt: "int",
}

func (op UnOp) String() string {
	if int(op) < len(unOpNames) {
		return unOpNames[op]
	}
	return fmt.Sprintf("unop(%d)", uint8(op))
}

type constExpr struct {
	v abi.Value
}

// Const yields v. v must carry a kind.
func Const(v abi.Value) Expr { return constExpr{v: v} }

// IntConst yields an int.
func IntConst(v int64) Expr { return constExpr{v: abi.IntValue(v)} }

// FloatConst yields a float.
func FloatConst(v float64) Expr { return constExpr{v: abi.FloatValue(v)} }

// BoolConst yields a bool.
func BoolConst(v bool) Expr { return constExpr{v: abi.BoolValue(v)} }

func (e constExpr) String() string { return e.v.String() }

type refExpr struct {
	name string
}

// Ref reads a parameter or a Let binding by name. The innermost binding wins.
func Ref(name string) Expr { return refExpr{name: name} }

func (e refExpr) String() string { return e.name }

type letExpr struct {
	name  string
	value Expr
	body  Expr
}

// Let evaluates value once, binds it to name and yields body.
func Let(name string, value, body Expr) Expr {
	return letExpr{name: name, value: value, body: body}
}

func (e letExpr) String() string {
	return fmt.Sprintf("let %s = %s in %s", e.name, e.value, e.body)
}

type binaryExpr struct {
	op   BinOp
	x, y Expr
}

// Binary applies op to x and y, which must have the same kind.
func Binary(op BinOp, x, y Expr) Expr { return binaryExpr{op: op, x: x, y: y} }

func Add(x, y Expr) Expr { return Binary(OpAdd, x, y) }
func Sub(x, y Expr) Expr { return Binary(OpSub, x, y) }
func Mul(x, y Expr) Expr { return Binary(OpMul, x, y) }

// Div divides. Integer division by zero, and MinInt64 / -1, trap.
func Div(x, y Expr) Expr { return Binary(OpDiv, x, y) }

// Rem is the integer remainder; it takes the sign of x.
func Rem(x, y Expr) Expr { return Binary(OpRem, x, y) }
func And(x, y Expr) Expr { return Binary(OpAnd, x, y) }
func Or(x, y Expr) Expr  { return Binary(OpOr, x, y) }
func Xor(x, y Expr) Expr { return Binary(OpXor, x, y) }
func Shl(x, y Expr) Expr { return Binary(OpShl, x, y) }

// Shr is an arithmetic shift.
func Shr(x, y Expr) Expr { return Binary(OpShr, x, y) }
func Min(x, y Expr) Expr { return Binary(OpMin, x, y) }
func Max(x, y Expr) Expr { return Binary(OpMax, x, y) }
func Eq(x, y Expr) Expr  { return Binary(OpEq, x, y) }
func Ne(x, y Expr) Expr  { return Binary(OpNe, x, y) }
func Lt(x, y Expr) Expr  { return Binary(OpLt, x, y) }
func Le(x, y Expr) Expr  { return Binary(OpLe, x, y) }
func Gt(x, y Expr) Expr  { return Binary(OpGt, x, y) }
func Ge(x, y Expr) Expr  { return Binary(OpGe, x, y) }

func (e binaryExpr) String() string {
	if e.op == OpMin || e.op == OpMax {
		return fmt.Sprintf("%s(%s, %s)", e.op, e.x, e.y)
	}
	return fmt.Sprintf("(%s %s %s)", e.x, e.op, e.y)
}

type unaryExpr struct {
	op UnOp
	x  Expr
}

// Unary applies op to x.
func Unary(op UnOp, x Expr) Expr { return unaryExpr{op: op, x: x} }

func Neg(x Expr) Expr  { return Unary(OpNeg, x) }
func Not(x Expr) Expr  { return Unary(OpNot, x) }
func Abs(x Expr) Expr  { return Unary(OpAbs, x) }
func Sqrt(x Expr) Expr { return Unary(OpSqrt, x) }

// ToFloat converts an int to the nearest float.
func ToFloat(x Expr) Expr { return Unary(OpToFloat, x) }

// ToInt truncates a float toward zero, saturating at the int range, with
// NaN becoming 0. A bool becomes 0 or 1.
func ToInt(x Expr) Expr { return Unary(OpToInt, x) }

func (e unaryExpr) String() string {
	return fmt.Sprintf("%s(%s)", e.op, e.x)
}

type ifExpr struct {
	cond, then, els Expr
}

// If yields then when cond is true and els otherwise. Only the chosen branch
// is evaluated. Both branches must have the same kind.
func If(cond, then, els Expr) Expr { return ifExpr{cond: cond, then: then, els: els} }

func (e ifExpr) String() string {
	return fmt.Sprintf("if %s then %s else %s", e.cond, e.then, e.els)
}
