package codegen

import (
	"github.com/wippyai/nativecall/abi"
	"github.com/wippyai/nativecall/codegen/internal/binary"
	"github.com/wippyai/nativecall/errors"
)

type binding struct {
	name  string
	index uint32
	typ   abi.Type
}

// generator type-checks and emits one function body in a single pass.
type generator struct {
	fn     *Func
	code   *binary.Writer
	scope  []binding
	locals []abi.Type
}

type body struct {
	code   []byte
	locals []abi.Type
}

func generate(f *Func) (*body, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	g := &generator{fn: f, code: binary.NewWriter()}
	for i, p := range f.Params {
		g.scope = append(g.scope, binding{name: p.Name, index: uint32(i), typ: p.Type})
	}

	if f.Body != nil {
		t, err := f.Body.gen(g)
		if err != nil {
			return nil, err
		}
		switch {
		case !f.Return.Valid():
			g.code.Byte(OpDrop)
		case t != f.Return:
			return nil, g.mismatch(f.Return, t, "function body "+f.Body.String())
		}
	}
	g.code.Byte(OpEnd)

	return &body{code: g.code.Bytes(), locals: g.locals}, nil
}

func (g *generator) lookup(name string) (binding, bool) {
	for i := len(g.scope) - 1; i >= 0; i-- {
		if g.scope[i].name == name {
			return g.scope[i], true
		}
	}
	return binding{}, false
}

func (g *generator) mismatch(want, got abi.Type, where string) error {
	return errors.New(errors.PhaseCompile, errors.KindTypeMismatch).
		Path(g.fn.Name).
		Expected(want.String()).
		Actual(got.String()).
		Detail("%s", where).
		Build()
}

func (g *generator) unsupported(where string, t abi.Type) error {
	return errors.New(errors.PhaseCompile, errors.KindUnsupported).
		Path(g.fn.Name).
		Actual(t.String()).
		Detail("%s", where).
		Build()
}

func (g *generator) expr(e Expr) (abi.Type, error) {
	if e == nil {
		return abi.Invalid, errors.New(errors.PhaseCompile, errors.KindInvalidInput).
			Path(g.fn.Name).
			Detail("missing expression").
			Build()
	}
	return e.gen(g)
}

// sub runs gen against a scratch buffer and returns what it wrote.
func (g *generator) sub(e Expr) ([]byte, abi.Type, error) {
	saved := g.code
	g.code = binary.NewWriter()
	defer func() { g.code = saved }()

	t, err := g.expr(e)
	if err != nil {
		return nil, abi.Invalid, err
	}
	return g.code.Bytes(), t, nil
}

func valType(t abi.Type) byte {
	switch t {
	case abi.Int:
		return ValI64
	case abi.Float:
		return ValF64
	default:
		return ValI32
	}
}

func (e constExpr) gen(g *generator) (abi.Type, error) {
	switch e.v.Type() {
	case abi.Int:
		n, _ := e.v.Int()
		g.code.Byte(OpI64Const)
		g.code.WriteS64(n)
	case abi.Float:
		f, _ := e.v.Float()
		g.code.Byte(OpF64Const)
		g.code.WriteF64(f)
	case abi.Bool:
		b, _ := e.v.Bool()
		g.code.Byte(OpI32Const)
		if b {
			g.code.WriteS32(1)
		} else {
			g.code.WriteS32(0)
		}
	default:
		return abi.Invalid, errors.New(errors.PhaseCompile, errors.KindInvalidInput).
			Path(g.fn.Name).
			Detail("constant has no kind").
			Build()
	}
	return e.v.Type(), nil
}

func (e refExpr) gen(g *generator) (abi.Type, error) {
	b, ok := g.lookup(e.name)
	if !ok {
		return abi.Invalid, errors.New(errors.PhaseCompile, errors.KindNotFound).
			Path(g.fn.Name).
			Detail("undefined name %q", e.name).
			Build()
	}
	g.code.Byte(OpLocalGet)
	g.code.WriteU32(b.index)
	return b.typ, nil
}

func (e letExpr) gen(g *generator) (abi.Type, error) {
	if e.name == "" {
		return abi.Invalid, errors.InvalidInput(errors.PhaseCompile, "let binding has no name")
	}
	t, err := g.expr(e.value)
	if err != nil {
		return abi.Invalid, err
	}

	index := uint32(len(g.fn.Params) + len(g.locals))
	g.locals = append(g.locals, t)
	g.code.Byte(OpLocalSet)
	g.code.WriteU32(index)

	g.scope = append(g.scope, binding{name: e.name, index: index, typ: t})
	defer func() { g.scope = g.scope[:len(g.scope)-1] }()
	return g.expr(e.body)
}

type binaryOpcode struct {
	op  byte
	ret abi.Type
}

// binaryOpcodes maps each operator and operand kind to its instruction.
// Missing entries are undefined.
var binaryOpcodes = map[BinOp]map[abi.Type]binaryOpcode{
	OpAdd: {abi.Int: {OpI64Add, abi.Int}, abi.Float: {OpF64Add, abi.Float}},
	OpSub: {abi.Int: {OpI64Sub, abi.Int}, abi.Float: {OpF64Sub, abi.Float}},
	OpMul: {abi.Int: {OpI64Mul, abi.Int}, abi.Float: {OpF64Mul, abi.Float}},
	OpDiv: {abi.Int: {OpI64DivS, abi.Int}, abi.Float: {OpF64Div, abi.Float}},
	OpRem: {abi.Int: {OpI64RemS, abi.Int}},
	OpAnd: {abi.Int: {OpI64And, abi.Int}, abi.Bool: {OpI32And, abi.Bool}},
	OpOr:  {abi.Int: {OpI64Or, abi.Int}, abi.Bool: {OpI32Or, abi.Bool}},
	OpXor: {abi.Int: {OpI64Xor, abi.Int}, abi.Bool: {OpI32Xor, abi.Bool}},
	OpShl: {abi.Int: {OpI64Shl, abi.Int}},
	OpShr: {abi.Int: {OpI64ShrS, abi.Int}},
	OpMin: {abi.Float: {OpF64Min, abi.Float}},
	OpMax: {abi.Float: {OpF64Max, abi.Float}},
	OpEq:  {abi.Int: {OpI64Eq, abi.Bool}, abi.Float: {OpF64Eq, abi.Bool}, abi.Bool: {OpI32Eq, abi.Bool}},
	OpNe:  {abi.Int: {OpI64Ne, abi.Bool}, abi.Float: {OpF64Ne, abi.Bool}, abi.Bool: {OpI32Ne, abi.Bool}},
	OpLt:  {abi.Int: {OpI64LtS, abi.Bool}, abi.Float: {OpF64Lt, abi.Bool}},
	OpLe:  {abi.Int: {OpI64LeS, abi.Bool}, abi.Float: {OpF64Le, abi.Bool}},
	OpGt:  {abi.Int: {OpI64GtS, abi.Bool}, abi.Float: {OpF64Gt, abi.Bool}},
	OpGe:  {abi.Int: {OpI64GeS, abi.Bool}, abi.Float: {OpF64Ge, abi.Bool}},
}

func (e binaryExpr) gen(g *generator) (abi.Type, error) {
	tx, err := g.expr(e.x)
	if err != nil {
		return abi.Invalid, err
	}
	ty, err := g.expr(e.y)
	if err != nil {
		return abi.Invalid, err
	}
	if tx != ty {
		return abi.Invalid, g.mismatch(tx, ty, "right operand of "+e.String())
	}

	oc, ok := binaryOpcodes[e.op][tx]
	if !ok {
		return abi.Invalid, g.unsupported("operator "+e.op.String()+" in "+e.String(), tx)
	}
	g.code.Byte(oc.op)
	return oc.ret, nil
}

func (e unaryExpr) gen(g *generator) (abi.Type, error) {
	t, err := g.expr(e.x)
	if err != nil {
		return abi.Invalid, err
	}

	switch {
	case e.op == OpNeg && t == abi.Int:
		g.code.Byte(OpI64Const)
		g.code.WriteS64(-1)
		g.code.Byte(OpI64Mul)
		return abi.Int, nil
	case e.op == OpNeg && t == abi.Float:
		g.code.Byte(OpF64Neg)
		return abi.Float, nil
	case e.op == OpNot && t == abi.Bool:
		g.code.Byte(OpI32Eqz)
		return abi.Bool, nil
	case e.op == OpAbs && t == abi.Float:
		g.code.Byte(OpF64Abs)
		return abi.Float, nil
	case e.op == OpSqrt && t == abi.Float:
		g.code.Byte(OpF64Sqrt)
		return abi.Float, nil
	case e.op == OpToFloat && t == abi.Int:
		g.code.Byte(OpF64ConvertI64S)
		return abi.Float, nil
	case e.op == OpToFloat && t == abi.Float:
		return abi.Float, nil
	case e.op == OpToInt && t == abi.Float:
		g.code.Byte(OpPrefixMisc)
		g.code.WriteU32(MiscI64TruncSatF64S)
		return abi.Int, nil
	case e.op == OpToInt && t == abi.Bool:
		g.code.Byte(OpI64ExtendI32U)
		return abi.Int, nil
	case e.op == OpToInt && t == abi.Int:
		return abi.Int, nil
	}
	return abi.Invalid, g.unsupported("operator "+e.op.String()+" in "+e.String(), t)
}

func (e ifExpr) gen(g *generator) (abi.Type, error) {
	tc, err := g.expr(e.cond)
	if err != nil {
		return abi.Invalid, err
	}
	if tc != abi.Bool {
		return abi.Invalid, g.mismatch(abi.Bool, tc, "condition of "+e.String())
	}

	thenCode, tt, err := g.sub(e.then)
	if err != nil {
		return abi.Invalid, err
	}
	elseCode, te, err := g.sub(e.els)
	if err != nil {
		return abi.Invalid, err
	}
	if tt != te {
		return abi.Invalid, g.mismatch(tt, te, "else branch of "+e.String())
	}

	g.code.Byte(OpIf)
	g.code.Byte(valType(tt))
	g.code.WriteBytes(thenCode)
	g.code.Byte(OpElse)
	g.code.WriteBytes(elseCode)
	g.code.Byte(OpEnd)
	return tt, nil
}
