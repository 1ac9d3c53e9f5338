package codegen

import (
	"strconv"

	"github.com/wippyai/nativecall/abi"
	"github.com/wippyai/nativecall/codegen/internal/binary"
	"github.com/wippyai/nativecall/errors"
)

// Module is a set of functions encoded together, each exported under its name.
type Module struct {
	funcs []*Func
}

// NewModule creates a module holding funcs.
func NewModule(funcs ...*Func) *Module {
	return &Module{funcs: append([]*Func(nil), funcs...)}
}

// Add appends f to the module.
func (m *Module) Add(f *Func) {
	m.funcs = append(m.funcs, f)
}

// Funcs returns the module's functions in export order.
func (m *Module) Funcs() []*Func {
	return append([]*Func(nil), m.funcs...)
}

// Encode type-checks every function and returns the WebAssembly binary.
// The module imports nothing and has no memory.
func (m *Module) Encode() ([]byte, error) {
	if len(m.funcs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseCompile, "module has no functions")
	}

	names := make(map[string]bool, len(m.funcs))
	bodies := make([]*body, len(m.funcs))
	for i, f := range m.funcs {
		if f == nil {
			return nil, errors.InvalidInput(errors.PhaseCompile, "function "+strconv.Itoa(i)+" is nil")
		}
		if names[f.Name] {
			return nil, errors.New(errors.PhaseCompile, errors.KindInvalidInput).
				Path(f.Name).
				Detail("duplicate function name").
				Build()
		}
		names[f.Name] = true

		b, err := generate(f)
		if err != nil {
			return nil, err
		}
		bodies[i] = b
	}

	// Identical signatures share one type entry.
	typeIdx := make([]uint32, len(m.funcs))
	types := binary.NewWriter()
	seen := make(map[string]uint32)
	for i, f := range m.funcs {
		ft := binary.NewWriter()
		writeFuncType(ft, f)
		key := string(ft.Bytes())
		idx, ok := seen[key]
		if !ok {
			idx = uint32(len(seen))
			seen[key] = idx
			types.WriteBytes(ft.Bytes())
		}
		typeIdx[i] = idx
	}

	w := binary.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	sec := binary.NewWriter()
	sec.WriteU32(uint32(len(seen)))
	sec.WriteBytes(types.Bytes())
	w.WriteSection(SectionType, sec.Bytes())

	sec = binary.NewWriter()
	sec.WriteU32(uint32(len(m.funcs)))
	for _, idx := range typeIdx {
		sec.WriteU32(idx)
	}
	w.WriteSection(SectionFunction, sec.Bytes())

	sec = binary.NewWriter()
	sec.WriteU32(uint32(len(m.funcs)))
	for i, f := range m.funcs {
		sec.WriteName(f.Name)
		sec.Byte(KindFunc)
		sec.WriteU32(uint32(i))
	}
	w.WriteSection(SectionExport, sec.Bytes())

	sec = binary.NewWriter()
	sec.WriteU32(uint32(len(bodies)))
	for _, b := range bodies {
		bodyBuf := binary.NewWriter()
		writeLocals(bodyBuf, b.locals)
		bodyBuf.WriteBytes(b.code)
		sec.WriteU32(uint32(bodyBuf.Len()))
		sec.WriteBytes(bodyBuf.Bytes())
	}
	w.WriteSection(SectionCode, sec.Bytes())

	return w.Bytes(), nil
}

// Encode encodes a module holding funcs.
func Encode(funcs ...*Func) ([]byte, error) {
	return NewModule(funcs...).Encode()
}

func writeFuncType(w *binary.Writer, f *Func) {
	w.Byte(FuncTypeByte)
	w.WriteU32(uint32(len(f.Params)))
	for _, p := range f.Params {
		w.Byte(valType(p.Type))
	}
	if f.Return.Valid() {
		w.WriteU32(1)
		w.Byte(valType(f.Return))
	} else {
		w.WriteU32(0)
	}
}

// writeLocals run-length encodes the declared locals.
func writeLocals(w *binary.Writer, locals []abi.Type) {
	type run struct {
		count uint32
		typ   byte
	}
	var runs []run
	for _, t := range locals {
		vt := valType(t)
		if n := len(runs); n > 0 && runs[n-1].typ == vt {
			runs[n-1].count++
			continue
		}
		runs = append(runs, run{count: 1, typ: vt})
	}

	w.WriteU32(uint32(len(runs)))
	for _, r := range runs {
		w.WriteU32(r.count)
		w.Byte(r.typ)
	}
}
