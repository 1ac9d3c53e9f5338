package runtime

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/nativecall/abi"
	"github.com/wippyai/nativecall/engine"
	"github.com/wippyai/nativecall/errors"
	"github.com/wippyai/nativecall/jit"
)

// Module is a loaded native module whose exports can be bound by name.
type Module struct {
	module  *engine.Module
	declare func() (map[string]jit.Signature, error)

	sigsOnce sync.Once
	sigs     map[string]jit.Signature
	sigsErr  error

	closeOnce sync.Once
	closeErr  error
}

// Export describes one exported function.
type Export struct {
	Name      string
	Signature jit.Signature
	// Declared is false when Signature was inferred from core types.
	Declared bool
}

func (m *Module) signatures() (map[string]jit.Signature, error) {
	m.sigsOnce.Do(func() {
		m.sigs, m.sigsErr = m.declare()
	})
	return m.sigs, m.sigsErr
}

// Signature returns the declared signature of name, or one inferred from its
// core types if none was declared.
func (m *Module) Signature(name string) (jit.Signature, bool, error) {
	sigs, err := m.signatures()
	if err != nil {
		return jit.Signature{}, false, err
	}
	if sig, ok := sigs[name]; ok {
		return sig, true, nil
	}
	sig, err := m.module.InferSignature(name)
	return sig, false, err
}

// Exports lists the module's exported functions in name order. Exports whose
// signature can be neither found nor inferred are left out.
func (m *Module) Exports() ([]Export, error) {
	if _, err := m.signatures(); err != nil {
		return nil, err
	}

	names := m.module.ExportNames()
	exports := make([]Export, 0, len(names))
	for _, name := range names {
		sig, declared, err := m.Signature(name)
		if err != nil {
			Logger().Debug("export has no signature", zap.String("export", name), zap.Error(err))
			continue
		}
		exports = append(exports, Export{Name: name, Signature: sig, Declared: declared})
	}
	return exports, nil
}

// Function binds the export name with its signature (see Signature).
func (m *Module) Function(name string) (*jit.Function, error) {
	sig, _, err := m.Signature(name)
	if err != nil {
		return nil, err
	}
	return m.module.Function(name, sig)
}

// FunctionWithSignature binds the export name to sig, ignoring any
// declaration. The export's native layout must still match.
func (m *Module) FunctionWithSignature(name string, sig jit.Signature) (*jit.Function, error) {
	return m.module.Function(name, sig)
}

// Close releases the module. Closing twice is a no-op.
func (m *Module) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		m.closeErr = m.module.Close(ctx)
	})
	return m.closeErr
}

var funcPattern = regexp.MustCompile(`(?:export\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// parseWitFunctions extracts function signatures from WIT text.
// Pattern: [export] name: func(params) -> result;
func parseWitFunctions(witText string) (map[string]jit.Signature, error) {
	funcs := make(map[string]jit.Signature)

	matches := funcPattern.FindAllStringSubmatch(witText, -1)
	for _, match := range matches {
		name := match[1]
		paramsStr := strings.TrimSpace(match[2])
		resultStr := strings.TrimSpace(match[3])

		var params []abi.Type
		if paramsStr != "" {
			for _, p := range splitParams(paramsStr) {
				typStr := p
				if idx := strings.LastIndex(p, ":"); idx != -1 {
					typStr = strings.TrimSpace(p[idx+1:])
				}
				t, err := parseWitType(typStr)
				if err != nil {
					return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, name+": parse param type "+typStr)
				}
				params = append(params, t)
			}
		}

		ret := abi.Invalid
		if resultStr != "" && resultStr != "()" {
			if strings.HasPrefix(resultStr, "(") && strings.HasSuffix(resultStr, ")") {
				inner := strings.TrimSpace(strings.TrimPrefix(strings.TrimSuffix(resultStr, ")"), "("))
				if parts := splitParams(inner); len(parts) > 1 {
					return nil, errors.New(errors.PhaseParse, errors.KindUnsupported).
						Path(name).
						Actual(resultStr).
						Detail("multiple results").
						Build()
				}
				resultStr = inner
			}
			if resultStr != "" {
				t, err := parseWitType(resultStr)
				if err != nil {
					return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, name+": parse result type "+resultStr)
				}
				ret = t
			}
		}

		sig, err := jit.NewSignature(ret, params...)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, name)
		}
		funcs[name] = sig
	}

	if len(funcs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no functions found in WIT text")
	}

	return funcs, nil
}

// splitParams splits parameter list, handling nested parens.
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '(', '<':
			depth++
			current.WriteRune(ch)
		case ')', '>':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}

	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}

	return result
}

// parseWitType accepts the WIT types with a kind: s64, f64 and bool.
func parseWitType(s string) (abi.Type, error) {
	t, err := wit.ParseType(strings.TrimSpace(s))
	if err != nil {
		return abi.Invalid, err
	}
	return abi.FromWIT(t)
}
