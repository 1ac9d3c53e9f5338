package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseValidate Phase = "validate" // argument checks before a native call
	PhaseInvoke   Phase = "invoke"   // the native call itself
	PhaseCompile  Phase = "compile"  // lowering and native compilation
	PhaseLoad     Phase = "load"     // module loading and export binding
	PhaseParse    Phase = "parse"    // signature and WIT text parsing
	PhaseConfig   Phase = "config"   // manifest and configuration
)

// Kind categorizes the error
type Kind string

const (
	KindWrongArity        Kind = "wrong_arity"
	KindTypeMismatch      Kind = "type_mismatch"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindConsumed          Kind = "consumed"
	KindTrap              Kind = "trap"
	KindSignatureMismatch Kind = "signature_mismatch"
	KindNotFound          Kind = "not_found"
	KindInvalidInput      Kind = "invalid_input"
	KindInvalidData       Kind = "invalid_data"
	KindUnsupported       Kind = "unsupported"
)

// Sentinels for errors.Is. Matching is by Phase and Kind only, so an error
// carrying a path or detail still matches its sentinel.
var (
	// ErrWrongNumberOfArguments reports that the supplied argument count
	// differs from the declared parameter count.
	ErrWrongNumberOfArguments = &Error{Phase: PhaseValidate, Kind: KindWrongArity}

	// ErrArgumentTypeMismatch reports that a supplied value's kind differs
	// from the declared kind at its position.
	ErrArgumentTypeMismatch = &Error{Phase: PhaseValidate, Kind: KindTypeMismatch}

	// ErrIndexOutOfRange reports a builder slot index outside the signature.
	ErrIndexOutOfRange = &Error{Phase: PhaseValidate, Kind: KindOutOfBounds}

	// ErrBuilderConsumed reports use of an args builder after IntoArgs.
	ErrBuilderConsumed = &Error{Phase: PhaseValidate, Kind: KindConsumed}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Expected string
	Actual   string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Expected != "" || e.Actual != "" {
		b.WriteString(": ")
		if e.Expected != "" && e.Actual != "" {
			b.WriteString("expected ")
			b.WriteString(e.Expected)
			b.WriteString(", got ")
			b.WriteString(e.Actual)
		} else if e.Expected != "" {
			b.WriteString("expected ")
			b.WriteString(e.Expected)
		} else {
			b.WriteString("got ")
			b.WriteString(e.Actual)
		}
	}

	if e.Detail != "" {
		if e.Expected != "" || e.Actual != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the location path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Expected sets the declared type name
func (b *Builder) Expected(t string) *Builder {
	b.err.Expected = t
	return b
}

// Actual sets the supplied type name
func (b *Builder) Actual(t string) *Builder {
	b.err.Actual = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// WrongArity creates an argument count error
func WrongArity(path []string, want, got int) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindWrongArity,
		Path:   path,
		Detail: fmt.Sprintf("expected %d argument(s), got %d", want, got),
		Value:  got,
	}
}

// TypeMismatch creates an argument type mismatch error
func TypeMismatch(path []string, expected, actual string) *Error {
	return &Error{
		Phase:    PhaseValidate,
		Kind:     KindTypeMismatch,
		Path:     path,
		Expected: expected,
		Actual:   actual,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// Consumed creates a use-after-consume error
func Consumed(what string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindConsumed,
		Detail: fmt.Sprintf("%s already consumed", what),
	}
}

// Trap wraps a failure reported by native code during a call
func Trap(path []string, cause error) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindTrap,
		Path:   path,
		Detail: "native call failed",
		Cause:  cause,
	}
}

// SignatureMismatch reports that native code does not have the layout a
// declared signature requires.
func SignatureMismatch(path []string, expected, actual string) *Error {
	return &Error{
		Phase:    PhaseLoad,
		Kind:     KindSignatureMismatch,
		Path:     path,
		Expected: expected,
		Actual:   actual,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
