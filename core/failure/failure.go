// Package failure defines the error taxonomy shared by the pipeline runtime.
//
// Every error produced while declaring or running pipelines carries a prefix
// naming the symbol that failed. Argument errors use the "item(arg)" form so a
// failing chain points at the exact stage and argument, e.g.
//
//	padStart(char): char is not 1 length string
package failure

import (
	"errors"
	"fmt"
)

var (
	// ErrDefinition marks errors raised while building namespaces and schemas.
	ErrDefinition = errors.New("definition error")
	// ErrArgument marks missing or malformed pipeline arguments.
	ErrArgument = errors.New("argument error")
	// ErrCoercion marks a subject value that cannot take the shape a stage expects.
	ErrCoercion = errors.New("coercion error")

	// ErrMissingArgument is returned when a required argument is absent.
	ErrMissingArgument = errors.New("missing argument")
	// ErrWrongType is returned when a value cannot be converted.
	ErrWrongType = errors.New("wrong type")
)

// Kind classifies an Error.
type Kind int

const (
	KindDefinition Kind = iota + 1
	KindArgument
	KindCoercion
)

func (k Kind) sentinel() error {
	switch k {
	case KindDefinition:
		return ErrDefinition
	case KindArgument:
		return ErrArgument
	case KindCoercion:
		return ErrCoercion
	}
	return nil
}

func (k Kind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return "error"
}

// Error is a prefixed, classified runtime error.
type Error struct {
	Kind   Kind
	Prefix string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Prefix == "" {
		return msg
	}
	return e.Prefix + ": " + msg
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Definition returns a definition error for the given symbol path.
func Definition(prefix, msg string) error {
	return &Error{Kind: KindDefinition, Prefix: prefix, Msg: msg}
}

// Definitionf formats a definition error.
func Definitionf(prefix, format string, args ...any) error {
	return &Error{Kind: KindDefinition, Prefix: prefix, Msg: fmt.Sprintf(format, args...)}
}

// Argument returns an argument error with a custom message.
func Argument(prefix, msg string) error {
	return &Error{Kind: KindArgument, Prefix: prefix, Msg: msg}
}

// MissingArgument reports an absent required argument.
func MissingArgument(prefix string) error {
	return &Error{Kind: KindArgument, Prefix: prefix, Err: ErrMissingArgument}
}

// WrongType reports an argument conversion failure.
func WrongType(prefix string, err error) error {
	return &Error{Kind: KindArgument, Prefix: prefix, Msg: ErrWrongType.Error(), Err: withWrongType(err)}
}

// Coercion reports a subject value conversion failure.
func Coercion(prefix string, err error) error {
	return &Error{Kind: KindCoercion, Prefix: prefix, Msg: ErrWrongType.Error(), Err: withWrongType(err)}
}

// Prefix attaches a prefix to err. An unprefixed *Error takes the prefix
// directly, so accessor errors read "item(arg): missing argument". An error
// that already has a prefix is nested and keeps its kind:
// "padStart(width): toUpperCase: wrong type: ...".
func Prefix(prefix string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Prefix == "" && fe == err {
			cp := *fe
			cp.Prefix = prefix
			return &cp
		}
		return &Error{Kind: fe.Kind, Prefix: prefix, Err: err}
	}
	if errors.Is(err, ErrMissingArgument) {
		return MissingArgument(prefix)
	}
	return &Error{Kind: KindArgument, Prefix: prefix, Err: err}
}

// AsDefinition prefixes err and classifies it as a definition error, for
// failures raised while definitions load.
func AsDefinition(prefix string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) == KindDefinition {
		return Prefix(prefix, err)
	}
	return &Error{Kind: KindDefinition, Prefix: prefix, Err: err}
}

// KindOf returns the kind of err, or 0 when err is not classified.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// wrongType keeps ErrWrongType reachable through errors.Is without changing
// the cause's message.
type wrongType struct{ cause error }

func (w wrongType) Error() string { return w.cause.Error() }

func (w wrongType) Unwrap() []error { return []error{ErrWrongType, w.cause} }

func withWrongType(err error) error {
	if err == nil || errors.Is(err, ErrWrongType) {
		return err
	}
	return wrongType{cause: err}
}
