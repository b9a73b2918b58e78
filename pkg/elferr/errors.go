// Package elferr defines the error taxonomy shared by every elfscope
// core package: input/format/architecture errors are fatal, decode
// errors are local and recoverable, lookup errors never leave the API
// as an error value at all, and internal invariant errors trigger one
// cache-invalidated retry before they are raised.
package elferr

import "fmt"

// Kind classifies an error without requiring callers to match strings.
type Kind int

const (
	KindInput Kind = iota
	KindFormat
	KindUnsupportedArchitecture
	KindDecode
	KindLookup
	KindInternalInvariant
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindFormat:
		return "format"
	case KindUnsupportedArchitecture:
		return "unsupported_architecture"
	case KindDecode:
		return "decode"
	case KindLookup:
		return "lookup"
	case KindInternalInvariant:
		return "internal_invariant"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can classify
// it with errors.As instead of matching message text.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Make wraps err with kind and a formatted detail message, following
// the teacher's makeError pattern (cpu/errors.go), with the detail
// spread fixed: args are expanded into the format string, not passed
// as a single slice value.
func Make(kind Kind, err error, detailsBody string, args ...any) error {
	if err == nil {
		return &Error{
			Kind:  kind,
			cause: fmt.Errorf(detailsBody, args...),
		}
	}
	return &Error{
		Kind:  kind,
		cause: fmt.Errorf(detailsBody+": %w", append(args, err)...),
	}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if asErr, ok := err.(*Error); ok {
			e = asErr
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
