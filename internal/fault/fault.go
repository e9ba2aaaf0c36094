// Package fault defines the failure values passed from the data-access layer to the
// view controllers. A Fault is returned, never raised: every repository and store call
// that fails hands back a *Fault with a kind the caller can branch on.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a Fault.
type Kind string

const (
	// Transport means the backend call could not be completed.
	Transport Kind = "transport"
	// Validation means input was rejected locally before any network call.
	Validation Kind = "validation"
	// Rejected means the backend was reachable but reported a logical failure.
	Rejected Kind = "rejected"
	// NotFound means the referenced Id is unknown to the backend.
	NotFound Kind = "not_found"
)

// FieldError is a per-field failure reported by the backend or by local validation.
type FieldError struct {
	FieldLabel string `json:"fieldLabel"`
	Message    string `json:"message"`
}

func (fe FieldError) String() string {
	if fe.FieldLabel == "" {
		return fe.Message
	}
	return fe.FieldLabel + ": " + fe.Message
}

// Fault is a structured failure value.
type Fault struct {
	Kind        Kind
	Message     string
	FieldErrors []FieldError
	cause       error
}

func (f *Fault) Error() string {
	if len(f.FieldErrors) == 0 {
		return f.Message
	}
	parts := make([]string, 0, len(f.FieldErrors))
	for _, fe := range f.FieldErrors {
		parts = append(parts, fe.String())
	}
	if f.Message == "" {
		return strings.Join(parts, "; ")
	}
	return f.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (f *Fault) Unwrap() error { return f.cause }

// Is matches another *Fault by kind so that errors.Is(err, &Fault{Kind: NotFound}) works.
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == f.Kind
}

func newf(kind Kind, cause error, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

func Transportf(cause error, format string, args ...any) *Fault {
	return newf(Transport, cause, format, args...)
}

func Validationf(format string, args ...any) *Fault {
	return newf(Validation, nil, format, args...)
}

func Rejectedf(format string, args ...any) *Fault {
	return newf(Rejected, nil, format, args...)
}

func NotFoundf(format string, args ...any) *Fault {
	return newf(NotFound, nil, format, args...)
}

// WithFields attaches field errors and returns f.
func (f *Fault) WithFields(fields ...FieldError) *Fault {
	f.FieldErrors = append(f.FieldErrors, fields...)
	return f
}

// From converts any error into a Fault. Errors that are not already faults are
// treated as transport failures.
func From(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return Transportf(err, "%s", err.Error())
}

// KindOf reports the kind of err, or "" when err is nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return From(err).Kind
}

// IsNotFound reports whether err is a NotFound fault.
func IsNotFound(err error) bool { return KindOf(err) == NotFound }
