package recommendations

import "errors"

// ErrNotFound is returned by a Repo when no record matches the query.
var ErrNotFound = errors.New("not found")

// Error kinds. Match with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrUpstream      = errors.New("upstream error")
	ErrParse         = errors.New("parse error")
	ErrStore         = errors.New("storage error")
	ErrConfiguration = errors.New("configuration error")
)

// Error codes used in the HTTP error envelope.
const (
	ErrorCodeValidation    = "VALIDATION_ERROR"
	ErrorCodeUpstream      = "UPSTREAM_ERROR"
	ErrorCodeParse         = "PARSE_ERROR"
	ErrorCodeStore         = "STORAGE_ERROR"
	ErrorCodeConfiguration = "CONFIGURATION_ERROR"
	ErrorCodeInternal      = "INTERNAL_ERROR"
)

// Error is returned by Service and ParseItems. Raw holds the model output
// for parse failures.
type Error struct {
	Kind    error
	Message string
	Raw     string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Code maps the kind to its envelope code.
func (e *Error) Code() string {
	switch e.Kind {
	case ErrValidation:
		return ErrorCodeValidation
	case ErrUpstream:
		return ErrorCodeUpstream
	case ErrParse:
		return ErrorCodeParse
	case ErrStore:
		return ErrorCodeStore
	case ErrConfiguration:
		return ErrorCodeConfiguration
	default:
		return ErrorCodeInternal
	}
}

func newError(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func parseError(raw, message string, err error) *Error {
	return &Error{Kind: ErrParse, Message: message, Raw: raw, Err: err}
}
