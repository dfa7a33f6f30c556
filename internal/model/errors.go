package model

import "fmt"

// ErrorKind classifies a CascadeError per the error handling design:
// each kind has a fixed recoverability and UI treatment.
type ErrorKind string

const (
	ErrStorage    ErrorKind = "storage"
	ErrParse      ErrorKind = "parse"
	ErrLLM        ErrorKind = "llm"
	ErrFile       ErrorKind = "file"
	ErrCommand    ErrorKind = "command"
	ErrConflict   ErrorKind = "conflict"
	ErrValidation ErrorKind = "validation"
	ErrTimeout    ErrorKind = "timeout"
)

// Recoverable reports whether Retry/Skip make sense for this kind.
// Storage failures are the sole non-recoverable kind: every other kind
// is handled at a tool or transport boundary without corrupting state.
func (k ErrorKind) Recoverable() bool {
	return k != ErrStorage
}

// CascadeError is the single structured error type threaded through
// tool execution, the transport boundary, and the agent loop, the way
// the teacher's ProviderError carries a Code across the LLM boundary
// alone -- CascadeError plays that role for the whole core.
type CascadeError struct {
	Kind       ErrorKind
	Message    string
	Suggestion string
	Err        error
}

func (e *CascadeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CascadeError) Unwrap() error {
	return e.Err
}

// NewError constructs a CascadeError of the given kind.
func NewError(kind ErrorKind, message string, cause error) *CascadeError {
	return &CascadeError{Kind: kind, Message: message, Err: cause}
}

// WithSuggestion attaches remediation text and returns the error.
func (e *CascadeError) WithSuggestion(s string) *CascadeError {
	e.Suggestion = s
	return e
}

// AsCascadeError extracts a *CascadeError from err, if it is one.
func AsCascadeError(err error) (*CascadeError, bool) {
	ce, ok := err.(*CascadeError)
	return ce, ok
}
