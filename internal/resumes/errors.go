package resumes

import "errors"

// Error kinds. Match with errors.Is against any error returned by the intake
// and hydration pipelines.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUpload       = errors.New("upload failed")
	ErrPersist      = errors.New("persist failed")
	ErrAnalysis     = errors.New("analysis failed")
	ErrNotFound     = errors.New("resume not found")
	ErrBlobRead     = errors.New("blob read failed")
	ErrConversion   = errors.New("conversion failed")
)

// Error carries a user-visible message, its kind and the underlying cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

// NewError builds an Error of the given kind.
func NewError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "resume error"
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// KindOf returns the first known kind err matches, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrInvalidInput, ErrUpload, ErrPersist, ErrAnalysis, ErrNotFound, ErrBlobRead, ErrConversion} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
