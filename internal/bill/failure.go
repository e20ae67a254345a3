package bill

import "strings"

// Kind classifies a store rejection for display
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindServerError Kind = "server_error"
	KindUnknown     Kind = "unknown"
)

// Classify looks for an HTTP status marker in the error text.
// The store only promises a human-readable message, so this is a substring match.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "404"):
		return KindNotFound
	case strings.Contains(msg, "500"):
		return KindServerError
	default:
		return KindUnknown
	}
}

// Op names the flow step that failed
type Op string

const (
	OpFetch   Op = "fetch"
	OpUpload  Op = "upload"
	OpPersist Op = "persist"
)

// Failure is a classified store rejection surfaced to the view layer
type Failure struct {
	Op      Op
	Kind    Kind
	Message string
	Err     error
}

// NewFailure classifies err for op
func NewFailure(op Op, err error) *Failure {
	f := &Failure{Op: op, Kind: Classify(err), Err: err}
	if err != nil {
		f.Message = err.Error()
	}
	return f
}

func (f *Failure) Error() string {
	return string(f.Op) + ": " + f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}
