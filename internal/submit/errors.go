package submit

import "fmt"

type Kind string

const (
	// KindNetwork: the backend could not be reached.
	KindNetwork Kind = "network"
	// KindStatus: the backend answered with a non-2xx status.
	KindStatus Kind = "status"
	// KindDecode: the backend answer could not be read.
	KindDecode Kind = "decode"
	// KindPublish: the message broker refused the payload.
	KindPublish Kind = "publish"
)

// TransportError is a failed hand-off. Message carries the backend's own
// explanation when it sent one.
type TransportError struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Kind == KindStatus && e.Message != "":
		return fmt.Sprintf("submit: backend returned %d: %s", e.StatusCode, e.Message)
	case e.Kind == KindStatus:
		return fmt.Sprintf("submit: backend returned %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("submit: %s: %v", e.Kind, e.Err)
	default:
		return "submit: " + string(e.Kind)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }
