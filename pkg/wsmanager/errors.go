package wsmanager

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches fatal errors caused by the underlying connection.
	ErrTransport = errors.New("websocket transport error")

	// ErrRetryLimit matches fatal errors caused by exhausting MaxResume.
	ErrRetryLimit = errors.New("websocket retry limit reached")

	// ErrNoTransport is returned by Send when no connection handle exists.
	ErrNoTransport = errors.New("no websocket connection")

	// ErrStopped is returned by Send after the manager has shut down.
	ErrStopped = errors.New("manager stopped")
)

// Kind classifies a fatal Error.
type Kind int

// Fatal error kinds.
const (
	KindTransport Kind = iota + 1
	KindRetryLimit
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRetryLimit:
		return "retry_limit"
	default:
		return "unknown"
	}
}

// Error is the terminal failure of a Manager. Once it is reported the
// manager makes no further connection attempts.
type Error struct {
	Err         error // underlying transport error, nil for KindRetryLimit
	Title       string
	Description string
	Kind        Kind
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Title, e.Description)
}

// Unwrap returns the underlying transport error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches ErrTransport and ErrRetryLimit by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrRetryLimit:
		return e.Kind == KindRetryLimit
	default:
		return false
	}
}

const (
	unknownErrorTitle       = "Unknown WebSocket Error"
	unknownErrorDescription = "Cause from Unknown Error"
)

// transportError builds the fatal error for a failed connection. The title is
// the error text and the description its innermost cause.
func transportError(err error) *Error {
	e := &Error{
		Kind:        KindTransport,
		Err:         err,
		Title:       unknownErrorTitle,
		Description: unknownErrorDescription,
	}
	if err == nil {
		return e
	}
	if msg := err.Error(); msg != "" {
		e.Title = msg
	}
	if cause := rootCause(err); cause != err {
		if msg := cause.Error(); msg != "" {
			e.Description = msg
		}
	}
	return e
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func retryLimitError(retries int) *Error {
	return &Error{
		Kind:        KindRetryLimit,
		Title:       "WebSocket MaxResumeError",
		Description: fmt.Sprintf("Retry limit reached after %d attempts.", retries),
	}
}
