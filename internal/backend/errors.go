package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAccountBlocked matches responses flagged accountBlocked by the backend.
	ErrAccountBlocked = errors.New("account blocked")
	// ErrUnauthorized matches a missing, expired or rejected bearer token.
	ErrUnauthorized = errors.New("unauthorized")
)

// RequestError is any failed backend call: transport errors, non-2xx
// statuses and envelopes with success=false.
type RequestError struct {
	Op      string
	Status  int
	Message string
	Blocked bool
	Err     error
}

func (e *RequestError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("backend %s: %s (status %d)", e.Op, e.Message, e.Status)
	}
	return fmt.Sprintf("backend %s: status %d", e.Op, e.Status)
}

func (e *RequestError) Unwrap() error { return e.Err }

func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrAccountBlocked:
		return e.Blocked
	case ErrUnauthorized:
		return !e.Blocked && e.Status == http.StatusUnauthorized
	}
	return false
}

// UserMessage extracts a message fit for a notification.
func UserMessage(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		if re.Message != "" {
			return re.Message
		}
		if re.Err != nil {
			return "The blood bank service is unreachable, please try again."
		}
		if re.Status != 0 {
			return fmt.Sprintf("The blood bank service answered %d %s.", re.Status, http.StatusText(re.Status))
		}
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
