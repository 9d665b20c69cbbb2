package scoring

import (
	"errors"
	"fmt"
)

// ConnectionFailed is the only failure text surfaced for a scoring call.
const ConnectionFailed = "AI Connection Failed"

var errNullBody = errors.New("response body is null")

// RequestError covers every way a call to the scoring service can fail:
// non-2xx status, transport error or an undecodable body. The cause is kept
// for logs and errors.Unwrap but never shown to the user.
type RequestError struct {
	Op     string
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	return ConnectionFailed
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Detail describes the underlying cause for logging.
func (e *RequestError) Detail() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}
