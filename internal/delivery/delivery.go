// Package delivery defines the narrow contract against the delivery channel
// and the classification of its errors. The engine never sees the wire
// protocol behind Send.
package delivery

import (
	"context"
	"strings"
)

// Client transmits one message over the channel. Implementations live
// outside this core; the worker wires a real one, tests and the seeder use
// the mock.
type Client interface {
	// Send delivers text to the recipient and returns the channel's message id.
	Send(ctx context.Context, recipientID, text string) (string, error)
}

// Error is a delivery failure tagged with its classification. The tag is
// decided once, by Classify, where the client's error is interpreted.
type Error struct {
	Reason    string
	Permanent bool
}

func (e *Error) Error() string        { return e.Reason }
func (e *Error) PermanentError() bool { return e.Permanent }

// Indicators of errors retrying cannot change: authorization failure,
// resource-not-found, blocked/suspended recipient, input validation.
var permanentIndicators = []string{
	"unauthorized",
	"forbidden",
	"not found",
	"blocked",
	"suspended",
	"invalid",
}

// Classify wraps a raw client error into a tagged Error. Anything not
// matching a permanent indicator (timeouts, connection failures, rate-limit
// responses, generic server errors) is retryable.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, ind := range permanentIndicators {
		if strings.Contains(msg, ind) {
			return &Error{Reason: err.Error(), Permanent: true}
		}
	}
	return &Error{Reason: err.Error(), Permanent: false}
}
