package connection

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/DjordjeVuckovic/qstone/internal/lock"
)

// Status classifies how a submit, poll, compile or execute step ended.
type Status int

const (
	StatusSuccess Status = iota
	StatusTransportError
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusTransportError:
		return "transport-error"
	case StatusTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the explicit result of one network step.
type Outcome struct {
	Status     Status
	StatusCode int
	Body       []byte
	Err        error
}

func Success(statusCode int, body []byte) Outcome {
	return Outcome{Status: StatusSuccess, StatusCode: statusCode, Body: body}
}

// Failure classifies err as a timeout or a transport error.
func Failure(statusCode int, err error) Outcome {
	status := StatusTransportError
	if IsTimeout(err) {
		status = StatusTimeout
	}
	return Outcome{Status: status, StatusCode: statusCode, Err: err}
}

func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

// LockTimedOut reports whether the outcome is an exhausted lock budget.
func (o Outcome) LockTimedOut() bool {
	return errors.Is(o.Err, lock.ErrTimeout)
}

func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, lock.ErrTimeout) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
