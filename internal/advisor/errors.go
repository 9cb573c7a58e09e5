package advisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("advisor http status %d", e.Code)
	}
	return fmt.Sprintf("advisor http status %d: %s", e.Code, e.Body)
}

// FailureKind classifies a failed remote call.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureNetwork
	FailureTimeout
	FailureServer
	FailureNotFound
)

func (k FailureKind) String() string {
	switch k {
	case FailureNetwork:
		return "network"
	case FailureTimeout:
		return "timeout"
	case FailureServer:
		return "server"
	case FailureNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by a Client to a FailureKind.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code >= http.StatusInternalServerError:
			return FailureServer
		case se.Code == http.StatusNotFound:
			return FailureNotFound
		default:
			return FailureUnknown
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return FailureTimeout
		}
		return FailureNetwork
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return FailureNetwork
	}
	return FailureUnknown
}
