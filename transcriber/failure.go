package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a transcription failure for logging and user
// notification.
type Kind int

const (
	// KindProvider covers non-2xx responses from a remote backend.
	KindProvider Kind = iota
	// KindUnavailable means the backend could not be reached or
	// loaded at all.
	KindUnavailable
	// KindTimeout means the request exceeded its deadline.
	KindTimeout
	// KindInvalidAudio means the captured audio was unusable.
	KindInvalidAudio
)

func (k Kind) String() string {
	switch k {
	case KindProvider:
		return "provider error"
	case KindUnavailable:
		return "backend unavailable"
	case KindTimeout:
		return "timeout"
	case KindInvalidAudio:
		return "invalid audio"
	}
	return "unknown"
}

// Failure is the error type every backend returns. Code carries the
// HTTP status for KindProvider failures, zero otherwise.
type Failure struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (f *Failure) Error() string {
	switch {
	case f.Code != 0:
		return fmt.Sprintf("%s (HTTP %d): %s", f.Kind, f.Code, f.Message)
	case f.Message != "":
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return f.Kind.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// classify wraps a transport-level error. Deadline expiry becomes
// KindTimeout, everything else KindUnavailable.
func classify(err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Failure{Kind: KindTimeout, Err: err}
	}
	return &Failure{Kind: KindUnavailable, Err: err}
}

// fromStatus builds a Failure for a non-2xx HTTP response.
func fromStatus(status int, body string) *Failure {
	return &Failure{Kind: KindProvider, Code: status, Message: body}
}
