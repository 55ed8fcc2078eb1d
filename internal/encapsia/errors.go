package encapsia

import (
	"errors"
	"fmt"
)

// Kind classifies a remote failure. Connection-level failures are worth
// retrying for idempotent operations; server failures are not.
type Kind int

const (
	// KindConnection covers transport failures: the request never
	// produced a response (DNS, dial, TLS, timeout).
	KindConnection Kind = iota
	// KindServer covers responses the server produced but the client
	// cannot accept: non-2xx statuses, malformed bodies, failed tasks.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindServer:
		return "server"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the typed failure surfaced by every Client operation. The client
// itself never retries; callers inspect Kind to decide their retry policy.
type Error struct {
	Kind Kind
	// Op names the failed operation, e.g. "run view".
	Op string
	// Status is the HTTP status code for server failures, 0 otherwise.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s failed with status %d: %v", e.Kind, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsConnection reports whether err is a connection-level remote failure.
func IsConnection(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindConnection
}
