package upstream

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies upstream failures at the client boundary so callers
// dispatch on a closed set of tags instead of parsing messages.
type ErrorKind int

const (
	// KindUnavailable covers network failures and 5xx responses.
	KindUnavailable ErrorKind = iota
	// KindRateLimited marks 429 responses; the only retryable kind.
	KindRateLimited
	// KindInvalid marks 4xx request errors (bad pair, malformed address,
	// amount out of range). Never retried.
	KindInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindInvalid:
		return "invalid"
	default:
		return "unavailable"
	}
}

// Error is the classified failure returned by every Client call.
type Error struct {
	Kind    ErrorKind
	Status  int // HTTP status, 0 for transport failures
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("upstream %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream %s: %s", e.Kind, e.Message)
}

// IsRateLimited reports whether err is a rate-limit failure. The typed kind
// is checked first; the message fallback catches errors raised outside the
// client (proxies, middleboxes) whose taxonomy is not guaranteed.
func IsRateLimited(err error) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind == KindRateLimited
	}
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests")
}

// IsInvalid reports whether err is a terminal request-validation failure.
func IsInvalid(err error) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.Kind == KindInvalid
}
