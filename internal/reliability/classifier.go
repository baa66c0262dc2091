package reliability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// IsRetryableHTTPStatus reports whether a failed handshake with this status
// is worth another attempt, i.e. throttling or an upstream outage.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsRetryableRealtimeErrorCode classifies error codes reported inside an
// established realtime session.
func IsRetryableRealtimeErrorCode(code string) bool {
	switch code {
	case "rate_limit_exceeded", "server_error", "overloaded", "session_expired":
		return true
	default:
		return false
	}
}

// IsTransientNetError reports whether err looks like a network failure that
// may succeed on a second attempt. Context cancellation is never transient.
func IsTransientNetError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// ExponentialBackoff returns base doubled attempt times, clamped to ceiling.
func ExponentialBackoff(attempt int, base, ceiling time.Duration) time.Duration {
	if attempt <= 0 {
		return min(base, ceiling)
	}
	if attempt >= 63 || base > ceiling>>attempt {
		return ceiling
	}
	return base << attempt
}
