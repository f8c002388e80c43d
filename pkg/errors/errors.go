package apperrors

import (
	"context"
	"errors"
	"net"
)

// Standardized Exchange Errors
var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrOrderRejected         = errors.New("order rejected")
	ErrRateLimitExceeded     = errors.New("rate limit exceeded")
	ErrNetwork               = errors.New("network error")
	ErrInvalidSymbol         = errors.New("invalid symbol")
	ErrAuthenticationFailed  = errors.New("authentication failed")
	ErrExchangeMaintenance   = errors.New("exchange maintenance")
	ErrOrderNotFound         = errors.New("order not found")
	ErrInvalidOrderParameter = errors.New("invalid order parameter")
	ErrSystemOverload        = errors.New("system overload")
	ErrTimestampOutOfBounds  = errors.New("timestamp out of bounds")
)

// IsTransient reports whether an error is expected to clear on its own and
// is therefore worth retrying: timeouts, rate limits, transport failures,
// exchange-side overload.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimitExceeded) ||
		errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrSystemOverload) ||
		errors.Is(err, ErrExchangeMaintenance) ||
		errors.Is(err, ErrTimestampOutOfBounds) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// IsPermanent reports whether an error can never succeed on retry and must
// abort the process: bad credentials, unknown symbol. A process that cannot
// authenticate or resolve its symbol cannot complete any cycle.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAuthenticationFailed) ||
		errors.Is(err, ErrInvalidSymbol)
}
