package apperrors

import (
	"errors"
	"fmt"
)

// Connection-flow error taxonomy. Handlers map these onto HTTP statuses and
// user-safe redirect reasons; the distinctions feed security telemetry.
var (
	// ErrInvalidOrExpiredState: state token absent from the cache. Covers
	// unknown tokens, replays of consumed tokens and TTL-evicted tokens.
	ErrInvalidOrExpiredState = errors.New("invalid or expired oauth state")

	// ErrPlatformMismatch: state token exists but was minted for a different
	// platform than the callback claims. Treated as a CSRF signal.
	ErrPlatformMismatch = errors.New("oauth state platform mismatch")

	// ErrStateExpired: state survived in the cache past its maximum age.
	// Secondary defense against backend TTL misbehavior.
	ErrStateExpired = errors.New("oauth state expired")

	// ErrStorageFailure: the cache write for a new state did not succeed.
	ErrStorageFailure = errors.New("state storage failure")

	// ErrRefreshNotSupported: the platform has no refresh semantics; the user
	// must re-authenticate.
	ErrRefreshNotSupported = errors.New("token refresh not supported by platform")

	// ErrReAuthRequired: the stored credential can no longer be refreshed.
	ErrReAuthRequired = errors.New("re-authentication required")

	// ErrDecryptionFailed: a stored token envelope failed authentication or
	// parsing. Indicates key rotation or data corruption.
	ErrDecryptionFailed = errors.New("token decryption failed")

	// ErrNotFound: the record does not exist, or the caller does not own it.
	// Ownership failures deliberately look identical to missing records.
	ErrNotFound = errors.New("not found")
)

// OAuthExchangeError wraps a non-2xx response from a platform token endpoint.
// Authorization codes are single-use, so exchange is never retried; the status
// and body are kept for diagnostics only.
type OAuthExchangeError struct {
	Platform   string
	StatusCode int
	Body       string
}

func (e *OAuthExchangeError) Error() string {
	return fmt.Sprintf("oauth exchange failed for %s: status %d", e.Platform, e.StatusCode)
}

// IsCSRFSignal reports whether err is one of the state-validation failures
// that should be logged for attack-pattern detection.
func IsCSRFSignal(err error) bool {
	return errors.Is(err, ErrPlatformMismatch) ||
		errors.Is(err, ErrInvalidOrExpiredState) ||
		errors.Is(err, ErrStateExpired)
}
