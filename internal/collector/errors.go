package collector

import (
	"errors"
	"fmt"
	"net/http"
)

// UpstreamProviderError is a failed market-data fetch: network, rate limit,
// server error or an unreadable payload. It is safe to retry.
type UpstreamProviderError struct {
	Provider   string
	Symbol     string
	StatusCode int
	Err        error
}

func (e *UpstreamProviderError) Error() string {
	msg := e.Provider
	if e.Symbol != "" {
		msg += " " + e.Symbol
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamProviderError) Unwrap() error { return e.Err }

// AuthenticationError means the broker session is missing, invalid or
// expired. It is never retried.
type AuthenticationError struct {
	Provider   string
	StatusCode int
	Reason     string
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: authentication failed (status %d): %s", e.Provider, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("%s: authentication failed: %s", e.Provider, e.Reason)
}

// IsAuth reports whether err wraps an AuthenticationError.
func IsAuth(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}

// IsUpstream reports whether err wraps an UpstreamProviderError.
func IsUpstream(err error) bool {
	var ue *UpstreamProviderError
	return errors.As(err, &ue)
}

// statusError maps a non-200 response to the error taxonomy.
func statusError(provider, symbol string, status int, body []byte, authStatuses bool) error {
	if authStatuses && (status == http.StatusUnauthorized || status == http.StatusForbidden) {
		return &AuthenticationError{Provider: provider, StatusCode: status, Reason: truncate(string(body), 200)}
	}
	return &UpstreamProviderError{
		Provider:   provider,
		Symbol:     symbol,
		StatusCode: status,
		Err:        fmt.Errorf("body: %s", truncate(string(body), 200)),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
