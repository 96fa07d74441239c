package analyzer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProviderUnavailable is returned when every provider failed for a reason other than quota.
	ErrProviderUnavailable = errors.New("AI provider unavailable")

	// ErrQuotaExceeded is returned when the providers failed and at least one hit a rate or quota limit.
	ErrQuotaExceeded = errors.New("AI quota exceeded")
)

// QuotaError is returned by Gateway.Complete when the chain failed and some
// provider hit a rate or quota limit. It matches ErrQuotaExceeded.
type QuotaError struct {
	Provider string // last provider that reported quota
	Last     error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%v (%s): last error: %v", ErrQuotaExceeded, e.Provider, e.Last)
}

func (e *QuotaError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

func (e *QuotaError) Unwrap() error {
	return e.Last
}

// APIError is a non-2xx response from a provider endpoint.
type APIError struct {
	Provider   string
	Model      string
	StatusCode int
	Status     string // provider status code, e.g. RESOURCE_EXHAUSTED
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	return fmt.Sprintf("%s API error (status %d, model %s): %s", e.Provider, e.StatusCode, e.Model, msg)
}

// IsQuota reports whether the provider rejected the call because of rate or quota limits.
func (e *APIError) IsQuota() bool {
	if e.StatusCode == 429 || e.Status == "RESOURCE_EXHAUSTED" {
		return true
	}
	return containsQuotaHint(e.Message)
}

// IsQuotaError reports whether err is a rate-limit or quota failure.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsQuota()
	}
	return containsQuotaHint(err.Error())
}

func containsQuotaHint(s string) bool {
	s = strings.ToLower(s)
	for _, hint := range []string{"status 429", "rate limit", "quota", "insufficient_quota", "resource_exhausted"} {
		if strings.Contains(s, hint) {
			return true
		}
	}
	return false
}

// getErrorType returns a short description of the error for logs
func getErrorType(err error) string {
	if err == nil {
		return "unknown"
	}
	if IsQuotaError(err) {
		return "rate_limit"
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 400:
			return "bad_request"
		case 401, 403:
			return "unauthorized"
		case 404:
			return "model_not_found"
		case 500:
			return "internal_server_error"
		case 502:
			return "bad_gateway"
		case 503:
			return "service_unavailable"
		case 504:
			return "gateway_timeout"
		}
	}

	errStr := err.Error()
	if strings.Contains(errStr, "context deadline exceeded") || strings.Contains(errStr, "timeout") {
		return "timeout"
	}
	if strings.Contains(errStr, "dial tcp") || strings.Contains(errStr, "connection refused") {
		return "connection_failed"
	}

	return "other_error"
}
