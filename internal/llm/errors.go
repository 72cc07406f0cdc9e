package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a failed attempt. Everything except KindFatal is
// retry-eligible on a later pass.
type Kind string

const (
	// KindRateLimited means the provider signaled quota or rate exhaustion.
	KindRateLimited Kind = "RateLimited"
	// KindTransient covers network, timeout and connection failures.
	KindTransient Kind = "Transient"
	// KindSchemaInvalid means a response arrived but could not be parsed
	// into the required verdict structure.
	KindSchemaInvalid Kind = "SchemaInvalid"
	// KindFatal covers configuration and authorization errors that will not
	// self-resolve by retrying. A fatal error aborts the pass.
	KindFatal Kind = "Fatal"
)

// RateLimitedError is returned when the provider rejects a request for
// quota reasons. RetryAfter carries the server-suggested delay if the
// error message included one, zero otherwise.
type RateLimitedError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %v): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitedError) Unwrap() error { return e.Err }

// TransientError is returned for failures expected to self-resolve.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient failure: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// SchemaError is returned when a response was received but does not parse
// into the verdict schema. Raw holds the offending response text.
type SchemaError struct {
	Raw string
	Err error
}

func (e *SchemaError) Error() string {
	raw := e.Raw
	if len(raw) > 200 {
		raw = raw[:200] + "..."
	}
	return fmt.Sprintf("invalid verdict schema: %v (response: %s)", e.Err, raw)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// FatalError is returned for configuration and authorization failures.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("fatal: %v", e.Err) }
func (e *FatalError) Unwrap() error { return e.Err }

// KindOf reports the failure kind of an error produced by a provider.
// Unrecognized errors default to KindTransient so they stay retry-eligible.
func KindOf(err error) Kind {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return KindRateLimited
	}
	var se *SchemaError
	if errors.As(err, &se) {
		return KindSchemaInvalid
	}
	var fe *FatalError
	if errors.As(err, &fe) {
		return KindFatal
	}
	return KindTransient
}

// RetryAfter extracts the server-suggested retry delay from a rate-limit
// error, zero if none was provided.
func RetryAfter(err error) time.Duration {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}

// retryDelayRegex matches "Please retry in Xs", "retryDelay:Xs" and
// "retry_delay { seconds: X }" patterns seen in provider error payloads.
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s"]+|retry_delay.*?seconds[:\s]+)(\d+(?:\.\d+)?)\s*s?`)

// ExtractRetryDelay parses the API-suggested retry delay from an error
// message. Returns 0 if no delay is found.
//
// Example:
// "Error 429, Message: ... Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED"
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// isRateLimitError checks if an error signals provider rate limiting.
// Matches 429 status codes and RESOURCE_EXHAUSTED errors.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(errStr), "quota") ||
		strings.Contains(strings.ToLower(errStr), "rate limit")
}

// isFatalError checks for authorization and configuration failures that
// retrying cannot fix.
func isFatalError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, marker := range []string{
		"401", "403",
		"unauthenticated", "permission_denied", "permission denied",
		"api key not valid", "invalid api key", "invalid x-api-key",
		"authentication", "billing",
	} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}

// classifyAPIError maps a raw provider error into the failure taxonomy.
// Rate-limit detection runs first so quota errors carrying HTTP 4xx codes
// are not misread as fatal.
func classifyAPIError(err error) error {
	if err == nil {
		return nil
	}

	if isRateLimitError(err) {
		return &RateLimitedError{RetryAfter: ExtractRetryDelay(err), Err: err}
	}
	if isFatalError(err) {
		return &FatalError{Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Err: err}
	}

	return &TransientError{Err: err}
}
