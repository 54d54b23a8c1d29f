package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrRateLimited marks errors caused by 429/503 back-off responses.
	ErrRateLimited = errors.New("rate limited")
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 and 503 back-off responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError is a non-2xx response from the Mission Control API.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	// Detail is the "detail" field of the error body, when present.
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("mission control %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, msg, e.Err)
	}
	return fmt.Sprintf("mission control %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, msg)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// classifyStatus categorizes a response status. 2xx and 3xx have no class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// newAPIError builds an APIError from resp and consumes its body.
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: classifyStatus(resp.StatusCode),
		Message:    http.StatusText(resp.StatusCode),
	}
	if apiErr.ErrorClass == ErrorClassRateLimit {
		apiErr.Err = ErrRateLimited
	}

	if resp.Body != nil {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var payload struct {
			Detail json.RawMessage `json:"detail"`
		}
		if json.Unmarshal(body, &payload) == nil && len(payload.Detail) > 0 {
			var detail string
			if json.Unmarshal(payload.Detail, &detail) == nil {
				apiErr.Detail = detail
			} else {
				apiErr.Detail = string(payload.Detail)
			}
		}
	}
	return apiErr
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx errors are the caller's fault; retrying cannot help
		return false
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}

func nopBody(data []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(data))
}
