package dox

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
	"github.com/m-deepasri/noc-validator/internal/infrastructure/resilience"
)

func classifyDOXError(err error) resilience.Outcome {
	if err == nil {
		return resilience.Outcome{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Outcome{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.Outcome{Retryable: false, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			// Quota exhaustion fails the job; retrying burns more quota.
			return resilience.Outcome{Retryable: false, RecordFailure: false}
		case statusErr.StatusCode == http.StatusUnauthorized:
			return resilience.Outcome{Retryable: false, RecordFailure: false}
		case statusErr.StatusCode >= 500:
			return resilience.Outcome{Retryable: false, RecordFailure: true}
		default:
			return resilience.Outcome{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Outcome{Retryable: false, RecordFailure: true}
	}
	return resilience.Outcome{Retryable: false, RecordFailure: true}
}

// submissionError maps transport failures of a document submission onto
// the pipeline's terminal error kinds.
func submissionError(operation string, err error) error {
	if kind, ok := statusKind(err); ok {
		return domain.WrapError(kind, operation, err)
	}
	return domain.WrapError(domain.ErrUpload, operation, err)
}

// pollError maps status/result transport failures.
func pollError(operation string, err error) error {
	if kind, ok := statusKind(err); ok {
		return domain.WrapError(kind, operation, err)
	}
	return domain.WrapError(domain.ErrExtraction, operation, err)
}

func statusKind(err error) (error, bool) {
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		return nil, false
	}
	switch statusErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrAuth, true
	case http.StatusTooManyRequests:
		return domain.ErrQuotaExceeded, true
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return domain.ErrMalformedDocument, true
	default:
		return nil, false
	}
}

func stringifyValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; integral values print clean.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
