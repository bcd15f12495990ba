package domain

import (
	"errors"
	"fmt"
)

// Terminal pipeline failures. Each moves the job to Failed with the kind
// recorded; none is retried internally.
var (
	ErrAuth               = errors.New("authentication failed")
	ErrClientProvisioning = errors.New("client provisioning failed")
	ErrMalformedDocument  = errors.New("malformed document")
	ErrUpload             = errors.New("upload rejected")
	ErrPollingTimeout     = errors.New("polling timeout")
	ErrExtraction         = errors.New("extraction failed")
	ErrQuotaExceeded      = errors.New("service quota exceeded")

	ErrJobNotFound  = errors.New("job not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ErrorKind names the failure kind for the status surface. Failed jobs
// report this alongside the verbatim message. Quota exhaustion is checked
// first because it is raised as a subtype of upload/extraction failures.
func ErrorKind(err error) string {
	switch {
	case IsKind(err, ErrQuotaExceeded):
		return "QuotaExceededError"
	case IsKind(err, ErrAuth):
		return "AuthError"
	case IsKind(err, ErrClientProvisioning):
		return "ClientProvisioningError"
	case IsKind(err, ErrMalformedDocument):
		return "MalformedDocumentError"
	case IsKind(err, ErrUpload):
		return "UploadError"
	case IsKind(err, ErrPollingTimeout):
		return "PollingTimeoutError"
	case IsKind(err, ErrExtraction):
		return "ExtractionError"
	case IsKind(err, ErrJobNotFound):
		return "JobNotFoundError"
	case IsKind(err, ErrInvalidInput):
		return "InvalidInputError"
	case IsKind(err, ErrTemporary):
		return "TemporaryError"
	default:
		return "InternalError"
	}
}
