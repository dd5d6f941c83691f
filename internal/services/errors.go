package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Kind classifies a pipeline error for retry decisions.
type Kind int

const (
	// KindRetryable covers transient faults worth another attempt.
	KindRetryable Kind = iota
	// KindFatal covers faults that will not succeed on retry.
	KindFatal
)

func (k Kind) String() string {
	if k == KindFatal {
		return "fatal"
	}
	return "retryable"
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to its retry disposition. Transient markers,
// timeouts, and external tool faults are retryable; validation and
// configuration faults, cancellation, and anything unmarked are fatal.
// Classification happens exactly once per failure, at the call boundary
// that observed it.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindFatal
	case errors.Is(err, context.Canceled):
		return KindFatal
	case errors.Is(err, ErrTransient), errors.Is(err, ErrTimeout), errors.Is(err, ErrExternalTool):
		return KindRetryable
	case errors.Is(err, context.DeadlineExceeded):
		return KindRetryable
	default:
		return KindFatal
	}
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Classify(err) == KindRetryable
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
