// internal/provider/errors.go
package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode classifies a send failure for the retry manager.
type ErrorCode string

const (
	CodeRateLimited   ErrorCode = "rate_limited"
	CodeQuotaExceeded ErrorCode = "quota_exceeded"
	CodeAuth          ErrorCode = "auth"
	CodePermanent     ErrorCode = "permanent" // invalid address, hard bounce
	CodeTransient     ErrorCode = "transient"
)

// Error is a classified provider failure.
type Error struct {
	Provider string
	Code     ErrorCode
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, e.Message)
}

func NewError(provider string, code ErrorCode, format string, args ...any) *Error {
	return &Error{Provider: provider, Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the error code. Timeouts and unclassified errors are
// treated as transient so they get bounded retries rather than dropping
// the recipient.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CodeTransient
	}
	return CodeTransient
}
