// internal/common/errors/handler.go
package errors

import (
	"context"
	stderrors "errors"
)

const (
	ExitOK      = 0
	ExitFailure = 1
)

// ErrorHandler logs errors that escape the entry point and maps them to exit codes.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err and returns the process exit code for it.
// A cancellation caused by a user interrupt is not a failure.
func (h *ErrorHandler) Handle(err error, interrupted bool) int {
	if err == nil {
		return ExitOK
	}

	if interrupted && stderrors.Is(err, context.Canceled) {
		h.logger.Info("interrupted by user", nil)
		return ExitOK
	}

	fields := map[string]interface{}{
		"error":     err.Error(),
		"errorCode": string(CodeOf(err)),
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) && stdErr.Details != "" {
		fields["errorDetails"] = stdErr.Details
	}
	h.logger.Error("execution failed", fields)
	return ExitFailure
}
