package gateway

import (
	"errors"
	"fmt"
)

// StatusCodeError ошибка с HTTP статусом ответа шлюза.
type StatusCodeError struct {
	StatusCode int
}

func NewStatusCodeError(code int) *StatusCodeError {
	return &StatusCodeError{StatusCode: code}
}

func (e *StatusCodeError) Error() string {
	return fmt.Sprintf("gateway responded with status %d", e.StatusCode)
}

// retryableError помечает ошибку как временную: сетевой сбой или 5xx.
type retryableError struct {
	cause error
}

func (e *retryableError) Error() string {
	return e.cause.Error()
}

func (e *retryableError) Unwrap() error {
	return e.cause
}

func isRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}
