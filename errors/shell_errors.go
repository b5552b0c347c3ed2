// errors/shell_errors.go
package errors

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSignals  = errors.New("invalid environment signals")
	ErrInvalidPath     = errors.New("invalid navigation path")
	ErrInternalServer  = errors.New("internal server error")
	ErrUnauthorized    = errors.New("unauthorized")
)
