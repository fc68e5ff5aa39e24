package apperr

import (
	"errors"
	"fmt"
)

var ErrUnsupported = errors.New("operation not supported by this connection")

type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidation(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func NewValidationWrap(msg string, err error) *ValidationError {
	return &ValidationError{Message: msg, Err: err}
}

// ConfigError is fatal: bad endpoint, unknown protocol, unwritable lock path.
type ConfigError struct {
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return "configuration error: " + e.Message + ": " + e.Err.Error()
	}
	return "configuration error: " + e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func NewConfig(msg string) *ConfigError {
	return &ConfigError{Message: msg}
}

func NewConfigWrap(msg string, err error) *ConfigError {
	return &ConfigError{Message: msg, Err: err}
}

// TranslationError means the circuit is missing or not in the backend dialect.
type TranslationError struct {
	Path string
	Err  error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translate circuit %q: %v", e.Path, e.Err)
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

func NewTranslation(path string, err error) *TranslationError {
	return &TranslationError{Path: path, Err: err}
}

// TransportError covers channel failures, non-success statuses and malformed
// bodies. StatusCode is zero when no response was received.
type TransportError struct {
	Step       string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Step, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func NewTransport(step string, statusCode int, err error) *TransportError {
	return &TransportError{Step: step, StatusCode: statusCode, Err: err}
}

func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func IsTranslation(err error) bool {
	var te *TranslationError
	return errors.As(err, &te)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
