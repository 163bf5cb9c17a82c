package model

import (
	"errors"
	"fmt"
)

var (
	ErrJavaHomeMissing  = &ConfigError{Field: "JAVA_HOME", Msg: MsgSetJavaHome.Format()}
	ErrOnlyOne          = &ConfigError{Field: "testEvents", Msg: MsgAtMostOne.Format()}
	ErrNoResults        = errors.New("results file not found")
	ErrUnknownResults   = errors.New("results file is not a JUnit report")
	ErrPermissionDenied = errors.New("permission denied")
)

// ConfigError reports a configuration problem detected before the client is launched.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Msg)
}

// Is matches any other *ConfigError for the same field.
func (e *ConfigError) Is(target error) bool {
	t, ok := target.(*ConfigError)
	return ok && t.Field == e.Field && t.Msg == e.Msg
}

func NewConfigError(field string, msg Message, args ...any) *ConfigError {
	return &ConfigError{Field: field, Msg: msg.Format(args...)}
}

// IsConfigError checks if the error is or wraps a ConfigError
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return err != nil && errors.As(err, &cfgErr)
}

// ExitCodeError is returned when the client exits with a non zero code.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return MsgExitCodeNotZero.Format(e.Code)
}

// IsExitCodeError checks if the error is or wraps an ExitCodeError
func IsExitCodeError(err error) bool {
	var exitErr *ExitCodeError
	return err != nil && errors.As(err, &exitErr)
}
