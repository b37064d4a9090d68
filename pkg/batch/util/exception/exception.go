package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies a BatchError by the phase in which it was raised.
type Kind string

const (
	KindGeneral        Kind = "general"
	KindConfiguration  Kind = "configuration"
	KindInitialization Kind = "initialization"
	KindRuntime        Kind = "runtime"
)

// Sentinels matched through errors.Is against any BatchError of the same Kind.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrInitialization = errors.New("initialization error")
	ErrRuntime        = errors.New("runtime error")
)

// BatchError is the error type raised by the engine.
// It records the module that raised it, a short message and the wrapped cause.
type BatchError struct {
	Kind        Kind
	Module      string // e.g. "loop", "switch", "config", "executor"
	Message     string
	OriginalErr error
	StackTrace  string
}

func newError(kind Kind, module, message string, originalErr error) *BatchError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return &BatchError{
		Kind:        kind,
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		StackTrace:  string(buf[:n]),
	}
}

// NewBatchError creates a general BatchError.
func NewBatchError(module, message string, originalErr error) *BatchError {
	return newError(KindGeneral, module, message, originalErr)
}

// NewBatchErrorf creates a general BatchError from a format string.
// A trailing error argument that is not consumed by the format becomes the wrapped cause.
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	message, cause := splitCause(format, a)
	return newError(KindGeneral, module, message, cause)
}

// NewConfigurationError is raised while building a job tree from its definition.
func NewConfigurationError(module, format string, a ...interface{}) *BatchError {
	message, cause := splitCause(format, a)
	return newError(KindConfiguration, module, message, cause)
}

// NewInitializationError is raised when a component cannot be prepared for execution.
func NewInitializationError(module, format string, a ...interface{}) *BatchError {
	message, cause := splitCause(format, a)
	return newError(KindInitialization, module, message, cause)
}

// NewRuntimeError is raised while a job is running.
func NewRuntimeError(module, format string, a ...interface{}) *BatchError {
	message, cause := splitCause(format, a)
	return newError(KindRuntime, module, message, cause)
}

func splitCause(format string, a []interface{}) (string, error) {
	if n := len(a); n > 0 {
		if err, ok := a[n-1].(error); ok && countVerbs(format) < n {
			return fmt.Sprintf(format, a[:n-1]...), err
		}
	}
	return fmt.Sprintf(format, a...), nil
}

func countVerbs(format string) int {
	n := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			i++
			continue
		}
		n++
	}
	return n
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// Is reports whether target is the sentinel for e's Kind.
func (e *BatchError) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	case ErrInitialization:
		return e.Kind == KindInitialization
	case ErrRuntime:
		return e.Kind == KindRuntime
	}
	return false
}

// IsConfiguration reports whether err is, or wraps, a configuration error.
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsRuntime reports whether err is, or wraps, a runtime error.
func IsRuntime(err error) bool { return errors.Is(err, ErrRuntime) }

// KindOf returns the Kind of the outermost BatchError in err's chain.
func KindOf(err error) (Kind, bool) {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return "", false
}
