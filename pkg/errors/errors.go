// Package errors provides a structured error system for the HDFS writer with error codes, categories, and context.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a structured error code for writer operations.
type ErrorCode string

// Error code constants grouped by category.
const (
	// Configuration errors
	ErrCodeInvalidConfig    ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig    ErrorCode = "MISSING_CONFIG"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrCodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	ErrCodePathInvalid      ErrorCode = "PATH_INVALID"

	// Connection errors
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"

	// Authentication errors
	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeCredentialsMissing   ErrorCode = "CREDENTIALS_MISSING"

	// Filesystem errors
	ErrCodeFileExists      ErrorCode = "FILE_EXISTS"
	ErrCodeFileOpen        ErrorCode = "FILE_OPEN"
	ErrCodeFileClose       ErrorCode = "FILE_CLOSE"
	ErrCodeDirectoryCreate ErrorCode = "DIRECTORY_CREATE"

	// Storage I/O errors
	ErrCodeStorageWrite ErrorCode = "STORAGE_WRITE"
	ErrCodeStorageFlush ErrorCode = "STORAGE_FLUSH"
	ErrCodeStorageStat  ErrorCode = "STORAGE_STAT"

	// State errors
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryConnection    ErrorCategory = "connection"
	CategoryAuth          ErrorCategory = "auth"
	CategoryFilesystem    ErrorCategory = "filesystem"
	CategoryStorage       ErrorCategory = "storage"
	CategoryState         ErrorCategory = "state"
	CategoryInternal      ErrorCategory = "internal"
)

// HDFSError represents a structured error with context and metadata.
type HDFSError struct {
	Code     ErrorCode              `json:"code"`
	Category ErrorCategory          `json:"category"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`

	Context   map[string]string `json:"context,omitempty"`
	Cause     error             `json:"-"`
	Timestamp time.Time         `json:"timestamp"`

	Component string `json:"component"`
	Operation string `json:"operation,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	// Retryable is a hint for callers. The writer itself never retries.
	Retryable bool `json:"retryable"`
}

// Error implements the error interface.
func (e *HDFSError) Error() string {
	if e.Component != "" {
		if e.Operation != "" {
			return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
		}
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error wrapping compatibility.
func (e *HDFSError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error (for errors.Is compatibility).
func (e *HDFSError) Is(target error) bool {
	if hdfsErr, ok := target.(*HDFSError); ok {
		return e.Code == hdfsErr.Code
	}
	return false
}

// String returns a detailed string representation for logging.
func (e *HDFSError) String() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Code=%s", e.Code))
	parts = append(parts, fmt.Sprintf("Category=%s", e.Category))
	parts = append(parts, fmt.Sprintf("Message=%q", e.Message))

	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("Component=%s", e.Component))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation=%s", e.Operation))
	}
	if e.RequestID != "" {
		parts = append(parts, fmt.Sprintf("RequestID=%s", e.RequestID))
	}
	if len(e.Details) > 0 {
		details, _ := json.Marshal(e.Details)
		parts = append(parts, fmt.Sprintf("Details=%s", details))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}

	return fmt.Sprintf("HDFSError{%s}", strings.Join(parts, ", "))
}

// JSON returns the error as a JSON string.
func (e *HDFSError) JSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal error: %s"}`, err.Error())
	}
	return string(data)
}

// NewError creates a new error with default values.
func NewError(code ErrorCode, message string) *HDFSError {
	return &HDFSError{
		Code:      code,
		Category:  GetCategory(code),
		Message:   message,
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
		Context:   make(map[string]string),
	}
}

// Newf is NewError with a format string.
func Newf(code ErrorCode, format string, args ...interface{}) *HDFSError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// GetCategory determines the category based on the error code.
func GetCategory(code ErrorCode) ErrorCategory {
	switch code {
	case ErrCodeInvalidConfig, ErrCodeMissingConfig, ErrCodeConfigValidation, ErrCodeConfigLoad, ErrCodePathInvalid:
		return CategoryConfiguration
	case ErrCodeConnectionFailed:
		return CategoryConnection
	case ErrCodeAuthenticationFailed, ErrCodeCredentialsMissing:
		return CategoryAuth
	case ErrCodeFileExists, ErrCodeFileOpen, ErrCodeFileClose, ErrCodeDirectoryCreate:
		return CategoryFilesystem
	case ErrCodeStorageWrite, ErrCodeStorageFlush, ErrCodeStorageStat:
		return CategoryStorage
	case ErrCodeInvalidState:
		return CategoryState
	default:
		return CategoryInternal
	}
}

// WithContext adds contextual information to an error
func (e *HDFSError) WithContext(key, value string) *HDFSError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithDetail adds detailed information to an error
func (e *HDFSError) WithDetail(key string, value interface{}) *HDFSError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithComponent sets the component for an error
func (e *HDFSError) WithComponent(component string) *HDFSError {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error
func (e *HDFSError) WithOperation(operation string) *HDFSError {
	e.Operation = operation
	return e
}

// WithRequestID sets the request (writer) identifier
func (e *HDFSError) WithRequestID(id string) *HDFSError {
	e.RequestID = id
	return e
}

// WithCause sets the underlying cause
func (e *HDFSError) WithCause(cause error) *HDFSError {
	e.Cause = cause
	return e
}

// GetCode extracts the error code from err, or "" when err carries none.
func GetCode(err error) ErrorCode {
	var hdfsErr *HDFSError
	if errors.As(err, &hdfsErr) {
		return hdfsErr.Code
	}
	return ""
}

func hasCategory(err error, categories ...ErrorCategory) bool {
	var hdfsErr *HDFSError
	if !errors.As(err, &hdfsErr) {
		return false
	}
	for _, c := range categories {
		if hdfsErr.Category == c {
			return true
		}
	}
	return false
}

// IsConfigurationError reports whether err is a locally detected configuration problem.
func IsConfigurationError(err error) bool {
	return hasCategory(err, CategoryConfiguration)
}

// IsAlreadyExists reports whether err means the target path was already present.
func IsAlreadyExists(err error) bool {
	return GetCode(err) == ErrCodeFileExists
}

// IsConnectionError reports whether err came from authentication or connection setup.
func IsConnectionError(err error) bool {
	return hasCategory(err, CategoryConnection, CategoryAuth)
}

// IsIOError reports whether err is a directory, open, write, flush or close failure.
func IsIOError(err error) bool {
	if IsAlreadyExists(err) {
		return false
	}
	return hasCategory(err, CategoryFilesystem, CategoryStorage)
}

// IsInvalidState reports whether err was caused by calling an operation out of order.
func IsInvalidState(err error) bool {
	return GetCode(err) == ErrCodeInvalidState
}
