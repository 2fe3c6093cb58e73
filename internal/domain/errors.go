package domain

import (
	"errors"
	"fmt"
)

// Error types for pipeline-specific errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConversion ErrorType = "conversion"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeEmbedding  ErrorType = "embedding"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeProvider   ErrorType = "provider"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeIO         ErrorType = "io"
)

// DomainError represents a pipeline error with classification context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func ConversionError(message string, err error) *DomainError {
	return NewError(ErrorTypeConversion, message, err)
}

func ExtractionError(message string, err error) *DomainError {
	return NewError(ErrorTypeExtraction, message, err)
}

func EmbeddingError(message string, err error) *DomainError {
	return NewError(ErrorTypeEmbedding, message, err)
}

func StorageError(message string, err error) *DomainError {
	return NewError(ErrorTypeStorage, message, err)
}

func ProviderError(message string, err error) *DomainError {
	return NewError(ErrorTypeProvider, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

// IsType reports whether err carries the given error type anywhere in its chain
func IsType(err error, errType ErrorType) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type == errType
	}
	return false
}

// IsHardFailure reports whether err must abort the run with a non-zero exit.
// Configuration and validation problems are hard; everything else is a
// per-document or per-stage condition the pipeline survives.
func IsHardFailure(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type == ErrorTypeConfig || de.Type == ErrorTypeValidation
	}
	return false
}
