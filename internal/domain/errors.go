package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a document failed.
type ErrorKind string

const (
	ErrorKindOutOfMemory  ErrorKind = "OutOfMemory"
	ErrorKindCorruptInput ErrorKind = "CorruptOrEmptyInput"
	ErrorKindProcessing   ErrorKind = "GenericProcessingError"
	ErrorKindStoreWrite   ErrorKind = "StoreWriteError"
)

// Description returns the operator-facing reason logged for a failure kind.
func (k ErrorKind) Description() string {
	switch k {
	case ErrorKindOutOfMemory:
		return "Not enough memory to process this PDF"
	case ErrorKindCorruptInput:
		return "PDF is corrupted or incomplete"
	case ErrorKindStoreWrite:
		return "Failed to write metadata to the store"
	default:
		return "Processing failed"
	}
}

// DomainError represents a classified error with context
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(kind ErrorKind, message string, err error) *DomainError {
	return &DomainError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func OutOfMemoryError(message string, err error) *DomainError {
	return NewError(ErrorKindOutOfMemory, message, err)
}

func CorruptInputError(message string, err error) *DomainError {
	return NewError(ErrorKindCorruptInput, message, err)
}

func ProcessingError(message string, err error) *DomainError {
	return NewError(ErrorKindProcessing, message, err)
}

func StoreWriteError(message string, err error) *DomainError {
	return NewError(ErrorKindStoreWrite, message, err)
}

// Classify maps an error chain onto the failure taxonomy. The outermost
// DomainError wins; anything unclassified is a generic processing error.
func Classify(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrorKindProcessing
}
