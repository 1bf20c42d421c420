package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies a per-file processing failure.
type ErrorType string

const (
	ErrorTypeFileRead  ErrorType = "file_read"
	ErrorTypeIngestion ErrorType = "ingestion"
	ErrorTypeRemoval   ErrorType = "removal"
	ErrorTypeTimeout   ErrorType = "timeout"
	ErrorTypeStorage   ErrorType = "storage"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// ProcessingError represents an error that occurred while processing a
// single file. It never escalates to abort the cycle; it surfaces as the
// error_message on a FAILED status row.
type ProcessingError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	FilePath  string    `json:"file_path"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface for ProcessingError
func (pe *ProcessingError) Error() string {
	return fmt.Sprintf("[%s] %s (file: %s)", pe.Type, pe.Message, pe.FilePath)
}

// WrapError wraps an existing error with processing context.
func WrapError(err error, errorType ErrorType, filePath string) *ProcessingError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		errorType = ErrorTypeTimeout
	}

	return &ProcessingError{
		Type:      errorType,
		Message:   err.Error(),
		FilePath:  filePath,
		Timestamp: time.Now(),
	}
}
