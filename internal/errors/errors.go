package errors

import (
	"fmt"
	"time"
)

/**
 * Custom error types for the transcript reconstruction worker.
 *
 * Per-image failures (decode, OCR) are skipped and logged, never fatal for
 * the batch. Refinement failures are converted into a heuristic fallback.
 * The only hard failure a reconstruction job can produce is the total
 * inability to decode any input image.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Reconstruction errors
	ErrorImageDecodeFailed ErrorCode = "IMAGE_DECODE_FAILED"
	ErrorOCRFailed         ErrorCode = "OCR_FAILED"
	ErrorRefinementFailed  ErrorCode = "REFINEMENT_FAILED"
	ErrorNoUsableImages    ErrorCode = "NO_USABLE_IMAGES"

	// Job handling errors
	ErrorProcessingTimeout ErrorCode = "PROCESSING_TIMEOUT"
	ErrorInvalidJob        ErrorCode = "INVALID_JOB"

	// Storage errors
	ErrorStorageFailed ErrorCode = "STORAGE_FAILED"
)

// ReconstructionError represents a structured processing error
type ReconstructionError struct {
	Code      ErrorCode
	Message   string
	JobID     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ReconstructionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ReconstructionError) Unwrap() error {
	return e.Cause
}

// Factory functions for common errors

func NewImageDecodeError(imageIndex int, cause error) *ReconstructionError {
	return &ReconstructionError{
		Code:      ErrorImageDecodeFailed,
		Message:   fmt.Sprintf("Failed to decode image %d", imageIndex),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"image_index": imageIndex,
		},
		Cause: cause,
	}
}

func NewOCRFailedError(imageIndex int, engine string, cause error) *ReconstructionError {
	return &ReconstructionError{
		Code:      ErrorOCRFailed,
		Message:   fmt.Sprintf("OCR failed on image %d (engine: %s)", imageIndex, engine),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"image_index": imageIndex,
			"ocr_engine":  engine,
		},
		Cause: cause,
	}
}

func NewRefinementFailedError(cause error) *ReconstructionError {
	return &ReconstructionError{
		Code:      ErrorRefinementFailed,
		Message:   "Generative refinement failed, falling back to heuristic ordering",
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewNoUsableImagesError(imageCount int) *ReconstructionError {
	return &ReconstructionError{
		Code:      ErrorNoUsableImages,
		Message:   fmt.Sprintf("None of the %d input images produced a usable OCR result", imageCount),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"image_count": imageCount,
		},
	}
}

func NewProcessingTimeoutError(jobID string, duration time.Duration, cause error) *ReconstructionError {
	return &ReconstructionError{
		Code:      ErrorProcessingTimeout,
		Message:   fmt.Sprintf("Processing timed out after %v", duration),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": duration.String(),
		},
		Cause: cause,
	}
}

func NewInvalidJobError(jobID string, reason string) *ReconstructionError {
	return &ReconstructionError{
		Code:      ErrorInvalidJob,
		Message:   reason,
		JobID:     jobID,
		Timestamp: time.Now(),
	}
}

func NewStorageFailedError(jobID string, cause error) *ReconstructionError {
	return &ReconstructionError{
		Code:      ErrorStorageFailed,
		Message:   "Failed to store reconstruction results",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// ToMap converts error to map for database storage
func (e *ReconstructionError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
