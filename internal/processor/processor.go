/**
 * Transcript Processor - Job-level orchestration
 *
 * Sits between the queue consumers and the reconstruction pipeline:
 * validates job payloads, enforces image limits, runs the pipeline, and
 * persists the outcome to PostgreSQL.
 */

package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/chatlens/transcript-worker/internal/errors"
	"github.com/chatlens/transcript-worker/internal/logging"
	"github.com/chatlens/transcript-worker/internal/pipeline"
	"github.com/chatlens/transcript-worker/internal/storage"
)

// TranscriptProcessorInterface is what the queue consumers depend on.
type TranscriptProcessorInterface interface {
	ProcessJob(ctx context.Context, req *ProcessRequest) (*ProcessResult, error)
	UpdateJobStatus(ctx context.Context, jobID string, status string, progress int, metadata map[string]interface{}) error
}

// ProcessorConfig holds processor configuration
type ProcessorConfig struct {
	MaxImages     int
	MaxImageBytes int64
	OCREngine     string
	Postgres      *storage.PostgresClient
}

// ProcessRequest represents a transcript reconstruction request
type ProcessRequest struct {
	JobID         string
	UserID        string
	Images        [][]byte
	UseRefinement bool
	Metadata      map[string]interface{}
}

// ProcessResult represents the reconstruction result
type ProcessResult struct {
	Transcript       string
	PartnerName      string
	ImageCount       int
	MessageCount     int
	Refined          bool
	ProcessingTimeMs int64
}

// TranscriptProcessor handles transcript reconstruction jobs
type TranscriptProcessor struct {
	config        *ProcessorConfig
	reconstructor *pipeline.Reconstructor
	postgres      *storage.PostgresClient
	logger        *logging.Logger
}

// NewTranscriptProcessor creates a new processor
func NewTranscriptProcessor(cfg *ProcessorConfig, rec *pipeline.Reconstructor, logger *logging.Logger) (*TranscriptProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if rec == nil {
		return nil, fmt.Errorf("reconstructor is required")
	}
	if cfg.Postgres == nil {
		return nil, fmt.Errorf("postgres client is required")
	}
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = 10
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 10 << 20
	}

	return &TranscriptProcessor{
		config:        cfg,
		reconstructor: rec,
		postgres:      cfg.Postgres,
		logger:        logger,
	}, nil
}

// ProcessJob validates the request, runs the pipeline, and stores the result.
func (p *TranscriptProcessor) ProcessJob(ctx context.Context, req *ProcessRequest) (*ProcessResult, error) {
	start := time.Now()

	if err := p.validate(req); err != nil {
		return nil, err
	}

	p.logger.Info("job started",
		"job_id", req.JobID,
		"user_id", req.UserID,
		"images", len(req.Images),
		"use_refinement", req.UseRefinement)

	conv, err := p.reconstructor.Reconstruct(ctx, req.Images, req.UseRefinement)
	if err != nil {
		return nil, err
	}

	result := &ProcessResult{
		Transcript:       conv.Transcript,
		PartnerName:      conv.PartnerName,
		ImageCount:       conv.ImageCount,
		MessageCount:     len(conv.Messages),
		Refined:          conv.Refined,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}

	if err := p.postgres.UpdateJobStatus(ctx, &storage.JobUpdate{
		JobID:            req.JobID,
		Status:           "completed",
		Transcript:       result.Transcript,
		PartnerName:      result.PartnerName,
		ImageCount:       result.ImageCount,
		MessageCount:     result.MessageCount,
		Refined:          result.Refined,
		OCREngine:        p.config.OCREngine,
		ProcessingTimeMs: result.ProcessingTimeMs,
		Metadata:         req.Metadata,
	}); err != nil {
		return nil, errors.NewStorageFailedError(req.JobID, err)
	}

	p.logger.Info("job completed",
		"job_id", req.JobID,
		"partner_name", result.PartnerName,
		"messages", result.MessageCount,
		"refined", result.Refined,
		"duration_ms", result.ProcessingTimeMs)
	return result, nil
}

// UpdateJobStatus records a status transition. Error details from a
// structured error land in the error columns; everything else goes to
// metadata.
func (p *TranscriptProcessor) UpdateJobStatus(ctx context.Context, jobID string, status string, progress int, metadata map[string]interface{}) error {
	return p.postgres.UpdateJobStatus(ctx, buildStatusUpdate(jobID, status, metadata))
}

// buildStatusUpdate maps a status transition onto a job row update. The
// metadata shape follows ReconstructionError.ToMap, so the error columns
// are filled from the "error_code" and "message" keys when present.
func buildStatusUpdate(jobID string, status string, metadata map[string]interface{}) *storage.JobUpdate {
	update := &storage.JobUpdate{
		JobID:    jobID,
		Status:   status,
		Metadata: metadata,
	}

	if metadata != nil {
		if code, ok := metadata["error_code"].(string); ok {
			update.ErrorCode = code
		}
		if msg, ok := metadata["message"].(string); ok {
			update.ErrorMessage = msg
		} else if msg, ok := metadata["error"].(string); ok {
			update.ErrorMessage = msg
		}
	}

	return update
}

func (p *TranscriptProcessor) validate(req *ProcessRequest) error {
	if req.JobID == "" {
		return errors.NewInvalidJobError("", "missing job id")
	}
	if len(req.Images) == 0 {
		return errors.NewInvalidJobError(req.JobID, "no images in payload")
	}
	if len(req.Images) > p.config.MaxImages {
		return errors.NewInvalidJobError(req.JobID,
			fmt.Sprintf("too many images: %d (limit %d)", len(req.Images), p.config.MaxImages))
	}
	for i, img := range req.Images {
		if len(img) == 0 {
			return errors.NewInvalidJobError(req.JobID, fmt.Sprintf("image %d is empty", i))
		}
		if int64(len(img)) > p.config.MaxImageBytes {
			return errors.NewInvalidJobError(req.JobID,
				fmt.Sprintf("image %d exceeds size limit: %d bytes (limit %d)", i, len(img), p.config.MaxImageBytes))
		}
	}
	return nil
}
