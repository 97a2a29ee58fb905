/**
 * Queue Consumer for Transcript Worker
 *
 * Consumes reconstruction jobs from a Redis-backed queue using Asynq.
 */

package queue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/chatlens/transcript-worker/internal/errors"
	"github.com/chatlens/transcript-worker/internal/processor"
)

// TaskReconstructTranscript is the asynq task type the API enqueues.
const TaskReconstructTranscript = "reconstruct-transcript"

// JobData represents the structure of job data on the queue
type JobData struct {
	JobID         string                 `json:"jobId"`
	UserID        string                 `json:"userId"`
	Images        []string               `json:"images"` // base64-encoded screenshots, in upload order
	UseRefinement bool                   `json:"useRefinement,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// DecodeImages turns the base64 payload entries into raw bytes.
func (j *JobData) DecodeImages() ([][]byte, error) {
	out := make([][]byte, 0, len(j.Images))
	for i, enc := range j.Images {
		raw, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, fmt.Errorf("decode image %d: %w", i, err)
		}
		out = append(out, raw)
	}
	return out, nil
}

// Consumer handles job consumption from Redis queue
type Consumer struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor processor.TranscriptProcessorInterface
	config    *ConsumerConfig
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.TranscriptProcessorInterface
	ProcessingTimeout time.Duration // default 5 minutes
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}

	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10, // main queue
				"default":     1,  // fallback
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				// Exponential backoff: 5s, 10s, 20s, capped at 60s
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("Task processing error: type=%s, error=%v", task.Type(), err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	consumer := &Consumer{
		client:    client,
		server:    server,
		mux:       mux,
		processor: cfg.Processor,
		config:    cfg,
	}

	mux.HandleFunc(TaskReconstructTranscript, consumer.handleReconstruct)

	return consumer, nil
}

// Start starts the queue consumer
func (c *Consumer) Start(ctx context.Context) error {
	log.Printf("Starting queue consumer (concurrency=%d, queue=%s)...",
		c.config.Concurrency, c.config.QueueName)

	go func() {
		if err := c.server.Run(c.mux); err != nil {
			log.Printf("Queue consumer error: %v", err)
		}
	}()

	return nil
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop(ctx context.Context) error {
	log.Printf("Stopping queue consumer...")

	c.server.Shutdown()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close client: %w", err)
	}

	log.Printf("Queue consumer stopped")
	return nil
}

// handleReconstruct processes one transcript reconstruction job
func (c *Consumer) handleReconstruct(ctx context.Context, task *asynq.Task) error {
	startTime := time.Now()

	var jobData JobData
	if err := json.Unmarshal(task.Payload(), &jobData); err != nil {
		return fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	log.Printf("[Job %s] Reconstructing transcript: images=%d, user=%s, refine=%v",
		jobData.JobID, len(jobData.Images), jobData.UserID, jobData.UseRefinement)

	if err := c.processor.UpdateJobStatus(ctx, jobData.JobID, "processing", 0, map[string]interface{}{
		"userId":     jobData.UserID,
		"imageCount": len(jobData.Images),
	}); err != nil {
		log.Printf("[Job %s] Warning: Failed to update status to processing: %v", jobData.JobID, err)
	}

	images, err := jobData.DecodeImages()
	if err != nil {
		invalidErr := errors.NewInvalidJobError(jobData.JobID, err.Error())
		if updateErr := c.processor.UpdateJobStatus(ctx, jobData.JobID, "failed", 100, invalidErr.ToMap()); updateErr != nil {
			log.Printf("[Job %s] Warning: Failed to update status to failed: %v", jobData.JobID, updateErr)
		}
		// Malformed payloads never succeed; don't let asynq retry them.
		return fmt.Errorf("invalid payload: %v: %w", invalidErr, asynq.SkipRetry)
	}

	timeout := 5 * time.Minute
	if c.config.ProcessingTimeout > 0 {
		timeout = c.config.ProcessingTimeout
	}

	processCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := c.processor.ProcessJob(processCtx, &processor.ProcessRequest{
		JobID:         jobData.JobID,
		UserID:        jobData.UserID,
		Images:        images,
		UseRefinement: jobData.UseRefinement,
		Metadata:      jobData.Metadata,
	})

	duration := time.Since(startTime)

	if err != nil {
		if processCtx.Err() == context.DeadlineExceeded {
			log.Printf("[Job %s] Processing timed out after %v (timeout: %v)", jobData.JobID, duration, timeout)

			timeoutErr := errors.NewProcessingTimeoutError(jobData.JobID, timeout, err)
			if updateErr := c.processor.UpdateJobStatus(ctx, jobData.JobID, "failed", 100, timeoutErr.ToMap()); updateErr != nil {
				log.Printf("[Job %s] Warning: Failed to update status to failed: %v", jobData.JobID, updateErr)
			}

			return fmt.Errorf("processing timeout: %w", timeoutErr)
		}

		log.Printf("[Job %s] Processing failed after %v: %v", jobData.JobID, duration, err)

		if updateErr := c.processor.UpdateJobStatus(ctx, jobData.JobID, "failed", 100, map[string]interface{}{
			"error":          err.Error(),
			"processingTime": duration.Milliseconds(),
		}); updateErr != nil {
			log.Printf("[Job %s] Warning: Failed to update status to failed: %v", jobData.JobID, updateErr)
		}

		return fmt.Errorf("transcript reconstruction failed: %w", err)
	}

	log.Printf("[Job %s] Reconstruction completed in %v: partner=%s, messages=%d, refined=%v",
		jobData.JobID, duration, result.PartnerName, result.MessageCount, result.Refined)

	return nil
}

// GetStatistics returns consumer statistics
func (c *Consumer) GetStatistics() map[string]interface{} {
	return map[string]interface{}{
		"concurrency": c.config.Concurrency,
		"queue":       c.config.QueueName,
		"redisURL":    c.config.RedisURL,
	}
}
