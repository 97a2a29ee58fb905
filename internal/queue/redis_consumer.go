/**
 * Direct Redis Queue Consumer for Transcript Worker
 *
 * Compatible with the TypeScript RedisQueue implementation the API uses.
 * Plain Redis LIST operations, no broker library on the wire.
 */

package queue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chatlens/transcript-worker/internal/errors"
	"github.com/chatlens/transcript-worker/internal/processor"
)

// RedisJobData represents a job from the Redis queue
type RedisJobData struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Payload    JobPayload `json:"payload"`
	CreatedAt  time.Time  `json:"createdAt"`
	Attempts   int        `json:"attempts"`
	MaxRetries int        `json:"maxRetries"`
}

// JobPayload contains the actual job data
type JobPayload struct {
	JobID         string                 `json:"jobId"`
	UserID        string                 `json:"userId"`
	Images        [][]byte               // set by custom UnmarshalJSON
	UseRefinement bool                   `json:"useRefinement,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// UnmarshalJSON decodes the images array, accepting both base64 strings and
// legacy Node.js Buffer objects ({"type":"Buffer","data":[...]}).
func (p *JobPayload) UnmarshalJSON(data []byte) error {
	type Alias JobPayload
	aux := &struct {
		Images []interface{} `json:"images,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(p),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("failed to unmarshal JobPayload: %w", err)
	}

	p.Images = make([][]byte, 0, len(aux.Images))
	for i, entry := range aux.Images {
		switch v := entry.(type) {
		case string:
			decoded, err := base64.StdEncoding.DecodeString(v)
			if err != nil {
				return fmt.Errorf("failed to decode base64 image %d: %w", i, err)
			}
			p.Images = append(p.Images, decoded)

		case map[string]interface{}:
			if bufferType, ok := v["type"].(string); !ok || bufferType != "Buffer" {
				return fmt.Errorf("image %d: invalid Buffer object format (missing or incorrect 'type' field)", i)
			}
			dataArray, ok := v["data"].([]interface{})
			if !ok {
				return fmt.Errorf("image %d: Buffer object missing 'data' array", i)
			}
			raw := make([]byte, len(dataArray))
			for j, val := range dataArray {
				byteVal, ok := val.(float64)
				if !ok {
					return fmt.Errorf("image %d: invalid byte value in Buffer data array at index %d", i, j)
				}
				raw[j] = byte(byteVal)
			}
			p.Images = append(p.Images, raw)

		default:
			return fmt.Errorf("image %d must be either base64 string or Buffer object, got %T", i, v)
		}
	}

	return nil
}

// RedisConsumer handles job consumption from Redis queue
type RedisConsumer struct {
	client    *redis.Client
	processor processor.TranscriptProcessorInterface
	config    *RedisConsumerConfig
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// RedisConsumerConfig holds consumer configuration
type RedisConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.TranscriptProcessorInterface
	ProcessingTimeout time.Duration // default 5 minutes
}

// NewRedisConsumer creates a new Redis-based queue consumer
func NewRedisConsumer(cfg *RedisConsumerConfig) (*RedisConsumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	if cfg.QueueName == "" {
		cfg.QueueName = "transcript-jobs"
	}

	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	consumerCtx, cancel := context.WithCancel(context.Background())

	return &RedisConsumer{
		client:    client,
		processor: cfg.Processor,
		config:    cfg,
		ctx:       consumerCtx,
		cancel:    cancel,
	}, nil
}

// Start begins processing jobs from the queue
func (c *RedisConsumer) Start() error {
	log.Printf("Starting Redis queue consumer (concurrency=%d, queue=%s)...",
		c.config.Concurrency, c.config.QueueName)

	for i := 0; i < c.config.Concurrency; i++ {
		c.wg.Add(1)
		go c.worker(i)
	}

	log.Println("Queue consumer started successfully")
	return nil
}

// Stop gracefully stops the consumer
func (c *RedisConsumer) Stop() error {
	log.Println("Stopping queue consumer...")
	c.cancel()
	c.wg.Wait()
	return c.client.Close()
}

// worker is a goroutine that processes jobs
func (c *RedisConsumer) worker(id int) {
	defer c.wg.Done()
	log.Printf("Worker %d started", id)

	for {
		select {
		case <-c.ctx.Done():
			log.Printf("Worker %d stopping", id)
			return
		default:
			if err := c.processNextJob(); err != nil {
				if err.Error() != "no jobs available" {
					log.Printf("Worker %d error: %v", id, err)
				}
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// processNextJob fetches and processes the next job from the queue
func (c *RedisConsumer) processNextJob() error {
	// Block for up to 5 seconds waiting for a job
	result, err := c.client.BRPop(c.ctx, 5*time.Second, c.config.QueueName).Result()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("no jobs available")
		}
		return fmt.Errorf("failed to fetch job: %w", err)
	}

	if len(result) < 2 {
		return fmt.Errorf("invalid job result")
	}

	jobID := result[1]

	jobData, err := c.client.HGet(c.ctx, fmt.Sprintf("%s:data", c.config.QueueName), jobID).Result()
	if err != nil {
		return fmt.Errorf("failed to get job data: %w", err)
	}

	var job RedisJobData
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	// Ensure a job row exists before processing starts; idempotent upsert.
	if err := c.processor.UpdateJobStatus(c.ctx, job.Payload.JobID, "processing", 0, map[string]interface{}{
		"userId":     job.Payload.UserID,
		"imageCount": len(job.Payload.Images),
	}); err != nil {
		log.Printf("Note: Could not update job status to processing (job may not exist in DB yet): %v", err)
	}

	c.updateJobStatus(job.Payload.JobID, "processing", nil)

	log.Printf("Processing job %s: %d images", job.Payload.JobID, len(job.Payload.Images))

	processResult, err := c.processJob(&job)
	if err != nil {
		log.Printf("Job %s failed: %v", job.Payload.JobID, err)

		job.Attempts++
		if job.Attempts < job.MaxRetries {
			updatedData, _ := json.Marshal(job)
			c.client.HSet(c.ctx, fmt.Sprintf("%s:data", c.config.QueueName), job.ID, updatedData)
			c.client.LPush(c.ctx, c.config.QueueName, job.ID)
			log.Printf("Job %s re-queued for retry (attempt %d/%d)", job.Payload.JobID, job.Attempts, job.MaxRetries)
		} else {
			c.updateJobStatus(job.Payload.JobID, "failed", map[string]interface{}{
				"error":    err.Error(),
				"attempts": job.Attempts,
			})
		}
	} else {
		c.updateJobStatus(job.Payload.JobID, "completed", processResult)
		log.Printf("Job %s completed successfully", job.Payload.JobID)
	}

	return nil
}

// processJob runs the reconstruction with a timeout
func (c *RedisConsumer) processJob(job *RedisJobData) (*processor.ProcessResult, error) {
	startTime := time.Now()

	request := &processor.ProcessRequest{
		JobID:         job.Payload.JobID,
		UserID:        job.Payload.UserID,
		Images:        job.Payload.Images,
		UseRefinement: job.Payload.UseRefinement,
		Metadata:      job.Payload.Metadata,
	}

	timeout := 5 * time.Minute
	if c.config.ProcessingTimeout > 0 {
		timeout = c.config.ProcessingTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := c.processor.ProcessJob(ctx, request)

	duration := time.Since(startTime)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			log.Printf("[Job %s] Processing timed out after %v (timeout: %v)", job.Payload.JobID, duration, timeout)

			timeoutErr := errors.NewProcessingTimeoutError(job.Payload.JobID, timeout, err)

			if updateErr := c.processor.UpdateJobStatus(c.ctx, job.Payload.JobID, "failed", 100, timeoutErr.ToMap()); updateErr != nil {
				log.Printf("[Job %s] Warning: Failed to update status to failed: %v", job.Payload.JobID, updateErr)
			}

			return nil, fmt.Errorf("processing timeout: %w", timeoutErr)
		}

		return nil, err
	}

	log.Printf("[Job %s] Processing completed in %v", job.Payload.JobID, duration)
	return result, nil
}

// updateJobStatus updates the status of a job in both Redis AND PostgreSQL
func (c *RedisConsumer) updateJobStatus(jobID string, status string, result interface{}) {
	// Redis sets drive queue introspection and the API's polling endpoints
	if status == "processing" {
		c.client.SAdd(c.ctx, fmt.Sprintf("%s:processing", c.config.QueueName), jobID)
	} else if status == "completed" {
		c.client.SRem(c.ctx, fmt.Sprintf("%s:processing", c.config.QueueName), jobID)
		c.client.SAdd(c.ctx, fmt.Sprintf("%s:completed", c.config.QueueName), jobID)
		if result != nil {
			resultData, _ := json.Marshal(result)
			c.client.HSet(c.ctx, fmt.Sprintf("%s:results", c.config.QueueName), jobID, resultData)
		}
	} else if status == "failed" {
		c.client.SRem(c.ctx, fmt.Sprintf("%s:processing", c.config.QueueName), jobID)
		c.client.SAdd(c.ctx, fmt.Sprintf("%s:failed", c.config.QueueName), jobID)
		if result != nil {
			errorData, _ := json.Marshal(result)
			c.client.HSet(c.ctx, fmt.Sprintf("%s:errors", c.config.QueueName), jobID, errorData)
		}
	}

	// PostgreSQL for persistent job tracking. Completed jobs are persisted
	// inside ProcessJob with the full result; only failures need a write
	// here.
	if status == "failed" {
		errorMsg := "Unknown error"
		if resultMap, ok := result.(map[string]interface{}); ok {
			if errStr, ok := resultMap["error"].(string); ok {
				errorMsg = errStr
			}
		}

		if err := c.processor.UpdateJobStatus(c.ctx, jobID, status, 0, map[string]interface{}{
			"error": errorMsg,
		}); err != nil {
			log.Printf("WARNING: Failed to update PostgreSQL job status for failed job: %v", err)
		}
	}

	// Publish event for WebSocket streaming
	event := map[string]interface{}{
		"event":     fmt.Sprintf("job:%s", status),
		"jobId":     jobID,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	eventData, _ := json.Marshal(event)
	c.client.Publish(c.ctx, fmt.Sprintf("%s:events", c.config.QueueName), eventData)
}

// GetStats returns queue statistics
func (c *RedisConsumer) GetStats() (map[string]int64, error) {
	ctx := context.Background()

	waiting, _ := c.client.LLen(ctx, c.config.QueueName).Result()
	processing, _ := c.client.SCard(ctx, fmt.Sprintf("%s:processing", c.config.QueueName)).Result()
	completed, _ := c.client.SCard(ctx, fmt.Sprintf("%s:completed", c.config.QueueName)).Result()
	failed, _ := c.client.SCard(ctx, fmt.Sprintf("%s:failed", c.config.QueueName)).Result()

	return map[string]int64{
		"waiting":    waiting,
		"processing": processing,
		"completed":  completed,
		"failed":     failed,
	}, nil
}
