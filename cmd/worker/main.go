/**
 * Transcript Worker - Main Entry Point
 *
 * Go worker that reconstructs chat transcripts from screenshot batches.
 *
 * Architecture:
 * - Asynq or plain-Redis consumer for the job queue (QUEUE_DRIVER)
 * - OCR via embedded Tesseract or a remote detection service
 * - Heuristic reconstruction pipeline with optional LLM refinement
 * - PostgreSQL persistence for job status and transcripts
 */

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chatlens/transcript-worker/internal/clients"
	"github.com/chatlens/transcript-worker/internal/config"
	"github.com/chatlens/transcript-worker/internal/logging"
	"github.com/chatlens/transcript-worker/internal/ocr"
	"github.com/chatlens/transcript-worker/internal/pipeline"
	"github.com/chatlens/transcript-worker/internal/processor"
	"github.com/chatlens/transcript-worker/internal/queue"
	"github.com/chatlens/transcript-worker/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env not found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Transcript Worker starting...")
	log.Printf("Configuration loaded: Redis=%s, Queue=%s (%s), OCR=%s, Workers=%d",
		cfg.RedisURL, cfg.QueueName, cfg.QueueDriver, cfg.OCREngine, cfg.WorkerConcurrency)

	// Connect to PostgreSQL
	log.Printf("Connecting to PostgreSQL...")
	postgres, err := storage.NewPostgresClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	log.Printf("PostgreSQL connected")

	// Select OCR engine
	engine, err := buildEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize OCR engine: %v", err)
	}
	log.Printf("OCR engine initialized: %s", engine.Name())

	// Build the reconstruction pipeline
	pipelineLogger := logging.NewLogger("pipeline")
	th := pipeline.DefaultThresholds()
	th.MaxImageSide = cfg.MaxImageSide

	opts := []pipeline.Option{pipeline.WithParallelism(cfg.PipelineConcurrency)}

	if cfg.NoisePatternsPath != "" {
		filter := pipeline.NewNoiseFilter(th)
		if err := filter.LoadPatternFile(cfg.NoisePatternsPath); err != nil {
			log.Fatalf("Failed to load noise patterns from %s: %v", cfg.NoisePatternsPath, err)
		}
		opts = append(opts, pipeline.WithNoiseFilter(filter))
		log.Printf("Loaded operator noise patterns from %s", cfg.NoisePatternsPath)
	}

	if cfg.RefinementEnabled() {
		refiner := clients.NewRefineClient(clients.RefineConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.RefineTimeout,
		}, logging.NewLogger("refine"))
		opts = append(opts, pipeline.WithRefiner(refiner))
		log.Printf("Refinement enabled (model=%s)", cfg.OpenAIModel)
	} else {
		log.Printf("Refinement disabled (no API key configured)")
	}

	reconstructor := pipeline.NewReconstructor(engine, th, pipelineLogger, opts...)

	// Initialize the job processor
	proc, err := processor.NewTranscriptProcessor(&processor.ProcessorConfig{
		MaxImages:     cfg.MaxImages,
		MaxImageBytes: cfg.MaxImageBytes,
		OCREngine:     cfg.OCREngine,
		Postgres:      postgres,
	}, reconstructor, logging.NewLogger("processor"))
	if err != nil {
		log.Fatalf("Failed to initialize processor: %v", err)
	}

	// Start the queue consumer selected by QUEUE_DRIVER
	stop, err := startConsumer(cfg, proc)
	if err != nil {
		log.Fatalf("Failed to start queue consumer: %v", err)
	}

	log.Printf("===========================================")
	log.Printf("Transcript Worker is READY")
	log.Printf("===========================================")
	log.Printf("Queue: %s (%s driver)", cfg.QueueName, cfg.QueueDriver)
	log.Printf("Workers: %d", cfg.WorkerConcurrency)
	log.Printf("OCR engine: %s", cfg.OCREngine)
	log.Printf("Max images per job: %d", cfg.MaxImages)
	log.Printf("===========================================")
	log.Printf("Waiting for jobs...")

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	if err := stop(); err != nil {
		log.Printf("Error stopping queue consumer: %v", err)
	} else {
		log.Printf("Queue consumer stopped successfully")
	}

	if err := postgres.Close(); err != nil {
		log.Printf("Error closing PostgreSQL connection: %v", err)
	}

	log.Printf("Shutdown complete")
}

// buildEngine picks the OCR implementation from configuration.
func buildEngine(cfg *config.Config) (ocr.Engine, error) {
	switch cfg.OCREngine {
	case "remote":
		return ocr.NewRemoteEngine(cfg.RemoteOCRURL), nil
	case "tesseract":
		return ocr.NewTesseractEngine(&ocr.TesseractConfig{
			Language: cfg.TesseractLang,
		})
	default:
		return nil, fmt.Errorf("unknown OCR engine: %s", cfg.OCREngine)
	}
}

// startConsumer wires the processor into the configured queue driver and
// returns the matching stop function.
func startConsumer(cfg *config.Config, proc processor.TranscriptProcessorInterface) (func() error, error) {
	switch cfg.QueueDriver {
	case "redis":
		consumer, err := queue.NewRedisConsumer(&queue.RedisConsumerConfig{
			RedisURL:          cfg.RedisURL,
			QueueName:         cfg.QueueName,
			Concurrency:       cfg.WorkerConcurrency,
			Processor:         proc,
			ProcessingTimeout: cfg.ProcessingTimeout,
		})
		if err != nil {
			return nil, err
		}
		if err := consumer.Start(); err != nil {
			return nil, err
		}
		return consumer.Stop, nil

	case "asynq":
		consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
			RedisURL:          cfg.RedisURL,
			QueueName:         cfg.QueueName,
			Concurrency:       cfg.WorkerConcurrency,
			Processor:         proc,
			ProcessingTimeout: cfg.ProcessingTimeout,
		})
		if err != nil {
			return nil, err
		}
		if err := consumer.Start(context.Background()); err != nil {
			return nil, err
		}
		return func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return consumer.Stop(ctx)
		}, nil

	default:
		return nil, fmt.Errorf("unknown queue driver: %s", cfg.QueueDriver)
	}
}
