/**
 * PostgreSQL Client for Transcript Worker
 *
 * Handles job persistence: status transitions and the reconstructed
 * transcript itself. The worker upserts so a job row exists even when the
 * API side has not created it yet.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresClient handles database operations
type PostgresClient struct {
	db *sql.DB
}

// JobUpdate represents a job status update
type JobUpdate struct {
	JobID            string
	Status           string
	Transcript       string
	PartnerName      string
	ImageCount       int
	MessageCount     int
	Refined          bool
	OCREngine        string
	ProcessingTimeMs int64
	ErrorCode        string
	ErrorMessage     string
	Metadata         map[string]interface{}
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(databaseURL string) (*PostgresClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

// UpdateJobStatus upserts a job row with the given status and, when present,
// the reconstruction result. Empty strings and zero counts leave existing
// column values untouched so a failure update cannot erase a stored
// transcript.
func (p *PostgresClient) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	if update.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	if update.Status == "" {
		return fmt.Errorf("status is required")
	}

	metadataJSON, err := json.Marshal(update.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	// Extract the submitting user from metadata when the API did not create
	// the row first.
	var userID string
	if update.Metadata != nil {
		if uid, ok := update.Metadata["userId"].(string); ok {
			userID = uid
		}
	}

	query := `
		INSERT INTO chatlens.transcript_jobs (
			id, user_id, status, transcript, partner_name,
			image_count, message_count, refined, ocr_engine,
			processing_time_ms, error_code, error_message, metadata,
			created_at, updated_at
		) VALUES (
			$1::uuid, COALESCE(NULLIF($13, ''), 'anonymous'),
			$2, NULLIF($3, ''), NULLIF($4, ''),
			NULLIF($5, 0), NULLIF($6, 0), $7, NULLIF($8, ''),
			NULLIF($9, 0), NULLIF($10, ''), NULLIF($11, ''),
			COALESCE($12::jsonb, '{}'::jsonb),
			NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			transcript = COALESCE(EXCLUDED.transcript, chatlens.transcript_jobs.transcript),
			partner_name = COALESCE(EXCLUDED.partner_name, chatlens.transcript_jobs.partner_name),
			image_count = COALESCE(EXCLUDED.image_count, chatlens.transcript_jobs.image_count),
			message_count = COALESCE(EXCLUDED.message_count, chatlens.transcript_jobs.message_count),
			refined = EXCLUDED.refined OR chatlens.transcript_jobs.refined,
			ocr_engine = COALESCE(EXCLUDED.ocr_engine, chatlens.transcript_jobs.ocr_engine),
			processing_time_ms = COALESCE(EXCLUDED.processing_time_ms, chatlens.transcript_jobs.processing_time_ms),
			error_code = NULLIF(EXCLUDED.error_code, ''),
			error_message = NULLIF(EXCLUDED.error_message, ''),
			metadata = COALESCE(EXCLUDED.metadata, chatlens.transcript_jobs.metadata),
			user_id = COALESCE(EXCLUDED.user_id, chatlens.transcript_jobs.user_id),
			updated_at = NOW()
		RETURNING id
	`

	var returnedID string
	err = p.db.QueryRowContext(
		ctx,
		query,
		update.JobID,            // $1 - job id
		update.Status,           // $2 - status
		update.Transcript,       // $3 - transcript
		update.PartnerName,      // $4 - partner_name
		update.ImageCount,       // $5 - image_count
		update.MessageCount,     // $6 - message_count
		update.Refined,          // $7 - refined
		update.OCREngine,        // $8 - ocr_engine
		update.ProcessingTimeMs, // $9 - processing_time_ms
		update.ErrorCode,        // $10 - error_code
		update.ErrorMessage,     // $11 - error_message
		metadataJSON,            // $12 - metadata
		userID,                  // $13 - user_id
	).Scan(&returnedID)

	if err == sql.ErrNoRows {
		return fmt.Errorf("job not found: %s", update.JobID)
	}

	if err != nil {
		return fmt.Errorf("failed to update job status (job=%s, status=%s): %w",
			update.JobID, update.Status, err)
	}

	return nil
}

// GetJobByID retrieves a job by ID
func (p *PostgresClient) GetJobByID(ctx context.Context, jobID string) (map[string]interface{}, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}

	query := `
		SELECT
			id,
			user_id,
			status,
			transcript,
			partner_name,
			image_count,
			message_count,
			refined,
			ocr_engine,
			processing_time_ms,
			error_code,
			error_message,
			metadata,
			created_at,
			updated_at
		FROM chatlens.transcript_jobs
		WHERE id = $1::uuid
	`

	var (
		id, userID                 string
		status                     sql.NullString
		transcript, partnerName    sql.NullString
		imageCount, messageCount   sql.NullInt64
		refined                    sql.NullBool
		ocrEngine                  sql.NullString
		processingTimeMs           sql.NullInt64
		errorCode, errorMessage    sql.NullString
		metadataJSON               []byte
		createdAt, updatedAt       time.Time
	)

	err := p.db.QueryRowContext(ctx, query, jobID).Scan(
		&id, &userID, &status, &transcript, &partnerName,
		&imageCount, &messageCount, &refined, &ocrEngine,
		&processingTimeMs, &errorCode, &errorMessage,
		&metadataJSON, &createdAt, &updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	// Parse metadata
	var metadata map[string]interface{}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	result := map[string]interface{}{
		"id":        id,
		"userId":    userID,
		"status":    status.String,
		"createdAt": createdAt,
		"updatedAt": updatedAt,
		"metadata":  metadata,
	}

	if transcript.Valid {
		result["transcript"] = transcript.String
	}
	if partnerName.Valid {
		result["partnerName"] = partnerName.String
	}
	if imageCount.Valid {
		result["imageCount"] = imageCount.Int64
	}
	if messageCount.Valid {
		result["messageCount"] = messageCount.Int64
	}
	if refined.Valid {
		result["refined"] = refined.Bool
	}
	if ocrEngine.Valid {
		result["ocrEngine"] = ocrEngine.String
	}
	if processingTimeMs.Valid {
		result["processingTimeMs"] = processingTimeMs.Int64
	}
	if errorCode.Valid {
		result["errorCode"] = errorCode.String
	}
	if errorMessage.Valid {
		result["errorMessage"] = errorMessage.String
	}

	return result, nil
}

// Ping checks database connectivity
func (p *PostgresClient) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *PostgresClient) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// GetStats returns connection pool statistics
func (p *PostgresClient) GetStats() sql.DBStats {
	return p.db.Stats()
}
