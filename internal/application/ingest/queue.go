package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"creditline-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Ingestion kinds. "all" loads both files in one run.
const (
	KindCustomers = "customers"
	KindLoans     = "loans"
	KindAll       = "all"
)

const queueKey = "ingest:jobs"

var ErrRunNotFound = errors.New("ingestion run not found")

// Job is the queued unit of work. File paths are resolved at enqueue time so
// the worker needs no config of its own.
type Job struct {
	RunID        uuid.UUID `json:"run_id"`
	Kind         string    `json:"kind"`
	CustomerFile string    `json:"customer_file,omitempty"`
	LoanFile     string    `json:"loan_file,omitempty"`
}

// Queue persists one IngestionRun row per job and hands the job to the worker
// through a Redis list.
type Queue struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

// Enqueue records a queued run and pushes the job.
func (q *Queue) Enqueue(ctx context.Context, job Job) (*domain.IngestionRun, error) {
	run := domain.IngestionRun{
		Kind:   job.Kind,
		Status: domain.RunQueued,
	}
	if err := q.DB.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, err
	}
	job.RunID = run.RunID

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	if err := q.Rdb.LPush(ctx, queueKey, payload).Err(); err != nil {
		// Leave the run row behind as failed so the caller is not left with a
		// queued run nothing will ever pick up.
		_ = q.DB.WithContext(ctx).Model(&run).Update("status", domain.RunFailed).Error
		return nil, err
	}
	return &run, nil
}

// Dequeue blocks up to timeout for the next job. Returns (nil, nil) when the
// queue stayed empty.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	values, err := q.Rdb.BRPop(ctx, timeout, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	// BRPOP returns [key, value].
	var job Job
	if err := json.Unmarshal([]byte(values[1]), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetRun fetches one run row for status polling.
func (q *Queue) GetRun(ctx context.Context, runID uuid.UUID) (*domain.IngestionRun, error) {
	var run domain.IngestionRun
	err := q.DB.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}
