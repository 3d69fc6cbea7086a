package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"creditline-backend/internal/domain"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// Worker drains the ingestion queue and stamps run status and counters.
type Worker struct {
	Queue   *Queue
	Service *Service

	// PollTimeout bounds each BRPOP so the loop can observe ctx cancellation.
	PollTimeout time.Duration
}

// Run processes jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	timeout := w.PollTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := w.Queue.Dequeue(ctx, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("dequeue failed")
			continue
		}
		if job == nil {
			continue
		}
		w.Process(ctx, job)
	}
}

// Process executes one job and records the outcome on its run row.
func (w *Worker) Process(ctx context.Context, job *Job) {
	db := w.Queue.DB.WithContext(ctx)
	_ = db.Model(&domain.IngestionRun{}).Where("run_id = ?", job.RunID).
		Update("status", domain.RunRunning).Error

	detail, err := w.execute(ctx, job)
	status := domain.RunSucceeded
	if err != nil {
		status = domain.RunFailed
		detail = map[string]interface{}{"error": err.Error()}
		log.Error().Err(err).Str("run_id", job.RunID.String()).Str("kind", job.Kind).Msg("ingestion failed")
	} else {
		log.Info().Str("run_id", job.RunID.String()).Str("kind", job.Kind).Msg("ingestion finished")
	}

	payload, _ := json.Marshal(detail)
	_ = db.Model(&domain.IngestionRun{}).Where("run_id = ?", job.RunID).
		Updates(map[string]interface{}{"status": status, "detail": datatypes.JSON(payload)}).Error
}

func (w *Worker) execute(ctx context.Context, job *Job) (interface{}, error) {
	switch job.Kind {
	case KindCustomers:
		return w.Service.IngestCustomers(ctx, job.CustomerFile)
	case KindLoans:
		return w.Service.IngestLoans(ctx, job.LoanFile)
	case KindAll:
		customers, err := w.Service.IngestCustomers(ctx, job.CustomerFile)
		if err != nil {
			return nil, err
		}
		loans, err := w.Service.IngestLoans(ctx, job.LoanFile)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"customer_ingestion": customers,
			"loan_ingestion":     loans,
		}, nil
	default:
		return nil, fmt.Errorf("unknown ingestion kind %q", job.Kind)
	}
}
