package ingest

import (
	"errors"

	ingestsvc "creditline-backend/internal/application/ingest"
	"creditline-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Queue *ingestsvc.Queue

	// Defaults used when the request does not name a file.
	CustomerDataFile string
	LoanDataFile     string
}

type enqueueBody struct {
	FilePath string `json:"file_path"`
}

// IngestCustomers POST /ingest/customers — queues a customer spreadsheet load.
func (h *Handlers) IngestCustomers(c *fiber.Ctx) error {
	var body enqueueBody
	_ = c.BodyParser(&body)
	path := body.FilePath
	if path == "" {
		path = h.CustomerDataFile
	}
	return h.enqueue(c, ingestsvc.Job{Kind: ingestsvc.KindCustomers, CustomerFile: path})
}

// IngestLoans POST /ingest/loans — queues a loan spreadsheet load.
func (h *Handlers) IngestLoans(c *fiber.Ctx) error {
	var body enqueueBody
	_ = c.BodyParser(&body)
	path := body.FilePath
	if path == "" {
		path = h.LoanDataFile
	}
	return h.enqueue(c, ingestsvc.Job{Kind: ingestsvc.KindLoans, LoanFile: path})
}

// IngestAll POST /ingest/all — queues both loads as one run.
func (h *Handlers) IngestAll(c *fiber.Ctx) error {
	return h.enqueue(c, ingestsvc.Job{
		Kind:         ingestsvc.KindAll,
		CustomerFile: h.CustomerDataFile,
		LoanFile:     h.LoanDataFile,
	})
}

// GetRun GET /ingest/runs/:run_id — status polling for a queued run.
func (h *Handlers) GetRun(c *fiber.Ctx) error {
	runID, err := uuid.Parse(c.Params("run_id"))
	if err != nil {
		return response.Error(c, "Invalid run_id", 400, nil)
	}
	run, err := h.Queue.GetRun(c.Context(), runID)
	if err != nil {
		if errors.Is(err, ingestsvc.ErrRunNotFound) {
			return response.NotFound(c, "Ingestion run not found")
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Ingestion run retrieved", run, nil)
}

func (h *Handlers) enqueue(c *fiber.Ctx, job ingestsvc.Job) error {
	run, err := h.Queue.Enqueue(c.Context(), job)
	if err != nil {
		return response.Error(c, "Failed to queue ingestion", 500, nil)
	}
	return response.Accepted(c, "Ingestion queued", fiber.Map{
		"run_id": run.RunID,
		"kind":   run.Kind,
		"status": run.Status,
	}, nil)
}
