package ingest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"creditline-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupQueueTest(t *testing.T) (*Queue, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Customer{}, &domain.Loan{}, &domain.IngestionRun{}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return &Queue{DB: db, Rdb: rdb}, db
}

func TestQueue_EnqueueDequeueRoundTrip(t *testing.T) {
	q, db := setupQueueTest(t)
	ctx := context.Background()

	run, err := q.Enqueue(ctx, Job{Kind: KindCustomers, CustomerFile: "customer_data.xlsx"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, run.RunID)
	assert.Equal(t, domain.RunQueued, run.Status)

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, run.RunID, job.RunID)
	assert.Equal(t, KindCustomers, job.Kind)
	assert.Equal(t, "customer_data.xlsx", job.CustomerFile)

	// Run row is persisted and pollable.
	got, err := q.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunQueued, got.Status)

	var count int64
	require.NoError(t, db.Model(&domain.IngestionRun{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestQueue_DequeueEmptyReturnsNil(t *testing.T) {
	q, _ := setupQueueTest(t)

	job, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestQueue_GetRunNotFound(t *testing.T) {
	q, _ := setupQueueTest(t)

	_, err := q.GetRun(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestWorker_ProcessStampsSuccess(t *testing.T) {
	q, db := setupQueueTest(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := writeSheet(t, dir, "customers.xlsx", [][]interface{}{
		{"Customer ID", "First Name", "Last Name", "Age", "Phone Number", "Monthly Salary", "Approved Limit", "Current Debt"},
		{1, "Aarav", "Singh", 28, "9123456780", 35000, 1300000, 0},
	})

	run, err := q.Enqueue(ctx, Job{Kind: KindCustomers, CustomerFile: path})
	require.NoError(t, err)

	w := &Worker{Queue: q, Service: &Service{DB: db}}
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	w.Process(ctx, job)

	got, err := q.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunSucceeded, got.Status)

	var detail Result
	require.NoError(t, json.Unmarshal(got.Detail, &detail))
	assert.Equal(t, 1, detail.Created)
	assert.Equal(t, 1, detail.Processed)
}

func TestWorker_ProcessStampsFailure(t *testing.T) {
	q, db := setupQueueTest(t)
	ctx := context.Background()

	run, err := q.Enqueue(ctx, Job{Kind: KindLoans, LoanFile: "/nonexistent/loans.xlsx"})
	require.NoError(t, err)

	w := &Worker{Queue: q, Service: &Service{DB: db}}
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	w.Process(ctx, job)

	got, err := q.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, got.Status)

	var detail map[string]string
	require.NoError(t, json.Unmarshal(got.Detail, &detail))
	assert.NotEmpty(t, detail["error"])
}

func TestWorker_ProcessAllKind(t *testing.T) {
	q, db := setupQueueTest(t)
	ctx := context.Background()
	dir := t.TempDir()

	customers := writeSheet(t, dir, "customers.xlsx", [][]interface{}{
		{"Customer ID", "First Name", "Last Name", "Age", "Phone Number", "Monthly Salary", "Approved Limit", "Current Debt"},
		{1, "Aarav", "Singh", 28, "9123456780", 35000, 1300000, 0},
	})
	loans := writeSheet(t, dir, "loans.xlsx", [][]interface{}{
		{"Customer ID", "Loan ID", "Principal", "Tenure", "Interest Rate", "Monthly payment", "EMIs paid on Time", "Date of Approval", "End Date"},
		{1, 5001, 100000, 12, 11.5, 8861.5, 4, "2024-09-01", "2025-09-01"},
	})

	run, err := q.Enqueue(ctx, Job{Kind: KindAll, CustomerFile: customers, LoanFile: loans})
	require.NoError(t, err)

	w := &Worker{Queue: q, Service: &Service{DB: db}}
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	w.Process(ctx, job)

	got, err := q.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunSucceeded, got.Status)

	var detail map[string]Result
	require.NoError(t, json.Unmarshal(got.Detail, &detail))
	assert.Equal(t, 1, detail["customer_ingestion"].Created)
	assert.Equal(t, 1, detail["loan_ingestion"].Created)
}
