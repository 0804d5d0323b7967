package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dlool-api/internal/models"
	"github.com/noah-isme/dlool-api/pkg/jobs"
)

// AuditRecorder accepts audit entries. Recording never fails the caller.
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLog)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService writes audit entries from a background worker pool so request
// handling never waits on the audit table.
type AuditService struct {
	queue   *jobs.Queue[models.AuditLog]
	metrics *MetricsService
	logger  *zap.Logger
}

// AuditConfig sizes the worker pool.
type AuditConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NewAuditService builds the dispatcher. Call Start before Record.
func NewAuditService(repo auditWriter, cfg AuditConfig, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job[models.AuditLog]) error {
		entry := job.Payload
		return repo.CreateAuditLog(ctx, &entry)
	}
	queue := jobs.NewQueue[models.AuditLog]("audit", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return &AuditService{queue: queue, metrics: metrics, logger: logger}
}

// Start launches the workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop flushes buffered entries and stops the workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record queues entry. Entries that cannot be queued within a short grace
// period are logged and dropped.
func (s *AuditService) Record(ctx context.Context, entry *models.AuditLog) {
	if entry == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 100*time.Millisecond)
	defer cancel()

	if err := s.queue.Enqueue(enqueueCtx, jobs.Job[models.AuditLog]{ID: entry.ID, Type: entry.Action, Payload: *entry}); err != nil {
		s.metrics.RecordAuditDropped()
		s.logger.Warn("failed to queue audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

// auditValues encodes v for an audit log column, returning nil on failure.
func auditValues(v interface{}) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func strPtr(s string) *string {
	return &s
}
