package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/pkg/jobs"
)

const auditJobType = "audit_log"

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// AuditService records audit entries through a write-behind queue.
// When the queue is not running entries are written synchronously.
type AuditService struct {
	repo    auditRepository
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditService builds the service and its queue. Call Start to enable async writes.
func NewAuditService(repo auditRepository, cfg jobs.QueueConfig, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, metrics: metrics, logger: logger}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s.queue = jobs.NewQueue("audit", s.handle, cfg)
	return s
}

// Start launches the queue workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains buffered entries and stops the workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record stores an audit entry. Failures are logged and never returned.
func (s *AuditService) Record(ctx context.Context, entry *models.AuditLog) {
	if s == nil || entry == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if s.queue.Running() {
		err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: auditJobType, Payload: entry})
		if err == nil {
			return
		}
		s.logger.Warn("audit queue rejected entry, writing inline", zap.String("action", entry.Action), zap.Error(err))
	}

	err := s.repo.Create(ctx, entry)
	s.metrics.RecordAuditWrite("sync", err)
	if err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.AuditLog)
	if !ok {
		s.logger.Error("unexpected audit payload", zap.String("type", job.Type))
		return nil
	}
	err := s.repo.Create(ctx, entry)
	s.metrics.RecordAuditWrite("async", err)
	return err
}

// auditValues encodes a small map for the old/new values columns.
func auditValues(values map[string]interface{}) []byte {
	if len(values) == 0 {
		return nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return raw
}

func auditEntry(userID, action, resource, resourceID string, meta models.RequestMeta, newValues map[string]interface{}) *models.AuditLog {
	entry := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		NewValues: auditValues(newValues),
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if userID != "" {
		entry.UserID = &userID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	return entry
}
