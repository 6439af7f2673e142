package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"waffle-pos-backend/internal/logger"
	"waffle-pos-backend/internal/models"
	"waffle-pos-backend/internal/repository"

	"github.com/google/uuid"
)

type LogOptions struct {
	UserID      string
	UserName    string
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

type Service struct {
	repo repository.AuditRepository
	now  func() time.Time
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) WriteLog(ctx context.Context, opts LogOptions) error {
	// jsonb columns need a JSON null, not an empty string
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	entry := models.AuditLog{
		ID:          uuid.NewString(),
		CreatedAt:   s.now(),
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := s.repo.Create(ctx, &entry); err != nil {
		return fmt.Errorf("audit log could not be saved: %w", err)
	}
	return nil
}

// Record writes a log and only logs a failure; the audited operation has
// already been committed.
func (s *Service) Record(ctx context.Context, opts LogOptions) {
	if s == nil {
		return
	}
	if err := s.WriteLog(ctx, opts); err != nil {
		logger.Warn("audit log write failed",
			"entity_type", opts.EntityType,
			"entity_id", opts.EntityID,
			"error", err,
		)
	}
}

func (s *Service) List(ctx context.Context, filter repository.AuditFilter) ([]models.AuditLog, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}
