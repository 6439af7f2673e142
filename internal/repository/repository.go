package repository

import (
	"context"
	"time"

	"waffle-pos-backend/internal/models"
)

// ShiftFilter narrows a shift listing. Zero values mean "any".
type ShiftFilter struct {
	CashierID string
	Status    models.ShiftStatus
	From      *time.Time // opened at or after
	To        *time.Time // opened before
	Page      int
	PageSize  int
}

// Normalize clamps paging to sane values.
func (f *ShiftFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 200 {
		f.PageSize = 200
	}
}

func (f ShiftFilter) Offset() int { return (f.Page - 1) * f.PageSize }

// Matches reports whether s passes the filter, for backings that filter in
// process.
func (f ShiftFilter) Matches(s *models.Shift) bool {
	if f.CashierID != "" && s.CashierID != f.CashierID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.From != nil && s.OpenedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !s.OpenedAt.Before(*f.To) {
		return false
	}
	return true
}

type AuditFilter struct {
	EntityType string
	EntityID   string
	Limit      int
}

type ShiftRepository interface {
	// Create stores a new open shift with its opening ledger entries. It
	// fails with models.ErrConflict if the cashier already has an open shift.
	Create(ctx context.Context, shift *models.Shift) error
	GetByID(ctx context.Context, id string) (*models.Shift, error)
	GetOpenByCashier(ctx context.Context, cashierID string) (*models.Shift, error)
	// Update atomically writes the shift header and appends the given ledger
	// entries, provided the stored version still equals expectedVersion.
	Update(ctx context.Context, shift *models.Shift, expectedVersion int64, appended ...models.ShiftTransaction) error
	List(ctx context.Context, filter ShiftFilter) ([]models.Shift, int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	CountByRole(ctx context.Context, role models.UserRole) (int64, error)
}

type AuditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, filter AuditFilter) ([]models.AuditLog, error)
}

// Store groups the repositories of one backing.
type Store struct {
	Shifts ShiftRepository
	Users  UserRepository
	Audit  AuditRepository
	Close  func() error
}
