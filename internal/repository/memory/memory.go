// Package memory is an in-process backing for the repositories, used in
// development and tests. Values are copied on the way in and out so callers
// never share state with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"waffle-pos-backend/internal/models"
	"waffle-pos-backend/internal/repository"
)

func NewStore() *repository.Store {
	return &repository.Store{
		Shifts: NewShiftRepository(),
		Users:  NewUserRepository(),
		Audit:  NewAuditRepository(),
		Close:  func() error { return nil },
	}
}

type shiftRepository struct {
	mu     sync.RWMutex
	shifts map[string]models.Shift
	open   map[string]string // cashier id -> open shift id
}

func NewShiftRepository() repository.ShiftRepository {
	return &shiftRepository{
		shifts: make(map[string]models.Shift),
		open:   make(map[string]string),
	}
}

func (r *shiftRepository) Create(ctx context.Context, shift *models.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.open[shift.CashierID]; ok {
		return fmt.Errorf("%w: shift already open", models.ErrConflict)
	}
	if _, ok := r.shifts[shift.ID]; ok {
		return fmt.Errorf("%w: shift %s already exists", models.ErrConflict, shift.ID)
	}
	r.shifts[shift.ID] = shift.Clone()
	if shift.IsOpen() {
		r.open[shift.CashierID] = shift.ID
	}
	return nil
}

func (r *shiftRepository) GetByID(ctx context.Context, id string) (*models.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shifts[id]
	if !ok {
		return nil, fmt.Errorf("%w: shift %s", models.ErrNotFound, id)
	}
	out := s.Clone()
	return &out, nil
}

func (r *shiftRepository) GetOpenByCashier(ctx context.Context, cashierID string) (*models.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.open[cashierID]
	if !ok {
		return nil, fmt.Errorf("%w: no open shift for cashier %s", models.ErrNotFound, cashierID)
	}
	out := r.shifts[id].Clone()
	return &out, nil
}

func (r *shiftRepository) Update(ctx context.Context, shift *models.Shift, expectedVersion int64, appended ...models.ShiftTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.shifts[shift.ID]
	if !ok {
		return fmt.Errorf("%w: shift %s", models.ErrNotFound, shift.ID)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("%w: shift %s was modified concurrently", models.ErrConflict, shift.ID)
	}
	if len(stored.Ledger)+len(appended) != len(shift.Ledger) {
		return fmt.Errorf("%w: ledger of shift %s is not an append of the stored one", models.ErrConflict, shift.ID)
	}

	r.shifts[shift.ID] = shift.Clone()
	if stored.IsOpen() && !shift.IsOpen() {
		delete(r.open, shift.CashierID)
	}
	return nil
}

func (r *shiftRepository) List(ctx context.Context, filter repository.ShiftFilter) ([]models.Shift, int64, error) {
	filter.Normalize()

	r.mu.RLock()
	matched := make([]models.Shift, 0)
	for _, s := range r.shifts {
		if filter.Matches(&s) {
			matched = append(matched, s.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].OpenedAt.Equal(matched[j].OpenedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].OpenedAt.After(matched[j].OpenedAt)
	})

	total := int64(len(matched))
	start := filter.Offset()
	if start >= len(matched) {
		return []models.Shift{}, total, nil
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

type userRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserRepository() repository.UserRepository {
	return &userRepository{users: make(map[string]models.User)}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("%w: email %s already registered", models.ErrConflict, user.Email)
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, id)
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, email)
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *userRepository) CountByRole(ctx context.Context, role models.UserRole) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, u := range r.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

type auditRepository struct {
	mu   sync.RWMutex
	logs []models.AuditLog
}

func NewAuditRepository() repository.AuditRepository {
	return &auditRepository{}
}

func (r *auditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *auditRepository) List(ctx context.Context, filter repository.AuditFilter) ([]models.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.AuditLog, 0)
	for i := len(r.logs) - 1; i >= 0; i-- {
		l := r.logs[i]
		if filter.EntityType != "" && l.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && l.EntityID != filter.EntityID {
			continue
		}
		out = append(out, l)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}
