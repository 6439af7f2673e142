// Package postgres backs the repositories with gorm on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"waffle-pos-backend/internal/models"
	"waffle-pos-backend/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewStore(db *gorm.DB) *repository.Store {
	return &repository.Store{
		Shifts: NewShiftRepository(db),
		Users:  NewUserRepository(db),
		Audit:  NewAuditRepository(db),
		Close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

// mapErr converts gorm errors into the ledger's error kinds.
func mapErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", models.ErrNotFound, what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s already exists", models.ErrConflict, what)
	}
	return fmt.Errorf("%w: %s: %v", models.ErrPersistence, what, err)
}

func orderedLedger(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

type shiftRepository struct {
	db *gorm.DB
}

func NewShiftRepository(db *gorm.DB) repository.ShiftRepository {
	return &shiftRepository{db: db}
}

func (r *shiftRepository) Create(ctx context.Context, shift *models.Shift) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(shift).Error; err != nil {
			return err
		}
		if len(shift.Ledger) > 0 {
			return tx.Create(&shift.Ledger).Error
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// the partial unique index on open shifts fired
		return fmt.Errorf("%w: shift already open", models.ErrConflict)
	}
	return mapErr(err, "shift "+shift.ID)
}

func (r *shiftRepository) GetByID(ctx context.Context, id string) (*models.Shift, error) {
	var s models.Shift
	err := r.db.WithContext(ctx).
		Preload("Ledger", orderedLedger).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, mapErr(err, "shift "+id)
	}
	return &s, nil
}

func (r *shiftRepository) GetOpenByCashier(ctx context.Context, cashierID string) (*models.Shift, error) {
	var s models.Shift
	err := r.db.WithContext(ctx).
		Preload("Ledger", orderedLedger).
		Where("cashier_id = ? AND status = ?", cashierID, models.ShiftOpen).
		First(&s).Error
	if err != nil {
		return nil, mapErr(err, "open shift for cashier "+cashierID)
	}
	return &s, nil
}

var shiftHeaderColumns = []string{
	"status",
	"closed_at",
	"closing_cash_amount",
	"cash_variance",
	"notes",
	"summary_total_sales",
	"summary_transaction_count",
	"summary_sales_by_payment_method",
	"summary_untracked_sales",
	"summary_tip_total",
	"version",
	"updated_at",
}

func (r *shiftRepository) Update(ctx context.Context, shift *models.Shift, expectedVersion int64, appended ...models.ShiftTransaction) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(shift).
			Where("version = ?", expectedVersion).
			Select(shiftHeaderColumns).
			Omit(clause.Associations).
			Updates(shift)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.Shift{}).Where("id = ?", shift.ID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("%w: shift %s", models.ErrNotFound, shift.ID)
			}
			return fmt.Errorf("%w: shift %s was modified concurrently", models.ErrConflict, shift.ID)
		}
		if len(appended) > 0 {
			return tx.Create(&appended).Error
		}
		return nil
	})
	if err == nil || errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrConflict) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// seq or order-entry unique index
		return fmt.Errorf("%w: ledger entry on shift %s already exists", models.ErrConflict, shift.ID)
	}
	return mapErr(err, "shift "+shift.ID)
}

func (r *shiftRepository) List(ctx context.Context, filter repository.ShiftFilter) ([]models.Shift, int64, error) {
	filter.Normalize()

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.CashierID != "" {
			db = db.Where("cashier_id = ?", filter.CashierID)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.From != nil {
			db = db.Where("opened_at >= ?", *filter.From)
		}
		if filter.To != nil {
			db = db.Where("opened_at < ?", *filter.To)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Shift{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, mapErr(err, "shift count")
	}

	var shifts []models.Shift
	err := r.db.WithContext(ctx).
		Scopes(scope).
		Preload("Ledger", orderedLedger).
		Order("opened_at DESC, id ASC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&shifts).Error
	if err != nil {
		return nil, 0, mapErr(err, "shift list")
	}
	return shifts, total, nil
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return mapErr(r.db.WithContext(ctx).Create(user).Error, "user "+user.Email)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, mapErr(err, "user "+id)
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&u).Error; err != nil {
		return nil, mapErr(err, "user "+email)
	}
	return &u, nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, mapErr(err, "user list")
	}
	return users, nil
}

func (r *userRepository) CountByRole(ctx context.Context, role models.UserRole) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&n).Error; err != nil {
		return 0, mapErr(err, "user count")
	}
	return n, nil
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	return mapErr(r.db.WithContext(ctx).Create(log).Error, "audit log")
}

func (r *auditRepository) List(ctx context.Context, filter repository.AuditFilter) ([]models.AuditLog, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var logs []models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, mapErr(err, "audit log list")
	}
	return logs, nil
}
