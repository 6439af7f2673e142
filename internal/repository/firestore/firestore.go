// Package firestore backs the repositories with Cloud Firestore. A shift is a
// single document carrying its ledger; open_shifts/{cashier_id} marks the
// cashier's open shift so both are written in one transaction.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"waffle-pos-backend/internal/models"
	"waffle-pos-backend/internal/repository"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	shiftsCollection     = "shifts"
	openShiftsCollection = "open_shifts"
	usersCollection      = "users"
	userEmailsCollection = "user_emails"
	auditCollection      = "audit_logs"
)

func NewStore(ctx context.Context, projectID string) (*repository.Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: firestore client: %v", models.ErrPersistence, err)
	}
	return &repository.Store{
		Shifts: NewShiftRepository(client),
		Users:  NewUserRepository(client),
		Audit:  NewAuditRepository(client),
		Close:  client.Close,
	}, nil
}

// mapErr converts gRPC status codes into the ledger's error kinds. Errors
// that already carry a kind pass through.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{models.ErrNotFound, models.ErrConflict, models.ErrValidation, models.ErrPersistence} {
		if errors.Is(err, kind) {
			return err
		}
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", models.ErrNotFound, what)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s already exists", models.ErrConflict, what)
	case codes.Aborted:
		return fmt.Errorf("%w: %s was modified concurrently", models.ErrConflict, what)
	}
	return fmt.Errorf("%w: %s: %v", models.ErrPersistence, what, err)
}

func count(ctx context.Context, q firestore.Query) (int64, error) {
	res, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected count result %T", res["all"])
	}
	return v.GetIntegerValue(), nil
}

type openMarker struct {
	ShiftID string `firestore:"shift_id"`
}

type shiftRepository struct {
	client *firestore.Client
}

func NewShiftRepository(client *firestore.Client) repository.ShiftRepository {
	return &shiftRepository{client: client}
}

func (r *shiftRepository) Create(ctx context.Context, shift *models.Shift) error {
	shiftRef := r.client.Collection(shiftsCollection).Doc(shift.ID)
	markerRef := r.client.Collection(openShiftsCollection).Doc(shift.CashierID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if shift.IsOpen() {
			_, err := tx.Get(markerRef)
			if err == nil {
				return fmt.Errorf("%w: shift already open", models.ErrConflict)
			}
			if status.Code(err) != codes.NotFound {
				return err
			}
			if err := tx.Create(markerRef, openMarker{ShiftID: shift.ID}); err != nil {
				return err
			}
		}
		return tx.Create(shiftRef, toShiftDoc(shift))
	})
	return mapErr(err, "shift "+shift.ID)
}

func (r *shiftRepository) GetByID(ctx context.Context, id string) (*models.Shift, error) {
	snap, err := r.client.Collection(shiftsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapErr(err, "shift "+id)
	}
	return decodeShift(snap)
}

func (r *shiftRepository) GetOpenByCashier(ctx context.Context, cashierID string) (*models.Shift, error) {
	snap, err := r.client.Collection(openShiftsCollection).Doc(cashierID).Get(ctx)
	if err != nil {
		return nil, mapErr(err, "open shift for cashier "+cashierID)
	}
	var marker openMarker
	if err := snap.DataTo(&marker); err != nil {
		return nil, mapErr(err, "open shift marker")
	}
	return r.GetByID(ctx, marker.ShiftID)
}

func (r *shiftRepository) Update(ctx context.Context, shift *models.Shift, expectedVersion int64, appended ...models.ShiftTransaction) error {
	shiftRef := r.client.Collection(shiftsCollection).Doc(shift.ID)
	markerRef := r.client.Collection(openShiftsCollection).Doc(shift.CashierID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(shiftRef)
		if err != nil {
			return err
		}
		stored, err := decodeShift(snap)
		if err != nil {
			return err
		}
		if stored.Version != expectedVersion {
			return fmt.Errorf("%w: shift %s was modified concurrently", models.ErrConflict, shift.ID)
		}
		if len(stored.Ledger)+len(appended) != len(shift.Ledger) {
			return fmt.Errorf("%w: ledger of shift %s is not an append of the stored one", models.ErrConflict, shift.ID)
		}

		if err := tx.Set(shiftRef, toShiftDoc(shift)); err != nil {
			return err
		}
		if stored.IsOpen() && !shift.IsOpen() {
			return tx.Delete(markerRef)
		}
		return nil
	})
	return mapErr(err, "shift "+shift.ID)
}

func (r *shiftRepository) List(ctx context.Context, filter repository.ShiftFilter) ([]models.Shift, int64, error) {
	filter.Normalize()

	q := r.client.Collection(shiftsCollection).Query
	if filter.CashierID != "" {
		q = q.Where("cashier_id", "==", filter.CashierID)
	}
	if filter.Status != "" {
		q = q.Where("status", "==", string(filter.Status))
	}
	if filter.From != nil {
		q = q.Where("opened_at", ">=", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("opened_at", "<", *filter.To)
	}

	total, err := count(ctx, q)
	if err != nil {
		return nil, 0, mapErr(err, "shift count")
	}

	iter := q.OrderBy("opened_at", firestore.Desc).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Documents(ctx)
	defer iter.Stop()

	shifts := make([]models.Shift, 0, filter.PageSize)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, mapErr(err, "shift list")
		}
		s, err := decodeShift(snap)
		if err != nil {
			return nil, 0, err
		}
		shifts = append(shifts, *s)
	}
	return shifts, total, nil
}

func decodeShift(snap *firestore.DocumentSnapshot) (*models.Shift, error) {
	var doc shiftDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode shift %s: %v", models.ErrPersistence, snap.Ref.ID, err)
	}
	return fromShiftDoc(doc)
}

type emailMarker struct {
	UserID string `firestore:"user_id"`
}

type userRepository struct {
	client *firestore.Client
}

func NewUserRepository(client *firestore.Client) repository.UserRepository {
	return &userRepository{client: client}
}

// Create reserves the email in user_emails so uniqueness holds without a
// query inside the transaction.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	email := strings.ToLower(user.Email)
	userRef := r.client.Collection(usersCollection).Doc(user.ID)
	emailRef := r.client.Collection(userEmailsCollection).Doc(email)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(emailRef); err == nil {
			return fmt.Errorf("%w: email %s already registered", models.ErrConflict, email)
		} else if status.Code(err) != codes.NotFound {
			return err
		}
		if err := tx.Create(emailRef, emailMarker{UserID: user.ID}); err != nil {
			return err
		}
		return tx.Create(userRef, user)
	})
	return mapErr(err, "user "+email)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	snap, err := r.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapErr(err, "user "+id)
	}
	var u models.User
	if err := snap.DataTo(&u); err != nil {
		return nil, mapErr(err, "user "+id)
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	snap, err := r.client.Collection(userEmailsCollection).Doc(strings.ToLower(email)).Get(ctx)
	if err != nil {
		return nil, mapErr(err, "user "+email)
	}
	var marker emailMarker
	if err := snap.DataTo(&marker); err != nil {
		return nil, mapErr(err, "user "+email)
	}
	return r.GetByID(ctx, marker.UserID)
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	iter := r.client.Collection(usersCollection).OrderBy("created_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var users []models.User
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, mapErr(err, "user list")
		}
		var u models.User
		if err := snap.DataTo(&u); err != nil {
			return nil, mapErr(err, "user "+snap.Ref.ID)
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *userRepository) CountByRole(ctx context.Context, role models.UserRole) (int64, error) {
	n, err := count(ctx, r.client.Collection(usersCollection).Where("role", "==", string(role)))
	if err != nil {
		return 0, mapErr(err, "user count")
	}
	return n, nil
}

type auditRepository struct {
	client *firestore.Client
}

func NewAuditRepository(client *firestore.Client) repository.AuditRepository {
	return &auditRepository{client: client}
}

func (r *auditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	_, err := r.client.Collection(auditCollection).Doc(log.ID).Create(ctx, log)
	return mapErr(err, "audit log")
}

func (r *auditRepository) List(ctx context.Context, filter repository.AuditFilter) ([]models.AuditLog, error) {
	q := r.client.Collection(auditCollection).Query
	if filter.EntityType != "" {
		q = q.Where("entity_type", "==", filter.EntityType)
	}
	if filter.EntityID != "" {
		q = q.Where("entity_id", "==", filter.EntityID)
	}
	q = q.OrderBy("created_at", firestore.Desc)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	logs := make([]models.AuditLog, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, mapErr(err, "audit log list")
		}
		var l models.AuditLog
		if err := snap.DataTo(&l); err != nil {
			return nil, mapErr(err, "audit log "+snap.Ref.ID)
		}
		logs = append(logs, l)
	}
	return logs, nil
}
