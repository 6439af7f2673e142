package audit

import (
	"context"
	"testing"

	"waffle-pos-backend/internal/models"
	"waffle-pos-backend/internal/repository"
	"waffle-pos-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLog_SerializesSnapshots(t *testing.T) {
	repo := memory.NewAuditRepository()
	svc := NewService(repo)
	ctx := context.Background()

	err := svc.WriteLog(ctx, LogOptions{
		UserID:     "u1",
		UserName:   "Ana",
		EntityType: "shift",
		EntityID:   "s1",
		Action:     models.AuditActionCreate,
		After:      map[string]any{"status": "open"},
	})
	require.NoError(t, err)

	logs, err := svc.List(ctx, repository.AuditFilter{EntityID: "s1"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "null", logs[0].BeforeData)
	assert.JSONEq(t, `{"status":"open"}`, logs[0].AfterData)
	assert.NotEmpty(t, logs[0].ID)
}

func TestList_NewestFirstAndFiltered(t *testing.T) {
	svc := NewService(memory.NewAuditRepository())
	ctx := context.Background()

	for _, id := range []string{"a", "b", "a"} {
		svc.Record(ctx, LogOptions{EntityType: "shift", EntityID: id, Action: models.AuditActionUpdate, Description: id})
	}
	svc.Record(ctx, LogOptions{EntityType: "shift_transaction", EntityID: "a", Action: models.AuditActionCreate})

	logs, err := svc.List(ctx, repository.AuditFilter{EntityType: "shift", EntityID: "a"})
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	all, err := svc.List(ctx, repository.AuditFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "shift_transaction", all[0].EntityType)
}
