package requests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/perkgate/perkgate-backend/pkg/db/models"
	"github.com/perkgate/perkgate-backend/pkg/enums"
	"github.com/perkgate/perkgate-backend/pkg/pagination"
)

func setupRequestsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS access_requests (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  user_email TEXT NOT NULL,
  user_name TEXT NOT NULL,
  company_name TEXT NOT NULL,
  partner_name TEXT NOT NULL,
  partner_contact_name TEXT,
  partner_contact_email TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  reviewed_by TEXT,
  reviewed_at DATETIME,
  created_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_access_requests_pending_email
  ON access_requests (user_email) WHERE status = 'pending';`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec(`DELETE FROM access_requests`).Error)
	return db
}

func newRequest(t *testing.T, repo *Repository, email string, status enums.RequestStatus, at time.Time) *models.AccessRequest {
	t.Helper()

	request := &models.AccessRequest{
		UserID:      "user-1",
		UserEmail:   email,
		UserName:    "Test User",
		CompanyName: "Test Co",
		PartnerName: "Acme Ventures",
		Status:      status,
		CreatedAt:   at,
	}
	require.NoError(t, repo.Create(context.Background(), request))
	return request
}

func TestRequestsRepoPendingUniquePerEmail(t *testing.T) {
	repo := NewRepository(setupRequestsTestDB(t))
	now := time.Now().UTC()

	newRequest(t, repo, "ana@startup.io", enums.RequestStatusPending, now)
	err := repo.Create(context.Background(), &models.AccessRequest{
		UserID:      "user-1",
		UserEmail:   "ana@startup.io",
		UserName:    "Ana",
		CompanyName: "Startup",
		PartnerName: "Acme Ventures",
		Status:      enums.RequestStatusPending,
		CreatedAt:   now,
	})
	require.Error(t, err)

	// A rejected row does not block a fresh pending one.
	repo2 := NewRepository(setupRequestsTestDB(t))
	newRequest(t, repo2, "bo@startup.io", enums.RequestStatusRejected, now)
	newRequest(t, repo2, "bo@startup.io", enums.RequestStatusPending, now.Add(time.Minute))
}

func TestRequestsRepoTransitionGuardsPending(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	request := newRequest(t, repo, "ana@startup.io", enums.RequestStatusPending, now)

	var moved bool
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		moved, err = repo.TransitionTx(tx, request.ID, enums.RequestStatusApproved, "ops@perkgate.example", now)
		return err
	})
	require.NoError(t, err)
	assert.True(t, moved)

	reloaded, err := repo.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusApproved, reloaded.Status)
	require.NotNil(t, reloaded.ReviewedBy)
	assert.Equal(t, "ops@perkgate.example", *reloaded.ReviewedBy)

	// A second transition finds no pending row and reports no movement.
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		moved, err = repo.TransitionTx(tx, request.ID, enums.RequestStatusRejected, "ops@perkgate.example", now)
		return err
	})
	require.NoError(t, err)
	assert.False(t, moved)

	unchanged, err := repo.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusApproved, unchanged.Status)
}

func TestRequestsRepoMostRelevantLookups(t *testing.T) {
	repo := NewRepository(setupRequestsTestDB(t))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	newRequest(t, repo, "ana@startup.io", enums.RequestStatusRejected, base)
	pending := newRequest(t, repo, "ana@startup.io", enums.RequestStatusPending, base.Add(time.Hour))

	found, err := repo.FindPendingByEmail(context.Background(), "ana@startup.io")
	require.NoError(t, err)
	assert.Equal(t, pending.ID, found.ID)

	latest, err := repo.FindLatestByEmail(context.Background(), "ana@startup.io")
	require.NoError(t, err)
	assert.Equal(t, pending.ID, latest.ID)

	approved, err := repo.HasApprovedForEmail(context.Background(), "ana@startup.io")
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestRequestsRepoListFilterAndCursor(t *testing.T) {
	repo := NewRepository(setupRequestsTestDB(t))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		newRequest(t, repo, uuid.NewString()+"@startup.io", enums.RequestStatusRejected, base.Add(time.Duration(i)*time.Minute))
	}
	pendingRow := newRequest(t, repo, "open@startup.io", enums.RequestStatusPending, base.Add(time.Hour))

	status := enums.RequestStatusPending
	rows, err := repo.List(context.Background(), ListFilter{Status: &status}, 10, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, pendingRow.ID, rows[0].ID)

	first, err := repo.List(context.Background(), ListFilter{}, 2, nil)
	require.NoError(t, err)
	require.Len(t, first, 2)

	cursor := &pagination.Cursor{CreatedAt: first[1].CreatedAt, ID: first[1].ID.String()}
	rest, err := repo.List(context.Background(), ListFilter{}, 10, cursor)
	require.NoError(t, err)
	require.Len(t, rest, 2)
}
