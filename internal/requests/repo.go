package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkgate/perkgate-backend/pkg/db/models"
	"github.com/perkgate/perkgate-backend/pkg/enums"
	"github.com/perkgate/perkgate-backend/pkg/pagination"
)

// Repository exposes access-request persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a requests repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new request row.
func (r *Repository) Create(ctx context.Context, request *models.AccessRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(request).Error
}

// CreateTx inserts a new request row inside the caller's transaction.
func (r *Repository) CreateTx(tx *gorm.DB, request *models.AccessRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	return tx.Create(request).Error
}

// FindByID loads a request by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AccessRequest, error) {
	var request models.AccessRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// FindPendingByEmail returns the email's open request, if any.
func (r *Repository) FindPendingByEmail(ctx context.Context, email string) (*models.AccessRequest, error) {
	var request models.AccessRequest
	err := r.db.WithContext(ctx).
		Where("user_email = ? AND status = ?", email, enums.RequestStatusPending).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// FindLatestByEmail returns the email's most recent request regardless of
// status.
func (r *Repository) FindLatestByEmail(ctx context.Context, email string) (*models.AccessRequest, error) {
	var request models.AccessRequest
	err := r.db.WithContext(ctx).
		Where("user_email = ?", email).
		Order("created_at DESC").
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// HasApprovedForEmail reports whether the email holds an approved request.
func (r *Repository) HasApprovedForEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AccessRequest{}).
		Where("user_email = ? AND status = ?", email, enums.RequestStatusApproved).
		Count(&count).Error
	return count > 0, err
}

// List returns requests newest-first with cursor pagination and an optional
// status filter.
func (r *Repository) List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.AccessRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.AccessRequest{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.AccessRequest
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// TransitionTx moves a pending row to a terminal status inside the caller's
// transaction. The status guard in the WHERE clause makes the transition
// atomic: zero rows affected means the row was missing or already terminal.
func (r *Repository) TransitionTx(tx *gorm.DB, id uuid.UUID, to enums.RequestStatus, reviewedBy string, at time.Time) (bool, error) {
	res := tx.Model(&models.AccessRequest{}).
		Where("id = ? AND status = ?", id, enums.RequestStatusPending).
		Updates(map[string]any{
			"status":      to,
			"reviewed_by": reviewedBy,
			"reviewed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
