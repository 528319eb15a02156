package audit

import (
	"context"

	"gorm.io/gorm"

	"github.com/perkgate/perkgate-backend/pkg/db/models"
	"github.com/perkgate/perkgate-backend/pkg/pagination"
)

// Repository exposes audit persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an audit repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends the entry. Rows are never updated or deleted afterward.
func (r *Repository) Insert(ctx context.Context, entry *models.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// InsertTx appends the entry inside the caller's transaction.
func (r *Repository) InsertTx(tx *gorm.DB, entry *models.AuditEntry) error {
	return tx.Create(entry).Error
}

// List returns entries newest-first with cursor pagination and optional filters.
func (r *Repository) List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.AuditEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditEntry{})

	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.AdminEmail != nil {
		query = query.Where("admin_email = ?", *filter.AdminEmail)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.AuditEntry
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
