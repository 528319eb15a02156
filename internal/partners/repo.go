package partners

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkgate/perkgate-backend/pkg/db/models"
)

// Repository exposes partner persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a partners repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new partner.
func (r *Repository) Create(ctx context.Context, partner *models.Partner) error {
	if partner.ID == uuid.Nil {
		partner.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(partner).Error
}

// Update persists the provided column changes for the partner.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, changes map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Partner{}).
		Where("id = ?", id).
		Updates(changes).Error
}

// Delete removes the partner row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Partner{}, "id = ?", id).Error
}

// FindByID loads a partner by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	if err := r.db.WithContext(ctx).First(&partner, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &partner, nil
}

// FindDefault loads the single active default partner.
func (r *Repository) FindDefault(ctx context.Context) (*models.Partner, error) {
	var partner models.Partner
	err := r.db.WithContext(ctx).
		Where("is_default = ? AND is_active = ?", true, true).
		First(&partner).Error
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

// List returns all partners ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Partner, error) {
	var rows []models.Partner
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// ClearDefaultTx removes the default flag from every partner inside the
// caller's transaction.
func (r *Repository) ClearDefaultTx(tx *gorm.DB, except uuid.UUID) error {
	return tx.Model(&models.Partner{}).
		Where("is_default = ? AND id <> ?", true, except).
		Update("is_default", false).Error
}

// MarkDefaultTx flags the partner as default inside the caller's transaction.
// Returns gorm.ErrRecordNotFound when the partner does not exist.
func (r *Repository) MarkDefaultTx(tx *gorm.DB, id uuid.UUID) error {
	res := tx.Model(&models.Partner{}).
		Where("id = ?", id).
		Update("is_default", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
