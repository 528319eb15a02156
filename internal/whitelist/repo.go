package whitelist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkgate/perkgate-backend/pkg/db/models"
)

// Repository persists admin-uploaded whitelist rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a whitelist repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ReplaceForPartnerTx swaps the partner's uploaded rows inside the caller's
// transaction so a failed upload never leaves a half-replaced list.
func (r *Repository) ReplaceForPartnerTx(tx *gorm.DB, partnerID uuid.UUID, rows []models.WhitelistDomain) error {
	if err := tx.Delete(&models.WhitelistDomain{}, "partner_id = ?", partnerID).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
		rows[i].PartnerID = partnerID
	}
	return tx.Create(&rows).Error
}

// ListForPartner returns the partner's uploaded rows ordered by domain.
func (r *Repository) ListForPartner(ctx context.Context, partnerID uuid.UUID) ([]models.WhitelistDomain, error) {
	var rows []models.WhitelistDomain
	err := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("domain ASC").
		Find(&rows).Error
	return rows, err
}

// DomainsForPartner returns just the uploaded domain strings.
func (r *Repository) DomainsForPartner(ctx context.Context, partnerID uuid.UUID) ([]string, error) {
	var domains []string
	err := r.db.WithContext(ctx).
		Model(&models.WhitelistDomain{}).
		Where("partner_id = ?", partnerID).
		Pluck("domain", &domains).Error
	return domains, err
}
