package whitelist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkgate/perkgate-backend/internal/audit"
	"github.com/perkgate/perkgate-backend/pkg/db/models"
	"github.com/perkgate/perkgate-backend/pkg/enums"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/logger"
	"github.com/perkgate/perkgate-backend/pkg/outbox"
	"github.com/perkgate/perkgate-backend/pkg/types"
)

// Service defines the admin upload surface for partner whitelists.
type Service interface {
	Upload(ctx context.Context, actor audit.Actor, partnerID uuid.UUID, dto UploadDTO) (int, error)
	List(ctx context.Context, partnerID uuid.UUID) ([]DomainDTO, error)
}

type repository interface {
	ReplaceForPartnerTx(tx *gorm.DB, partnerID uuid.UUID, rows []models.WhitelistDomain) error
	ListForPartner(ctx context.Context, partnerID uuid.UUID) ([]models.WhitelistDomain, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type invalidator interface {
	Invalidate(partnerID uuid.UUID)
}

type service struct {
	repo     repository
	partners partnerGetter
	tx       txRunner
	auditor  audit.Service
	emitter  eventEmitter
	cache    invalidator
	logg     *logger.Logger
}

// ServiceParams bundles the dependencies required to build a whitelist service.
type ServiceParams struct {
	Repo     repository
	Partners partnerGetter
	Tx       txRunner
	Auditor  audit.Service
	Emitter  eventEmitter
	Cache    invalidator
	Logger   *logger.Logger
}

// NewService constructs a whitelist upload service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("whitelist repository is required")
	}
	if params.Partners == nil {
		return nil, fmt.Errorf("partner getter is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Auditor == nil {
		return nil, fmt.Errorf("audit service is required")
	}
	return &service{
		repo:     params.Repo,
		partners: params.Partners,
		tx:       params.Tx,
		auditor:  params.Auditor,
		emitter:  params.Emitter,
		cache:    params.Cache,
		logg:     params.Logger,
	}, nil
}

// Upload replaces the partner's uploaded rows, busts the memo cache and
// records one audit entry with the before/after counts.
func (s *service) Upload(ctx context.Context, actor audit.Actor, partnerID uuid.UUID, dto UploadDTO) (int, error) {
	if _, err := s.partners.FindByID(ctx, partnerID); err != nil {
		return 0, partnerLookupError(err)
	}

	previous, err := s.repo.ListForPartner(ctx, partnerID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list whitelist rows")
	}

	seen := map[string]struct{}{}
	rows := make([]models.WhitelistDomain, 0, len(dto.Domains))
	uploadedBy := actorUUID(actor)
	for _, item := range dto.Domains {
		domain := NormalizeDomain(item.Domain)
		if domain == "" {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "empty domain in upload")
		}
		if _, dup := seen[domain]; dup {
			continue
		}
		seen[domain] = struct{}{}
		rows = append(rows, models.WhitelistDomain{
			Domain:     domain,
			Company:    item.Company,
			UploadedBy: uploadedBy,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.ReplaceForPartnerTx(tx, partnerID, rows); err != nil {
			return err
		}
		if s.emitter == nil {
			return nil
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWhitelistUploaded,
			AggregateType: enums.AggregatePartner,
			AggregateID:   partnerID.String(),
			Actor:         &outbox.ActorRef{UserID: actor.ID, Email: actor.Email, Admin: true},
			Data: map[string]any{
				"partnerId": partnerID.String(),
				"count":     len(rows),
			},
		})
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace whitelist rows")
	}

	if s.cache != nil {
		s.cache.Invalidate(partnerID)
	}

	entityID := partnerID.String()
	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     enums.AuditActionWhitelistUpload,
		EntityType: enums.AuditEntityWhitelist,
		EntityID:   &entityID,
		Summary:    fmt.Sprintf("replaced whitelist for partner %s", partnerID),
		Details: types.JSONMap{
			"previousCount": len(previous),
			"uploadedCount": len(rows),
		},
	})
	return len(rows), nil
}

func (s *service) List(ctx context.Context, partnerID uuid.UUID) ([]DomainDTO, error) {
	if _, err := s.partners.FindByID(ctx, partnerID); err != nil {
		return nil, partnerLookupError(err)
	}
	rows, err := s.repo.ListForPartner(ctx, partnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list whitelist rows")
	}
	out := make([]DomainDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func partnerLookupError(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load partner")
}

func actorUUID(actor audit.Actor) *uuid.UUID {
	id, err := uuid.Parse(actor.ID)
	if err != nil {
		return nil
	}
	return &id
}
