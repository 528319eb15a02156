package partners

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkgate/perkgate-backend/internal/audit"
	"github.com/perkgate/perkgate-backend/pkg/db"
	"github.com/perkgate/perkgate-backend/pkg/db/models"
	"github.com/perkgate/perkgate-backend/pkg/enums"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/logger"
	"github.com/perkgate/perkgate-backend/pkg/outbox"
	"github.com/perkgate/perkgate-backend/pkg/types"
)

// Service defines the behavior needed by the partner controllers and the
// access resolver.
type Service interface {
	Create(ctx context.Context, actor audit.Actor, dto CreatePartnerDTO) (*models.Partner, error)
	Update(ctx context.Context, actor audit.Actor, id uuid.UUID, dto UpdatePartnerDTO) (*models.Partner, error)
	Delete(ctx context.Context, actor audit.Actor, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.Partner, error)
	GetDefault(ctx context.Context) (*models.Partner, error)
	List(ctx context.Context) ([]models.Partner, error)
	SetDefault(ctx context.Context, actor audit.Actor, id uuid.UUID) (*models.Partner, error)
}

type repository interface {
	Create(ctx context.Context, partner *models.Partner) error
	Update(ctx context.Context, id uuid.UUID, changes map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Partner, error)
	FindDefault(ctx context.Context) (*models.Partner, error)
	List(ctx context.Context) ([]models.Partner, error)
	ClearDefaultTx(tx *gorm.DB, except uuid.UUID) error
	MarkDefaultTx(tx *gorm.DB, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cacheInvalidator interface {
	Invalidate(partnerID uuid.UUID)
}

type service struct {
	repo    repository
	tx      txRunner
	auditor audit.Service
	emitter eventEmitter
	cache   cacheInvalidator
	logg    *logger.Logger
}

// ServiceParams bundles the dependencies required to build a partners service.
type ServiceParams struct {
	Repo    repository
	Tx      txRunner
	Auditor audit.Service
	Emitter eventEmitter
	Cache   cacheInvalidator
	Logger  *logger.Logger
}

// NewService constructs a partners service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("partners repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Auditor == nil {
		return nil, fmt.Errorf("audit service is required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		auditor: params.Auditor,
		emitter: params.Emitter,
		cache:   params.Cache,
		logg:    params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, actor audit.Actor, dto CreatePartnerDTO) (*models.Partner, error) {
	email := strings.ToLower(strings.TrimSpace(dto.OwnerEmail))
	domain := ownerDomain(email)
	if domain == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner email must carry a domain")
	}

	slug := strings.TrimSpace(dto.Slug)
	if slug == "" {
		slug = Slugify(dto.Name)
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner name must produce a non-empty slug")
	}

	active := true
	if dto.IsActive != nil {
		active = *dto.IsActive
	}

	partner := &models.Partner{
		Name:              strings.TrimSpace(dto.Name),
		Slug:              slug,
		CatalogEndpoint:   dto.CatalogEndpoint,
		CatalogCredential: dto.CatalogCredential,
		OwnerEmail:        email,
		OwnerDomain:       domain,
		IsActive:          active,
	}
	if err := s.repo.Create(ctx, partner); err != nil {
		if db.IsUniqueViolation(err, "partners_slug_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "partner slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create partner")
	}

	id := partner.ID.String()
	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     enums.AuditActionPartnerCreate,
		EntityType: enums.AuditEntityPartner,
		EntityID:   &id,
		Summary:    fmt.Sprintf("created partner %s", partner.Slug),
		Details:    types.JSONMap{"name": partner.Name, "slug": partner.Slug},
	})
	return partner, nil
}

func (s *service) Update(ctx context.Context, actor audit.Actor, id uuid.UUID, dto UpdatePartnerDTO) (*models.Partner, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if dto.Name != nil {
		changes["name"] = strings.TrimSpace(*dto.Name)
	}
	if dto.CatalogEndpoint != nil {
		changes["catalog_endpoint"] = *dto.CatalogEndpoint
	}
	if dto.CatalogCredential != nil {
		changes["catalog_credential"] = *dto.CatalogCredential
	}
	if dto.OwnerEmail != nil {
		email := strings.ToLower(strings.TrimSpace(*dto.OwnerEmail))
		domain := ownerDomain(email)
		if domain == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner email must carry a domain")
		}
		changes["owner_email"] = email
		changes["owner_domain"] = domain
	}
	if dto.IsActive != nil {
		changes["is_active"] = *dto.IsActive
	}
	if len(changes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if err := s.repo.Update(ctx, id, changes); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update partner")
	}
	if s.cache != nil {
		s.cache.Invalidate(id)
	}

	partner, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	entityID := id.String()
	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     enums.AuditActionPartnerUpdate,
		EntityType: enums.AuditEntityPartner,
		EntityID:   &entityID,
		Summary:    fmt.Sprintf("updated partner %s", partner.Slug),
		Details:    types.JSONMap{"fields": changedFields(changes)},
	})
	return partner, nil
}

func (s *service) Delete(ctx context.Context, actor audit.Actor, id uuid.UUID) error {
	partner, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if partner.IsDefault {
		return pkgerrors.New(pkgerrors.CodeConflict, "cannot delete the default partner")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete partner")
	}
	if s.cache != nil {
		s.cache.Invalidate(id)
	}

	entityID := id.String()
	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     enums.AuditActionPartnerDelete,
		EntityType: enums.AuditEntityPartner,
		EntityID:   &entityID,
		Summary:    fmt.Sprintf("deleted partner %s", partner.Slug),
	})
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	partner, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find partner")
	}
	return partner, nil
}

func (s *service) GetDefault(ctx context.Context) (*models.Partner, error) {
	partner, err := s.repo.FindDefault(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no default partner configured")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find default partner")
	}
	return partner, nil
}

func (s *service) List(ctx context.Context) ([]models.Partner, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list partners")
	}
	return rows, nil
}

// SetDefault moves the default flag in one transaction so there is never a
// window with zero or two defaults.
func (s *service) SetDefault(ctx context.Context, actor audit.Actor, id uuid.UUID) (*models.Partner, error) {
	partner, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !partner.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cannot set an inactive partner as default")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.ClearDefaultTx(tx, id); err != nil {
			return err
		}
		if err := s.repo.MarkDefaultTx(tx, id); err != nil {
			return err
		}
		if s.emitter == nil {
			return nil
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPartnerDefaultChanged,
			AggregateType: enums.AggregatePartner,
			AggregateID:   id.String(),
			Actor:         &outbox.ActorRef{UserID: actor.ID, Email: actor.Email, Admin: true},
			Data:          map[string]any{"partnerId": id.String(), "slug": partner.Slug},
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set default partner")
	}

	entityID := id.String()
	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     enums.AuditActionPartnerDefault,
		EntityType: enums.AuditEntityPartner,
		EntityID:   &entityID,
		Summary:    fmt.Sprintf("set default partner to %s", partner.Slug),
	})

	return s.Get(ctx, id)
}

func changedFields(changes map[string]any) []string {
	fields := make([]string, 0, len(changes))
	for field := range changes {
		fields = append(fields, field)
	}
	return fields
}
