package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkgate/perkgate-backend/internal/audit"
	"github.com/perkgate/perkgate-backend/pkg/db"
	"github.com/perkgate/perkgate-backend/pkg/db/models"
	"github.com/perkgate/perkgate-backend/pkg/enums"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/logger"
	"github.com/perkgate/perkgate-backend/pkg/outbox"
	"github.com/perkgate/perkgate-backend/pkg/pagination"
	"github.com/perkgate/perkgate-backend/pkg/types"
)

const duplicatePendingMessage = "a pending access request already exists for this email"

// Service defines the behavior needed by the request controllers and the
// access resolver.
type Service interface {
	Create(ctx context.Context, requester Requester, dto CreateRequestDTO) (*models.AccessRequest, error)
	MostRelevantForEmail(ctx context.Context, email string) (*models.AccessRequest, error)
	Transition(ctx context.Context, actor audit.Actor, id uuid.UUID, to enums.RequestStatus) (*models.AccessRequest, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (*ListPage, error)
	HasApprovedForEmail(ctx context.Context, email string) (bool, error)
}

type repository interface {
	CreateTx(tx *gorm.DB, request *models.AccessRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.AccessRequest, error)
	FindPendingByEmail(ctx context.Context, email string) (*models.AccessRequest, error)
	FindLatestByEmail(ctx context.Context, email string) (*models.AccessRequest, error)
	HasApprovedForEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.AccessRequest, error)
	TransitionTx(tx *gorm.DB, id uuid.UUID, to enums.RequestStatus, reviewedBy string, at time.Time) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo    repository
	tx      txRunner
	auditor audit.Service
	emitter eventEmitter
	logg    *logger.Logger
	now     func() time.Time
}

// ServiceParams bundles the dependencies required to build a requests service.
type ServiceParams struct {
	Repo    repository
	Tx      txRunner
	Auditor audit.Service
	Emitter eventEmitter
	Logger  *logger.Logger
}

// NewService constructs an access-request service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("requests repository is required")
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
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

// Create files a new pending request. At most one pending row may exist per
// email; the partial unique index backstops the check under concurrency.
func (s *service) Create(ctx context.Context, requester Requester, dto CreateRequestDTO) (*models.AccessRequest, error) {
	email := strings.ToLower(strings.TrimSpace(requester.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requester email is required")
	}

	if _, err := s.repo.FindPendingByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, duplicatePendingMessage)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check pending request")
	}

	request := &models.AccessRequest{
		UserID:              requester.ID,
		UserEmail:           email,
		UserName:            strings.TrimSpace(requester.Name),
		CompanyName:         strings.TrimSpace(dto.CompanyName),
		PartnerName:         strings.TrimSpace(dto.PartnerName),
		PartnerContactName:  dto.PartnerContactName,
		PartnerContactEmail: dto.PartnerContactEmail,
		Status:              enums.RequestStatusPending,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, request); err != nil {
			return err
		}
		if s.emitter == nil {
			return nil
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAccessRequestCreated,
			AggregateType: enums.AggregateAccessRequest,
			AggregateID:   request.ID.String(),
			Actor:         &outbox.ActorRef{UserID: requester.ID, Email: email},
			Data:          FromModel(request),
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err, "ux_access_requests_pending_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, duplicatePendingMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create access request")
	}
	return request, nil
}

// MostRelevantForEmail returns the pending row when one exists, otherwise the
// most recent row.
func (s *service) MostRelevantForEmail(ctx context.Context, email string) (*models.AccessRequest, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	request, err := s.repo.FindPendingByEmail(ctx, email)
	if err == nil {
		return request, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find pending request")
	}

	request, err = s.repo.FindLatestByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no access request on file")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find latest request")
	}
	return request, nil
}

// Transition moves a pending request to approved or rejected. Terminal rows
// stay untouched and surface a state conflict.
func (s *service) Transition(ctx context.Context, actor audit.Actor, id uuid.UUID, to enums.RequestStatus) (*models.AccessRequest, error) {
	if !to.IsValid() || !to.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be approved or rejected")
	}

	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "access request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find access request")
	}
	if request.Status != enums.RequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("request is already %s", request.Status)).
			WithDetails(map[string]any{"status": request.Status})
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.TransitionTx(tx, id, to, actor.Email, now)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is no longer pending")
		}
		if s.emitter == nil {
			return nil
		}
		eventType := enums.EventAccessRequestApproved
		if to == enums.RequestStatusRejected {
			eventType = enums.EventAccessRequestRejected
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateAccessRequest,
			AggregateID:   id.String(),
			Actor:         &outbox.ActorRef{UserID: actor.ID, Email: actor.Email, Admin: true},
			Data:          map[string]any{"requestId": id.String(), "status": to},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transition access request")
	}

	action := enums.AuditActionRequestApprove
	if to == enums.RequestStatusRejected {
		action = enums.AuditActionRequestReject
	}
	entityID := id.String()
	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     action,
		EntityType: enums.AuditEntityAccessRequest,
		EntityID:   &entityID,
		Summary:    fmt.Sprintf("%s access request from %s", to, request.UserEmail),
		Details: types.JSONMap{
			"userEmail":   request.UserEmail,
			"companyName": request.CompanyName,
		},
	})

	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (*ListPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, filter, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list access requests")
	}

	page := &ListPage{Requests: make([]RequestDTO, 0, len(rows))}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for i := range rows {
		page.Requests = append(page.Requests, FromModel(&rows[i]))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID.String()})
		page.NextCursor = &next
	}
	return page, nil
}

func (s *service) HasApprovedForEmail(ctx context.Context, email string) (bool, error) {
	approved, err := s.repo.HasApprovedForEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check approved request")
	}
	return approved, nil
}
