package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/perkgate/perkgate-backend/pkg/db/models"
	"github.com/perkgate/perkgate-backend/pkg/enums"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/logger"
	"github.com/perkgate/perkgate-backend/pkg/outbox"
	"github.com/perkgate/perkgate-backend/pkg/pagination"
)

// Service defines the behavior needed by admin controllers and the other
// domain services that record privileged mutations.
type Service interface {
	Append(ctx context.Context, entry Entry) (*models.AuditEntry, error)
	Record(ctx context.Context, entry Entry)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (*ListPage, error)
}

type repository interface {
	Insert(ctx context.Context, entry *models.AuditEntry) error
	InsertTx(tx *gorm.DB, entry *models.AuditEntry) error
	List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.AuditEntry, error)
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
	emitter eventEmitter
	logg    *logger.Logger
	now     func() time.Time
}

// ServiceParams bundles the dependencies required to build an audit service.
type ServiceParams struct {
	Repo    repository
	Tx      txRunner
	Emitter eventEmitter
	Logger  *logger.Logger
}

// NewService constructs an audit service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("audit repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		emitter: params.Emitter,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

// Append writes the entry synchronously and mirrors it to the outbox in the
// same transaction. A mirror failure is logged and never fails the append.
func (s *service) Append(ctx context.Context, entry Entry) (*models.AuditEntry, error) {
	if !entry.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid audit action")
	}
	if !entry.EntityType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid audit entity type")
	}
	if entry.Actor.ID == "" || entry.Actor.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "audit actor is required")
	}

	now := s.now().UTC()
	row := &models.AuditEntry{
		ID:         ulid.Make().String(),
		AdminID:    entry.Actor.ID,
		AdminEmail: entry.Actor.Email,
		AdminName:  entry.Actor.Name,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Summary:    entry.Summary,
		Details:    entry.Details,
		CreatedAt:  now,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.InsertTx(tx, row); err != nil {
			return err
		}
		if s.emitter == nil {
			return nil
		}
		mirrorErr := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAuditEntryRecorded,
			AggregateType: enums.AggregateAuditEntry,
			AggregateID:   row.ID,
			Actor: &outbox.ActorRef{
				UserID: entry.Actor.ID,
				Email:  entry.Actor.Email,
				Admin:  true,
			},
			Data:       FromModel(row),
			OccurredAt: now,
		})
		if mirrorErr != nil && s.logg != nil {
			s.logg.Error(ctx, "audit outbox mirror failed", mirrorErr)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append audit entry")
	}
	return row, nil
}

// Record appends and swallows failures so callers never roll back their own
// mutation on an audit write error.
func (s *service) Record(ctx context.Context, entry Entry) {
	if _, err := s.Append(ctx, entry); err != nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"audit_action": entry.Action,
			"entity_type":  entry.EntityType,
		})
		s.logg.Error(logCtx, "audit append failed", err)
	}
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (*ListPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, filter, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list audit entries")
	}

	page := &ListPage{Entries: make([]EntryDTO, 0, len(rows))}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for i := range rows {
		page.Entries = append(page.Entries, FromModel(&rows[i]))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		page.NextCursor = &next
	}
	return page, nil
}
