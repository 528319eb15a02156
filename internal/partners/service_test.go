package partners

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkgate/perkgate-backend/internal/audit"
	"github.com/perkgate/perkgate-backend/pkg/db/models"
	"github.com/perkgate/perkgate-backend/pkg/enums"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/outbox"
	"github.com/perkgate/perkgate-backend/pkg/pagination"
)

type stubRepo struct {
	partners  map[uuid.UUID]*models.Partner
	cleared   bool
	marked    uuid.UUID
	createErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{partners: map[uuid.UUID]*models.Partner{}}
}

func (s *stubRepo) Create(_ context.Context, partner *models.Partner) error {
	if s.createErr != nil {
		return s.createErr
	}
	if partner.ID == uuid.Nil {
		partner.ID = uuid.New()
	}
	s.partners[partner.ID] = partner
	return nil
}

func (s *stubRepo) Update(_ context.Context, id uuid.UUID, changes map[string]any) error {
	partner, ok := s.partners[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if name, ok := changes["name"].(string); ok {
		partner.Name = name
	}
	if active, ok := changes["is_active"].(bool); ok {
		partner.IsActive = active
	}
	return nil
}

func (s *stubRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.partners, id)
	return nil
}

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Partner, error) {
	partner, ok := s.partners[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *partner
	return &clone, nil
}

func (s *stubRepo) FindDefault(_ context.Context) (*models.Partner, error) {
	for _, partner := range s.partners {
		if partner.IsDefault && partner.IsActive {
			clone := *partner
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) List(_ context.Context) ([]models.Partner, error) {
	out := make([]models.Partner, 0, len(s.partners))
	for _, partner := range s.partners {
		out = append(out, *partner)
	}
	return out, nil
}

func (s *stubRepo) ClearDefaultTx(_ *gorm.DB, except uuid.UUID) error {
	s.cleared = true
	for id, partner := range s.partners {
		if id != except {
			partner.IsDefault = false
		}
	}
	return nil
}

func (s *stubRepo) MarkDefaultTx(_ *gorm.DB, id uuid.UUID) error {
	partner, ok := s.partners[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.marked = id
	partner.IsDefault = true
	return nil
}

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubAuditor struct {
	entries []audit.Entry
}

func (s *stubAuditor) Append(_ context.Context, entry audit.Entry) (*models.AuditEntry, error) {
	s.entries = append(s.entries, entry)
	return &models.AuditEntry{}, nil
}

func (s *stubAuditor) Record(ctx context.Context, entry audit.Entry) {
	_, _ = s.Append(ctx, entry)
}

func (s *stubAuditor) List(_ context.Context, _ audit.ListFilter, _ pagination.Params) (*audit.ListPage, error) {
	return &audit.ListPage{}, nil
}

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func buildPartnersService(t *testing.T, repo *stubRepo) (Service, *stubAuditor, *stubEmitter) {
	t.Helper()

	auditor := &stubAuditor{}
	emitter := &stubEmitter{}
	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Tx:      stubTx{},
		Auditor: auditor,
		Emitter: emitter,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, auditor, emitter
}

var testActor = audit.Actor{ID: "admin-1", Email: "ops@perkgate.example"}

func TestCreateDerivesSlugAndDomain(t *testing.T) {
	repo := newStubRepo()
	svc, auditor, _ := buildPartnersService(t, repo)

	partner, err := svc.Create(context.Background(), testActor, CreatePartnerDTO{
		Name:       "Acme Ventures",
		OwnerEmail: "Team@ACME.io",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if partner.Slug != "acme-ventures" {
		t.Fatalf("slug = %q", partner.Slug)
	}
	if partner.OwnerDomain != "acme.io" {
		t.Fatalf("owner domain = %q", partner.OwnerDomain)
	}
	if !partner.IsActive {
		t.Fatalf("expected partner active by default")
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Action != enums.AuditActionPartnerCreate {
		t.Fatalf("expected one partner.create audit entry, got %+v", auditor.entries)
	}
}

func TestCreateDuplicateSlugIsConflict(t *testing.T) {
	repo := newStubRepo()
	repo.createErr = errors.New(`ERROR: duplicate key value violates unique constraint "partners_slug_key" (SQLSTATE 23505)`)
	svc, auditor, _ := buildPartnersService(t, repo)

	_, err := svc.Create(context.Background(), testActor, CreatePartnerDTO{
		Name:       "Acme Ventures",
		OwnerEmail: "team@acme.io",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(auditor.entries) != 0 {
		t.Fatalf("expected no audit entries on failed create, got %+v", auditor.entries)
	}
}

func TestDeleteDefaultPartnerIsConflict(t *testing.T) {
	repo := newStubRepo()
	svc, _, _ := buildPartnersService(t, repo)

	partner := &models.Partner{ID: uuid.New(), Slug: "acme", IsActive: true, IsDefault: true}
	repo.partners[partner.ID] = partner

	err := svc.Delete(context.Background(), testActor, partner.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, ok := repo.partners[partner.ID]; !ok {
		t.Fatalf("partner must not be deleted")
	}
}

func TestSetDefaultSwapsAtomically(t *testing.T) {
	repo := newStubRepo()
	svc, auditor, emitter := buildPartnersService(t, repo)

	old := &models.Partner{ID: uuid.New(), Slug: "old", IsActive: true, IsDefault: true}
	next := &models.Partner{ID: uuid.New(), Slug: "next", IsActive: true}
	repo.partners[old.ID] = old
	repo.partners[next.ID] = next

	updated, err := svc.SetDefault(context.Background(), testActor, next.ID)
	if err != nil {
		t.Fatalf("set default: %v", err)
	}
	if !updated.IsDefault {
		t.Fatalf("expected new default flagged")
	}
	if old.IsDefault {
		t.Fatalf("expected prior default cleared")
	}
	if !repo.cleared || repo.marked != next.ID {
		t.Fatalf("expected clear-then-mark inside the transaction")
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventPartnerDefaultChanged {
		t.Fatalf("expected partner_default_changed event, got %+v", emitter.events)
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Action != enums.AuditActionPartnerDefault {
		t.Fatalf("expected partner.set_default audit entry")
	}
}

func TestSetDefaultInactivePartner(t *testing.T) {
	repo := newStubRepo()
	svc, _, _ := buildPartnersService(t, repo)

	partner := &models.Partner{ID: uuid.New(), Slug: "dormant", IsActive: false}
	repo.partners[partner.ID] = partner

	_, err := svc.SetDefault(context.Background(), testActor, partner.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestGetDefaultWhenNoneConfigured(t *testing.T) {
	svc, _, _ := buildPartnersService(t, newStubRepo())

	_, err := svc.GetDefault(context.Background())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
