package whitelist

import (
	"context"
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

type stubUploadRepo struct {
	rows map[uuid.UUID][]models.WhitelistDomain
}

func newStubUploadRepo() *stubUploadRepo {
	return &stubUploadRepo{rows: map[uuid.UUID][]models.WhitelistDomain{}}
}

func (s *stubUploadRepo) ReplaceForPartnerTx(_ *gorm.DB, partnerID uuid.UUID, rows []models.WhitelistDomain) error {
	s.rows[partnerID] = rows
	return nil
}

func (s *stubUploadRepo) ListForPartner(_ context.Context, partnerID uuid.UUID) ([]models.WhitelistDomain, error) {
	return s.rows[partnerID], nil
}

type stubServiceTx struct{}

func (stubServiceTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubServiceAuditor struct {
	entries []audit.Entry
}

func (s *stubServiceAuditor) Append(_ context.Context, entry audit.Entry) (*models.AuditEntry, error) {
	s.entries = append(s.entries, entry)
	return &models.AuditEntry{}, nil
}

func (s *stubServiceAuditor) Record(ctx context.Context, entry audit.Entry) {
	_, _ = s.Append(ctx, entry)
}

func (s *stubServiceAuditor) List(_ context.Context, _ audit.ListFilter, _ pagination.Params) (*audit.ListPage, error) {
	return &audit.ListPage{}, nil
}

type stubServiceEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubServiceEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type recordingInvalidator struct {
	invalidated []uuid.UUID
}

func (r *recordingInvalidator) Invalidate(partnerID uuid.UUID) {
	r.invalidated = append(r.invalidated, partnerID)
}

func TestUploadReplacesAndInvalidates(t *testing.T) {
	repo := newStubUploadRepo()
	auditor := &stubServiceAuditor{}
	emitter := &stubServiceEmitter{}
	inval := &recordingInvalidator{}
	partnerID := uuid.New()

	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Partners: &stubPartnerGetter{partner: &models.Partner{ID: partnerID}},
		Tx:       stubServiceTx{},
		Auditor:  auditor,
		Emitter:  emitter,
		Cache:    inval,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	actor := audit.Actor{ID: uuid.NewString(), Email: "ops@perkgate.example"}
	count, err := svc.Upload(context.Background(), actor, partnerID, UploadDTO{
		Domains: []UploadRow{
			{Domain: "Acme.IO"},
			{Domain: "acme.io"},
			{Domain: "widgets.co"},
		},
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected duplicates collapsed to 2 rows, got %d", count)
	}
	if len(repo.rows[partnerID]) != 2 {
		t.Fatalf("expected 2 persisted rows, got %d", len(repo.rows[partnerID]))
	}
	if repo.rows[partnerID][0].Domain != "acme.io" {
		t.Fatalf("expected normalized domain, got %q", repo.rows[partnerID][0].Domain)
	}
	if len(inval.invalidated) != 1 || inval.invalidated[0] != partnerID {
		t.Fatalf("expected cache invalidation for partner")
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Action != enums.AuditActionWhitelistUpload {
		t.Fatalf("expected whitelist.upload audit entry")
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventWhitelistUploaded {
		t.Fatalf("expected whitelist_uploaded outbox event")
	}
}

func TestUploadUnknownPartner(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Repo:     newStubUploadRepo(),
		Partners: &stubPartnerGetter{err: pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")},
		Tx:       stubServiceTx{},
		Auditor:  &stubServiceAuditor{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, uploadErr := svc.Upload(context.Background(), audit.Actor{ID: "a", Email: "a@x.io"}, uuid.New(), UploadDTO{
		Domains: []UploadRow{{Domain: "acme.io"}},
	})
	typed := pkgerrors.As(uploadErr)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", uploadErr)
	}
}
