package requests

import (
	"context"
	"errors"
	"testing"
	"time"

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
	byID      map[uuid.UUID]*models.AccessRequest
	byEmail   map[string][]*models.AccessRequest
	createErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		byID:    map[uuid.UUID]*models.AccessRequest{},
		byEmail: map[string][]*models.AccessRequest{},
	}
}

func (s *stubRepo) add(request *models.AccessRequest) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	s.byID[request.ID] = request
	s.byEmail[request.UserEmail] = append(s.byEmail[request.UserEmail], request)
}

func (s *stubRepo) CreateTx(_ *gorm.DB, request *models.AccessRequest) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.add(request)
	return nil
}

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.AccessRequest, error) {
	request, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *request
	return &clone, nil
}

func (s *stubRepo) FindPendingByEmail(_ context.Context, email string) (*models.AccessRequest, error) {
	for _, request := range s.byEmail[email] {
		if request.Status == enums.RequestStatusPending {
			clone := *request
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) FindLatestByEmail(_ context.Context, email string) (*models.AccessRequest, error) {
	rows := s.byEmail[email]
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	latest := rows[0]
	for _, request := range rows[1:] {
		if request.CreatedAt.After(latest.CreatedAt) {
			latest = request
		}
	}
	clone := *latest
	return &clone, nil
}

func (s *stubRepo) HasApprovedForEmail(_ context.Context, email string) (bool, error) {
	for _, request := range s.byEmail[email] {
		if request.Status == enums.RequestStatusApproved {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepo) List(_ context.Context, filter ListFilter, limit int, _ *pagination.Cursor) ([]models.AccessRequest, error) {
	var out []models.AccessRequest
	for _, request := range s.byID {
		if filter.Status != nil && request.Status != *filter.Status {
			continue
		}
		out = append(out, *request)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubRepo) TransitionTx(_ *gorm.DB, id uuid.UUID, to enums.RequestStatus, reviewedBy string, at time.Time) (bool, error) {
	request, ok := s.byID[id]
	if !ok || request.Status != enums.RequestStatusPending {
		return false, nil
	}
	request.Status = to
	request.ReviewedBy = &reviewedBy
	request.ReviewedAt = &at
	return true, nil
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

func buildRequestsService(t *testing.T, repo *stubRepo) (Service, *stubAuditor, *stubEmitter) {
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

var testAdmin = audit.Actor{ID: "admin-1", Email: "ops@perkgate.example"}

func TestCreateRejectsDuplicatePending(t *testing.T) {
	repo := newStubRepo()
	svc, _, emitter := buildRequestsService(t, repo)

	requester := Requester{ID: "user-1", Email: "Ana@Startup.IO", Name: "Ana"}
	dto := CreateRequestDTO{CompanyName: "Startup", PartnerName: "Acme Ventures"}

	first, err := svc.Create(context.Background(), requester, dto)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.UserEmail != "ana@startup.io" {
		t.Fatalf("expected normalized email, got %q", first.UserEmail)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventAccessRequestCreated {
		t.Fatalf("expected created event, got %+v", emitter.events)
	}

	_, err = svc.Create(context.Background(), requester, dto)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateConcurrentPendingInsertIsConflict(t *testing.T) {
	repo := newStubRepo()
	repo.createErr = errors.New(`ERROR: duplicate key value violates unique constraint "ux_access_requests_pending_email" (SQLSTATE 23505)`)
	svc, _, emitter := buildRequestsService(t, repo)

	_, err := svc.Create(context.Background(),
		Requester{ID: "user-1", Email: "ana@startup.io", Name: "Ana"},
		CreateRequestDTO{CompanyName: "Startup", PartnerName: "Acme Ventures"},
	)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("expected no events on failed insert, got %+v", emitter.events)
	}
}

func TestCreateAllowedAfterRejection(t *testing.T) {
	repo := newStubRepo()
	svc, _, _ := buildRequestsService(t, repo)

	repo.add(&models.AccessRequest{
		UserID:    "user-1",
		UserEmail: "ana@startup.io",
		Status:    enums.RequestStatusRejected,
		CreatedAt: time.Now().Add(-time.Hour),
	})

	_, err := svc.Create(context.Background(),
		Requester{ID: "user-1", Email: "ana@startup.io", Name: "Ana"},
		CreateRequestDTO{CompanyName: "Startup", PartnerName: "Acme Ventures"},
	)
	if err != nil {
		t.Fatalf("create after rejection: %v", err)
	}
}

func TestTransitionApproveRecordsReviewer(t *testing.T) {
	repo := newStubRepo()
	svc, auditor, emitter := buildRequestsService(t, repo)

	request := &models.AccessRequest{
		UserID:    "user-1",
		UserEmail: "ana@startup.io",
		Status:    enums.RequestStatusPending,
		CreatedAt: time.Now(),
	}
	repo.add(request)

	updated, err := svc.Transition(context.Background(), testAdmin, request.ID, enums.RequestStatusApproved)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Status != enums.RequestStatusApproved {
		t.Fatalf("status = %s", updated.Status)
	}
	if updated.ReviewedBy == nil || *updated.ReviewedBy != testAdmin.Email {
		t.Fatalf("reviewedBy = %v", updated.ReviewedBy)
	}
	if updated.ReviewedAt == nil {
		t.Fatalf("expected reviewedAt set")
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Action != enums.AuditActionRequestApprove {
		t.Fatalf("expected access_request.approve audit entry")
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventAccessRequestApproved {
		t.Fatalf("expected approved event")
	}
}

func TestTransitionTerminalRowIsStateConflict(t *testing.T) {
	repo := newStubRepo()
	svc, auditor, _ := buildRequestsService(t, repo)

	request := &models.AccessRequest{
		UserID:    "user-1",
		UserEmail: "ana@startup.io",
		Status:    enums.RequestStatusApproved,
		CreatedAt: time.Now(),
	}
	repo.add(request)

	_, err := svc.Transition(context.Background(), testAdmin, request.ID, enums.RequestStatusRejected)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if repo.byID[request.ID].Status != enums.RequestStatusApproved {
		t.Fatalf("row must stay untouched")
	}
	if len(auditor.entries) != 0 {
		t.Fatalf("no audit entry for a refused transition")
	}
}

func TestTransitionRejectsNonTerminalTarget(t *testing.T) {
	svc, _, _ := buildRequestsService(t, newStubRepo())

	_, err := svc.Transition(context.Background(), testAdmin, uuid.New(), enums.RequestStatusPending)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMostRelevantPrefersPending(t *testing.T) {
	repo := newStubRepo()
	svc, _, _ := buildRequestsService(t, repo)

	older := &models.AccessRequest{
		UserEmail: "ana@startup.io",
		Status:    enums.RequestStatusPending,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	repo.add(older)
	repo.add(&models.AccessRequest{
		UserEmail: "ana@startup.io",
		Status:    enums.RequestStatusRejected,
		CreatedAt: time.Now(),
	})

	found, err := svc.MostRelevantForEmail(context.Background(), "ana@startup.io")
	if err != nil {
		t.Fatalf("most relevant: %v", err)
	}
	if found.ID != older.ID {
		t.Fatalf("expected the pending row even when older")
	}
}

func TestMostRelevantNoneOnFile(t *testing.T) {
	svc, _, _ := buildRequestsService(t, newStubRepo())

	_, err := svc.MostRelevantForEmail(context.Background(), "ghost@startup.io")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
