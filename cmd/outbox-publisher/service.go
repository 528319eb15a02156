package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/perkgate/perkgate-backend/pkg/config"
	"github.com/perkgate/perkgate-backend/pkg/db/models"
	"github.com/perkgate/perkgate-backend/pkg/logger"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type outboxRepository interface {
	FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type gcpPublisher struct {
	inner *gcppubsub.Publisher
}

func newGCPPublisher(inner *gcppubsub.Publisher) publisher {
	return gcpPublisher{inner: inner}
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.inner.Publish(ctx, msg)
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	Repository outboxRepository
	Publisher  publisher
}

// Service drains outbox_events into the portal events topic. Rows publish at
// least once; consumers dedupe on the event id carried in attributes.
type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	repo         outboxRepository
	publisher    publisher
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("publisher is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		repo:         params.Repository,
		publisher:    params.Publisher,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	interval := s.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox publisher context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed {
			continue
		}

		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// processBatch publishes one batch and reports whether any rows were seen.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	events, err := s.repo.FetchUnpublished(s.batchSize, s.maxAttempts)
	if err != nil {
		return false, fmt.Errorf("fetch unpublished events: %w", err)
	}
	if len(events) == 0 {
		return false, nil
	}

	var batchErr error
	for i := range events {
		event := events[i]
		fields := map[string]any{
			"event_id":       event.ID.String(),
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID,
			"attempt_count":  event.AttemptCount,
		}
		evCtx := s.logg.WithFields(ctx, fields)

		if err := s.publishEvent(ctx, event); err != nil {
			s.logg.Error(evCtx, "outbox event publish failed", err)
			if markErr := s.repo.MarkFailed(event.ID, err); markErr != nil {
				batchErr = multierr.Append(batchErr, fmt.Errorf("mark failed %s: %w", event.ID, markErr))
			}
			if event.AttemptCount+1 >= s.maxAttempts {
				s.logg.Error(evCtx, "outbox event reached max attempts, parked for inspection", err)
			}
			continue
		}

		if err := s.repo.MarkPublished(event.ID); err != nil {
			batchErr = multierr.Append(batchErr, fmt.Errorf("mark published %s: %w", event.ID, err))
			continue
		}
		s.logg.Info(evCtx, "outbox event published")
	}

	return true, batchErr
}

func (s *Service) publishEvent(ctx context.Context, event models.OutboxEvent) error {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := s.publisher.Publish(pubCtx, &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"eventId":       event.ID.String(),
			"eventType":     string(event.EventType),
			"aggregateType": string(event.AggregateType),
			"aggregateId":   event.AggregateID,
		},
	})

	if _, err := result.Get(pubCtx); err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, floor, ceiling time.Duration) time.Duration {
	doubled := current * 2
	if doubled < floor {
		doubled = floor
	}
	if doubled > ceiling {
		doubled = ceiling
	}
	return doubled
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
