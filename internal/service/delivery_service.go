package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"order-pipeline/internal/errs"
	"order-pipeline/internal/logger"
	"order-pipeline/internal/metrics"
	"order-pipeline/internal/model"
	"order-pipeline/internal/repository"
)

const DefaultAdvanceAttempts = 5

// AdvanceResult reports one advance call. Changed is false at the terminal stage.
type AdvanceResult struct {
	Previous model.Stage
	Current  model.Stage
	Changed  bool
	Tracking *model.Tracking
}

type DeliveryService struct {
	tracking  TrackingRepository
	publisher EventPublisher
	log       *logger.Logger
	metrics   *metrics.Collectors
	now       func() time.Time
	attempts  int
}

func NewDeliveryService(tracking TrackingRepository, publisher EventPublisher, log *logger.Logger, m *metrics.Collectors, attempts int) *DeliveryService {
	if publisher == nil {
		publisher = NopPublisher
	}
	if attempts < 1 {
		attempts = DefaultAdvanceAttempts
	}
	return &DeliveryService{
		tracking:  tracking,
		publisher: publisher,
		log:       log,
		metrics:   m,
		now:       utcNow,
		attempts:  attempts,
	}
}

func validOrderID(orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return errs.New(errs.CodeValidation, "order_id is required")
	}
	return nil
}

// StartTracking creates the record at the initial stage. A second start is rejected
// so an existing history can never be reset.
func (s *DeliveryService) StartTracking(ctx context.Context, orderID string) (*model.Tracking, error) {
	if err := validOrderID(orderID); err != nil {
		return nil, err
	}
	ctx = s.log.WithOrderID(ctx, orderID)

	t := model.NewTracking(orderID, s.now())
	err := s.tracking.Create(ctx, t)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, errs.Newf(errs.CodeConflict, "order %s is already being tracked", orderID)
	}
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "could not start tracking")
	}

	s.metrics.StageReached(t.CurrentStatus)
	s.log.Info(ctx, "tracking started")
	return t, nil
}

// Advance moves the order exactly one stage forward. At the terminal stage it is a
// no-op. The write is a compare-and-set on the current stage; losing to a concurrent
// advance re-reads and tries again from the new stage.
func (s *DeliveryService) Advance(ctx context.Context, orderID string) (*AdvanceResult, error) {
	if err := validOrderID(orderID); err != nil {
		return nil, err
	}
	ctx = s.log.WithOrderID(ctx, orderID)

	for attempt := 0; attempt < s.attempts; attempt++ {
		current, err := s.GetStatus(ctx, orderID)
		if err != nil {
			return nil, err
		}

		if err := current.Validate(); err != nil {
			s.log.Error(ctx, "tracking record breaks the stage history invariant", err)
			return nil, errs.Wrap(errs.CodeInternal, err, "tracking record is corrupt")
		}

		from := current.CurrentStatus
		to, err := from.Next()
		if errors.Is(err, model.ErrTerminalStage) {
			return &AdvanceResult{Previous: from, Current: from, Tracking: current}, nil
		}
		if err != nil {
			return nil, errs.Wrap(errs.CodeInternal, err, "tracking record is corrupt")
		}

		updated, err := s.tracking.CompareAndAdvance(ctx, orderID, from, to, s.now())
		switch {
		case errors.Is(err, repository.ErrStale):
			s.metrics.AdvanceContended()
			continue
		case errors.Is(err, repository.ErrNotFound):
			return nil, errs.Newf(errs.CodeNotFound, "no tracking found for order %s", orderID)
		case err != nil:
			return nil, errs.Wrap(errs.CodeInternal, err, "could not advance delivery")
		}

		s.metrics.StageReached(to)
		s.log.Zerolog(ctx).Info().
			Str("previous_status", from.String()).
			Str("current_status", to.String()).
			Msg("delivery advanced")
		if err := s.publisher.PublishDeliveryAdvanced(ctx, updated, from); err != nil {
			s.log.Warn(ctx, "publishing delivery_status_changed failed", err)
		}
		return &AdvanceResult{Previous: from, Current: to, Changed: true, Tracking: updated}, nil
	}
	return nil, errs.Newf(errs.CodeConflict, "order %s is being advanced concurrently, try again", orderID)
}

func (s *DeliveryService) GetStatus(ctx context.Context, orderID string) (*model.Tracking, error) {
	if err := validOrderID(orderID); err != nil {
		return nil, err
	}
	t, err := s.tracking.FindByOrderID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errs.Newf(errs.CodeNotFound, "no tracking found for order %s", orderID)
	}
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "could not load tracking")
	}
	return t, nil
}
