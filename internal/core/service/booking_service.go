package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskflow/booking-approval/internal/core/domain"
	"github.com/deskflow/booking-approval/internal/core/ports"
)

type BookingService struct {
	repo        ports.BookingRepository
	idempotency ports.IdempotencyStore
	logger      zerolog.Logger
	now         func() time.Time
}

// NewBookingService wires the approval workflow. idempotency may be nil, in
// which case Idempotency-Key headers are ignored.
func NewBookingService(repo ports.BookingRepository, idempotency ports.IdempotencyStore, logger zerolog.Logger) *BookingService {
	return &BookingService{
		repo:        repo,
		idempotency: idempotency,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a booking request in pending_manager. With an idempotency key
// the key is reserved before the insert, so concurrent retries produce one
// booking: later calls replay it, or get ErrRequestInProgress while the first
// call is still running.
func (s *BookingService) Create(ctx context.Context, in ports.CreateBookingInput) (*ports.CreateBookingResult, error) {
	if err := domain.Authorize(in.Actor, domain.RoleEmployee); err != nil {
		return nil, err
	}

	useKey := in.IdempotencyKey != "" && s.idempotency != nil
	if useKey {
		existing, keep, err := s.claim(ctx, in)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &ports.CreateBookingResult{Booking: existing, Replayed: true}, nil
		}
		useKey = keep
	}

	b := &domain.BookingRequest{
		EmployeeID:  in.Actor.UserID,
		BookingDate: in.BookingDate,
		Status:      domain.StatusPendingManager,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, b); err != nil {
		if useKey {
			if rerr := s.idempotency.Release(ctx, in.Actor.UserID, in.IdempotencyKey); rerr != nil {
				s.logger.Warn().Err(rerr).Msg("failed to release idempotency key")
			}
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if useKey {
		if err := s.idempotency.Remember(ctx, in.Actor.UserID, in.IdempotencyKey, b.ID); err != nil {
			s.logger.Warn().Err(err).Str("booking_id", b.ID).Msg("failed to store idempotency key")
		}
	}

	s.logger.Info().
		Str("booking_id", b.ID).
		Str("employee_id", b.EmployeeID).
		Str("booking_date", b.BookingDate.Format(domain.DateLayout)).
		Msg("booking request created")

	return &ports.CreateBookingResult{Booking: b}, nil
}

// claim reserves the caller's retry key. It returns the booking an earlier
// call produced, or keep=true when this call now owns the key. Store
// failures are logged and the create proceeds without the key.
func (s *BookingService) claim(ctx context.Context, in ports.CreateBookingInput) (*domain.BookingRequest, bool, error) {
	reserved, id, err := s.idempotency.Reserve(ctx, in.Actor.UserID, in.IdempotencyKey)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Msg("idempotency reserve failed, creating without key")
		return nil, false, nil
	case reserved:
		return nil, true, nil
	case id == "":
		return nil, false, domain.ErrRequestInProgress
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("booking_id", id).Msg("idempotency key points to unreadable booking")
		return nil, false, nil
	}
	s.logger.Info().Str("idempotency_key", in.IdempotencyKey).Str("booking_id", id).Msg("idempotent replay")
	return existing, false, nil
}

func (s *BookingService) Get(ctx context.Context, id string) (*domain.BookingRequest, error) {
	return s.repo.FindByID(ctx, id)
}

// ManagerDecide applies a team manager's decision to a pending_manager request.
func (s *BookingService) ManagerDecide(ctx context.Context, in ports.DecideInput) (*domain.BookingRequest, error) {
	return s.decide(ctx, domain.ManagerStage, in)
}

// AdminDecide applies an administrator's decision to a pending_admin request.
func (s *BookingService) AdminDecide(ctx context.Context, in ports.DecideInput) (*domain.BookingRequest, error) {
	return s.decide(ctx, domain.AdminStage, in)
}

func (s *BookingService) decide(ctx context.Context, stage domain.Stage, in ports.DecideInput) (*domain.BookingRequest, error) {
	if err := domain.Authorize(in.Actor, stage.Actor); err != nil {
		return nil, err
	}
	decision, err := domain.ParseDecision(in.Action)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, in.BookingID)
	if err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%s decision: %w", stage.Name, err)
	}

	next := stage.Next(decision)
	if current.Status != stage.From || !current.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%s decision: %w (status is %s)", stage.Name, domain.ErrInvalidTransition, current.Status)
	}

	// The status guard is re-checked by the store in the same statement as
	// the write; a concurrent decision that got there first yields a miss.
	updated, err := s.repo.Transition(ctx, domain.Transition{
		ID:    current.ID,
		Stage: stage,
		To:    next,
		At:    s.now(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrBookingNotFound) {
			return nil, fmt.Errorf("%s decision: %w", stage.Name, err)
		}
		return nil, fmt.Errorf("%s decision: update status: %w", stage.Name, err)
	}

	s.logger.Info().
		Str("booking_id", updated.ID).
		Str("stage", stage.Name).
		Str("decision", string(decision)).
		Str("actor_id", in.Actor.UserID).
		Str("status", string(updated.Status)).
		Msg("booking decision applied")

	return updated, nil
}

func (s *BookingService) ListAll(ctx context.Context) ([]domain.BookingView, error) {
	views, err := s.repo.ListWithEmployee(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return views, nil
}
