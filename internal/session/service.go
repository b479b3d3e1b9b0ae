package session

import (
	"context"
	"time"

	"timecafe-be/internal/clock"
	"timecafe-be/internal/logger"
	"timecafe-be/internal/pricing"

	"go.uber.org/zap"
)

type Service interface {
	CheckIn(ctx context.Context, userID int64, tableNumber *string) (*Session, error)
	CheckOut(ctx context.Context, sessionID, userID int64) (*Session, error)
	GetActiveSession(ctx context.Context, userID int64) (*Session, error)
	GetSession(ctx context.Context, sessionID, userID int64) (*Session, error)
	History(ctx context.Context, userID int64) ([]*Session, error)
}

// OrderSource supplies the order subtotal for a session at check-out.
// Implemented by the order service; an interface here keeps the dependency
// one-directional.
type OrderSource interface {
	// SubtotalForSession sums every order tied to the session at this
	// instant, regardless of order status.
	SubtotalForSession(ctx context.Context, sessionID int64) (int, error)
}

type service struct {
	repo   Repository
	orders OrderSource
	clk    clock.Clock

	// minBilledSeconds feeds the minimum-duration billing policy.
	minBilledSeconds int
}

func NewService(repo Repository, orders OrderSource, clk clock.Clock, minBilledSeconds int) Service {
	return &service{
		repo:             repo,
		orders:           orders,
		clk:              clk,
		minBilledSeconds: minBilledSeconds,
	}
}

func (s *service) CheckIn(ctx context.Context, userID int64, tableNumber *string) (*Session, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CheckIn"),
		zap.Int64("user_id", userID),
	)

	// 1. Reject if the user already has an open session. The partial
	// unique index catches the race this read-then-write leaves open.
	existing, err := s.repo.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Warn("check-in rejected, active session exists",
			zap.Int64("session_id", existing.ID),
		)
		return nil, ErrActiveSessionExists
	}

	// 2. Create the session.
	sess := &Session{
		UserID:      userID,
		TableNumber: tableNumber,
		CheckInTime: s.clk.Now(),
		Status:      StatusActive,
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}

	log.Info("checked in", zap.Int64("session_id", sess.ID))
	return sess, nil
}

func (s *service) CheckOut(ctx context.Context, sessionID, userID int64) (*Session, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CheckOut"),
		zap.Int64("session_id", sessionID),
		zap.Int64("user_id", userID),
	)

	// 1. Load and guard.
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrNotSessionOwner
	}
	if sess.Status != StatusActive {
		return nil, ErrSessionNotActive
	}

	// 2. Elapsed time. A missing check-in time means the record is
	// corrupt; reject rather than bill from a guessed instant.
	if sess.CheckInTime.IsZero() {
		log.Error("check-in time is zero, refusing checkout")
		return nil, ErrCorruptCheckIn
	}

	now := s.clk.Now()
	elapsed := int(now.Sub(sess.CheckInTime) / time.Second)
	if elapsed < 0 {
		log.Warn("negative elapsed time clamped", zap.Int("elapsed", elapsed))
		elapsed = 0
	}

	// 3. Cost: time charge over the policy-adjusted duration plus every
	// order on the session right now, any status. The recorded TotalTime
	// keeps the raw elapsed value.
	billed := pricing.ApplyMinimumDuration(elapsed, s.minBilledSeconds)
	timeCost := pricing.ComputeTimeCost(billed)

	subtotal, err := s.orders.SubtotalForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	totalCost := timeCost + subtotal

	// 4. Atomic transition. A concurrent winner leaves status completed
	// and this call surfaces ErrSessionNotActive instead of re-billing.
	if err := s.repo.Complete(ctx, sessionID, now, elapsed, totalCost); err != nil {
		return nil, err
	}

	log.Info("checked out",
		zap.Int("elapsed_seconds", elapsed),
		zap.Int("time_cost", timeCost),
		zap.Int("order_subtotal", subtotal),
		zap.Int("total_cost", totalCost),
	)

	sess.CheckOutTime = &now
	sess.TotalTime = &elapsed
	sess.TotalCost = &totalCost
	sess.Status = StatusCompleted
	return sess, nil
}

func (s *service) GetActiveSession(ctx context.Context, userID int64) (*Session, error) {
	return s.repo.GetActiveByUser(ctx, userID)
}

func (s *service) GetSession(ctx context.Context, sessionID, userID int64) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrNotSessionOwner
	}
	return sess, nil
}

func (s *service) History(ctx context.Context, userID int64) ([]*Session, error) {
	return s.repo.ListByUser(ctx, userID)
}
