package payment

import (
	"context"
	"fmt"

	"timecafe-be/internal/clock"
	"timecafe-be/internal/logger"

	"go.uber.org/zap"
)

// IntentResult pairs the stored payment with what the client needs to
// finish the charge on their side.
type IntentResult struct {
	Payment      *Payment
	ClientSecret string
}

type Service interface {
	// CreateIntent opens a settlement attempt against a completed
	// session, snapshotting its total as the payment amount.
	CreateIntent(ctx context.Context, sessionID, userID int64) (*IntentResult, error)

	// Confirm marks the payment completed and cascades the session's
	// orders. Idempotent: confirming an already-completed payment is a
	// no-op, since clients retry over flaky networks.
	Confirm(ctx context.Context, paymentID, userID int64, chargeRef string) (*Payment, error)
}

type service struct {
	repo    Repository
	gateway Gateway
	clk     clock.Clock
}

func NewService(repo Repository, gateway Gateway, clk clock.Clock) Service {
	return &service{
		repo:    repo,
		gateway: gateway,
		clk:     clk,
	}
}

func (s *service) CreateIntent(ctx context.Context, sessionID, userID int64) (*IntentResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateIntent"),
		zap.Int64("session_id", sessionID),
		zap.Int64("user_id", userID),
	)

	// 1. Guards: the session must be this user's and already checked out.
	sess, err := s.repo.GetSessionForPayment(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrNotSessionOwner
	}
	if sess.Status != "completed" || sess.TotalCost == nil {
		return nil, ErrSessionNotCompleted
	}

	customerID, err := s.repo.GetStripeCustomer(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 2. Record the payment first; the amount is frozen here.
	p := &Payment{
		SessionID:   sessionID,
		UserID:      userID,
		Amount:      *sess.TotalCost,
		Status:      StatusPending,
		Method:      "card",
		PaymentTime: s.clk.Now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	// 3. Open the charge with the provider.
	referenceID := fmt.Sprintf("session-%d-payment-%d", sessionID, p.ID)
	charge, err := s.gateway.CreateCharge(ctx, referenceID, p.Amount, customerID)
	if err != nil {
		log.Error("failed to create charge", zap.Error(err))
		return nil, fmt.Errorf("failed to create charge: %w", err)
	}

	log.Info("payment intent created",
		zap.Int64("payment_id", p.ID),
		zap.Int("amount", p.Amount),
	)

	return &IntentResult{
		Payment:      p,
		ClientSecret: charge.ClientSecret,
	}, nil
}

func (s *service) Confirm(ctx context.Context, paymentID, userID int64, chargeRef string) (*Payment, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Confirm"),
		zap.Int64("payment_id", paymentID),
	)

	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrNotPaymentOwner
	}

	if p.Status == StatusCompleted {
		log.Info("payment already confirmed, no-op")
		return p, nil
	}

	// Never trust the client's word that the charge went through.
	status, err := s.gateway.ConfirmCharge(ctx, chargeRef)
	if err != nil {
		log.Error("failed to verify charge", zap.Error(err))
		return nil, fmt.Errorf("failed to verify charge: %w", err)
	}
	if !status.Paid {
		log.Warn("charge not settled", zap.String("charge_status", status.Status))
		return nil, ErrChargeNotSettled
	}

	if err := s.repo.ConfirmAndCascade(ctx, paymentID, chargeRef); err != nil {
		return nil, err
	}

	p.Status = StatusCompleted
	p.ChargeRef = &chargeRef
	return p, nil
}
