package payment

import (
	"context"
	"database/sql"
	"errors"

	"timecafe-be/internal/logger"

	"go.uber.org/zap"
)

// BillableSession is the slice of session state payment creation needs.
type BillableSession struct {
	ID        int64
	UserID    int64
	Status    string
	TotalCost *int
}

type Repository interface {
	GetSessionForPayment(ctx context.Context, sessionID int64) (*BillableSession, error)
	GetStripeCustomer(ctx context.Context, userID int64) (string, error)

	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id int64) (*Payment, error)

	// ConfirmAndCascade flips the payment to completed and the session's
	// pending orders to completed in one transaction. The UPDATE is
	// guarded on status, so re-confirming an already-completed payment
	// touches nothing.
	ConfirmAndCascade(ctx context.Context, paymentID int64, chargeRef string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetSessionForPayment(ctx context.Context, sessionID int64) (*BillableSession, error) {
	var s BillableSession
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, total_cost
		FROM sessions
		WHERE id = $1
	`, sessionID).Scan(&s.ID, &s.UserID, &s.Status, &s.TotalCost)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) GetStripeCustomer(ctx context.Context, userID int64) (string, error) {
	var customerID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT stripe_customer_id
		FROM users
		WHERE id = $1
	`, userID).Scan(&customerID)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoPaymentMethod
	}
	if err != nil {
		return "", err
	}
	if !customerID.Valid || customerID.String == "" {
		return "", ErrNoPaymentMethod
	}
	return customerID.String, nil
}

func (r *repository) Create(ctx context.Context, p *Payment) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO payments (session_id, user_id, amount, charge_ref, status, payment_method, payment_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, p.SessionID, p.UserID, p.Amount, p.ChargeRef, p.Status, p.Method, p.PaymentTime).Scan(&p.ID)
	return err
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Payment, error) {
	var p Payment
	err := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, user_id, amount, charge_ref, status, payment_method, payment_time
		FROM payments
		WHERE id = $1
	`, id).Scan(&p.ID, &p.SessionID, &p.UserID, &p.Amount, &p.ChargeRef, &p.Status, &p.Method, &p.PaymentTime)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) ConfirmAndCascade(ctx context.Context, paymentID int64, chargeRef string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ConfirmAndCascade"),
		zap.Int64("payment_id", paymentID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	// 1. Flip the payment, guarded so a retry is a no-op.
	var sessionID int64
	err = tx.QueryRowContext(ctx, `
		UPDATE payments
		SET status = 'completed', charge_ref = $1
		WHERE id = $2
		  AND status <> 'completed'
		RETURNING session_id
	`, chargeRef, paymentID).Scan(&sessionID)

	if errors.Is(err, sql.ErrNoRows) {
		// Already completed; nothing to cascade.
		return nil
	}
	if err != nil {
		return err
	}

	// 2. Cascade the session's pending orders.
	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = 'completed'
		WHERE session_id = $1
		  AND status = 'pending'
	`, sessionID)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	cascaded, _ := res.RowsAffected()
	log.Info("payment confirmed",
		zap.Int64("session_id", sessionID),
		zap.Int64("orders_completed", cascaded),
	)
	return nil
}
