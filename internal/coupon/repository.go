package coupon

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	ListActiveByUser(ctx context.Context, userID int64, now time.Time) ([]*Coupon, error)

	// Redeem marks the coupon used. Guarded on is_used and expiry so a
	// second redemption fails with ErrCouponSpent.
	Redeem(ctx context.Context, id, userID int64, now time.Time) (*Coupon, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const couponColumns = `id, user_id, type, code, value, expiry_date, is_used, created_at`

func (r *repository) Create(ctx context.Context, c *Coupon) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO coupons (user_id, type, code, value, expiry_date, is_used, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		RETURNING id
	`, c.UserID, c.Type, c.Code, c.Value, c.ExpiryDate, c.CreatedAt).Scan(&c.ID)
	return err
}

func (r *repository) ListActiveByUser(ctx context.Context, userID int64, now time.Time) ([]*Coupon, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+couponColumns+`
		FROM coupons
		WHERE user_id = $1
		  AND is_used = FALSE
		  AND expiry_date > $2
		ORDER BY expiry_date ASC
	`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []*Coupon
	for rows.Next() {
		var c Coupon
		if err := rows.Scan(&c.ID, &c.UserID, &c.Type, &c.Code, &c.Value, &c.ExpiryDate, &c.IsUsed, &c.CreatedAt); err != nil {
			return nil, err
		}
		coupons = append(coupons, &c)
	}
	return coupons, rows.Err()
}

func (r *repository) Redeem(ctx context.Context, id, userID int64, now time.Time) (*Coupon, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE coupons
		SET is_used = TRUE
		WHERE id = $1
		  AND user_id = $2
		  AND is_used = FALSE
		  AND expiry_date > $3
		RETURNING `+couponColumns+`
	`, id, userID, now)

	var c Coupon
	err := row.Scan(&c.ID, &c.UserID, &c.Type, &c.Code, &c.Value, &c.ExpiryDate, &c.IsUsed, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Either missing, someone else's, expired, or already spent.
		exists, checkErr := r.exists(ctx, id, userID)
		if checkErr != nil {
			return nil, checkErr
		}
		if !exists {
			return nil, ErrCouponNotFound
		}
		return nil, ErrCouponSpent
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) exists(ctx context.Context, id, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM coupons WHERE id = $1 AND user_id = $2)
	`, id, userID).Scan(&exists)
	return exists, err
}
