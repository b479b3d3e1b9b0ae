package order

import (
	"context"
	"database/sql"
	"errors"

	"timecafe-be/internal/logger"

	"go.uber.org/zap"
)

// OwningSession is the slice of session state the order flow needs for
// its guards.
type OwningSession struct {
	ID     int64
	UserID int64
	Active bool
	Ended  bool
}

type Repository interface {
	GetOwningSession(ctx context.Context, sessionID int64) (*OwningSession, error)

	// Create inserts the order and its items, re-checking inside the
	// transaction that the owning session is still active. A checkout
	// that committed first makes this fail with ErrSessionEnded instead
	// of letting the order slip in.
	Create(ctx context.Context, o *Order) error

	ListBySession(ctx context.Context, sessionID int64, filter StatusFilter) ([]*Order, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOwningSession(ctx context.Context, sessionID int64) (*OwningSession, error) {
	var (
		s            OwningSession
		status       string
		checkOutTime sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, check_out_time
		FROM sessions
		WHERE id = $1
	`, sessionID).Scan(&s.ID, &s.UserID, &status, &checkOutTime)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	s.Ended = checkOutTime.Valid || status == "completed"
	s.Active = status == "active" && !checkOutTime.Valid
	return &s, nil
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
		zap.Int64("session_id", o.SessionID),
		zap.Int("item_count", len(o.Items)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
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

	// 1. Re-check the session at write time, locking the row so a
	// concurrent checkout serializes against this insert.
	var (
		status       string
		checkOutTime sql.NullTime
	)
	err = tx.QueryRowContext(ctx, `
		SELECT status, check_out_time
		FROM sessions
		WHERE id = $1
		FOR UPDATE
	`, o.SessionID).Scan(&status, &checkOutTime)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	if checkOutTime.Valid || status != "active" {
		log.Warn("order rejected, session no longer active",
			zap.String("status", status),
		)
		return ErrSessionEnded
	}

	// 2. Insert the order.
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (session_id, user_id, order_time, status, total_cost)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, o.SessionID, o.UserID, o.OrderTime, o.Status, o.TotalCost).Scan(&o.ID)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return err
	}

	// 3. Insert items with their snapshotted unit prices.
	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, menu_item_id, quantity, price)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, item.OrderID, item.MenuItemID, item.Quantity, item.Price).Scan(&item.ID)
		if err != nil {
			log.Error("failed to insert order item",
				zap.Int("item_index", i),
				zap.Error(err),
			)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order transaction", zap.Error(err))
		return err
	}

	committed = true
	return nil
}

func (r *repository) ListBySession(ctx context.Context, sessionID int64, filter StatusFilter) ([]*Order, error) {
	query := `
		SELECT id, session_id, user_id, order_time, status, total_cost
		FROM orders
		WHERE session_id = $1
	`
	args := []any{sessionID}

	if filter != "" && filter != FilterAll {
		query += ` AND status = $2`
		args = append(args, string(filter))
	}
	query += ` ORDER BY order_time ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	byID := make(map[int64]*Order)
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.SessionID, &o.UserID, &o.OrderTime, &o.Status, &o.TotalCost); err != nil {
			return nil, err
		}
		orders = append(orders, &o)
		byID[o.ID] = &o
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.menu_item_id, oi.quantity, oi.price
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.session_id = $1
		ORDER BY oi.id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item Item
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return orders, itemRows.Err()
}
