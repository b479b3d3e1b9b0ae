package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"timecafe-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id int64) (*Session, error)
	GetActiveByUser(ctx context.Context, userID int64) (*Session, error)
	ListByUser(ctx context.Context, userID int64) ([]*Session, error)

	// Complete performs the atomic active -> completed transition. The
	// UPDATE is guarded on status so that of two concurrent callers only
	// one writes; the other gets ErrSessionNotActive.
	Complete(ctx context.Context, id int64, checkOutTime time.Time, totalTime, totalCost int) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const sessionColumns = `id, user_id, table_number, check_in_time, check_out_time, total_time_seconds, total_cost, status`

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	var s Session
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.TableNumber,
		&s.CheckInTime,
		&s.CheckOutTime,
		&s.TotalTime,
		&s.TotalCost,
		&s.Status,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) Create(ctx context.Context, s *Session) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
		zap.Int64("user_id", s.UserID),
	)

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (user_id, table_number, check_in_time, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, s.UserID, s.TableNumber, s.CheckInTime, s.Status).Scan(&s.ID)

	if err != nil {
		// The partial unique index on (user_id) WHERE status='active'
		// keeps one open session per user across instances.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			log.Warn("duplicate active session rejected by index")
			return ErrActiveSessionExists
		}
		log.Error("failed to insert session", zap.Error(err))
		return err
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = $1
	`, id)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *repository) GetActiveByUser(ctx context.Context, userID int64) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1 AND status = 'active'
	`, userID)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int64) ([]*Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1
		ORDER BY check_in_time DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *repository) Complete(ctx context.Context, id int64, checkOutTime time.Time, totalTime, totalCost int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET
			check_out_time = $1,
			total_time_seconds = $2,
			total_cost = $3,
			status = 'completed'
		WHERE id = $4
		  AND status = 'active'
	`, checkOutTime, totalTime, totalCost, id)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrSessionNotActive
	}

	return nil
}
