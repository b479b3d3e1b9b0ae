package order

import (
	"context"

	"timecafe-be/internal/clock"
	"timecafe-be/internal/logger"
	"timecafe-be/internal/menu"

	"go.uber.org/zap"
)

// ItemRequest is one requested line: the menu item and how many.
type ItemRequest struct {
	MenuItemID int64
	Quantity   int
}

type Service interface {
	PlaceOrder(ctx context.Context, sessionID, userID int64, items []ItemRequest) (*Order, error)
	ListForSession(ctx context.Context, sessionID, userID int64, filter StatusFilter) ([]*Order, error)
	GetOrderSubtotal(ctx context.Context, sessionID, userID int64, filter StatusFilter) (int, error)

	// SubtotalForSession is the check-out call site of the aggregation:
	// it folds every order tied to the session at this instant,
	// regardless of status. Ownership was already verified by the
	// checkout guards.
	SubtotalForSession(ctx context.Context, sessionID int64) (int, error)
}

type service struct {
	repo     Repository
	menuRepo menu.Repository
	clk      clock.Clock
}

func NewService(repo Repository, menuRepo menu.Repository, clk clock.Clock) Service {
	return &service{
		repo:     repo,
		menuRepo: menuRepo,
		clk:      clk,
	}
}

func (s *service) PlaceOrder(ctx context.Context, sessionID, userID int64, items []ItemRequest) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "PlaceOrder"),
		zap.Int64("session_id", sessionID),
		zap.Int64("user_id", userID),
		zap.Int("item_count", len(items)),
	)

	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	// 1. Entry guards. The repository re-checks session state again at
	// write time; this pass exists to give callers the precise reason.
	sess, err := s.repo.GetOwningSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrNotSessionOwner
	}
	if sess.Ended {
		return nil, ErrSessionEnded
	}
	if !sess.Active {
		return nil, ErrNoActiveSession
	}

	// 2. Resolve current menu prices and snapshot them onto the lines.
	o := &Order{
		SessionID: sessionID,
		UserID:    userID,
		OrderTime: s.clk.Now(),
		Status:    StatusPending,
	}

	for _, req := range items {
		if req.Quantity <= 0 {
			log.Warn("invalid quantity", zap.Int64("menu_item_id", req.MenuItemID))
			return nil, ErrInvalidQuantity
		}

		item, err := s.menuRepo.GetByID(ctx, req.MenuItemID)
		if err != nil {
			return nil, err
		}
		if !item.Available {
			return nil, menu.ErrItemUnavailable
		}

		o.Items = append(o.Items, Item{
			MenuItemID: item.ID,
			Quantity:   req.Quantity,
			Price:      item.Price,
		})
		o.TotalCost += item.Price * req.Quantity
	}

	// 3. Persist; the transaction re-checks the session so an order can
	// never land after a checkout that started first.
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	log.Info("order placed",
		zap.Int64("order_id", o.ID),
		zap.Int("total_cost", o.TotalCost),
	)
	return o, nil
}

func (s *service) ListForSession(ctx context.Context, sessionID, userID int64, filter StatusFilter) ([]*Order, error) {
	sess, err := s.repo.GetOwningSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrNotSessionOwner
	}

	return s.repo.ListBySession(ctx, sessionID, filter)
}

// GetOrderSubtotal returns the running total for a session under the
// caller's chosen status filter.
func (s *service) GetOrderSubtotal(ctx context.Context, sessionID, userID int64, filter StatusFilter) (int, error) {
	orders, err := s.ListForSession(ctx, sessionID, userID, filter)
	if err != nil {
		return 0, err
	}
	return Subtotal(orders), nil
}

func (s *service) SubtotalForSession(ctx context.Context, sessionID int64) (int, error) {
	orders, err := s.repo.ListBySession(ctx, sessionID, FilterAll)
	if err != nil {
		return 0, err
	}
	return Subtotal(orders), nil
}
