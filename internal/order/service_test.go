package order

import (
	"context"
	"testing"
	"time"

	"timecafe-be/internal/clock"
	"timecafe-be/internal/menu"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetOwningSession(ctx context.Context, sessionID int64) (*OwningSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*OwningSession), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, o *Order) error {
	args := m.Called(ctx, o)
	if args.Error(0) == nil {
		o.ID = 1
	}
	return args.Error(0)
}

func (m *MockRepository) ListBySession(ctx context.Context, sessionID int64, filter StatusFilter) ([]*Order, error) {
	args := m.Called(ctx, sessionID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Order), args.Error(1)
}

// MockMenuRepository is a mock implementation of menu.Repository
type MockMenuRepository struct {
	mock.Mock
}

func (m *MockMenuRepository) List(ctx context.Context) ([]*menu.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*menu.Item), args.Error(1)
}

func (m *MockMenuRepository) ListByCategory(ctx context.Context, category string) ([]*menu.Item, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*menu.Item), args.Error(1)
}

func (m *MockMenuRepository) GetByID(ctx context.Context, id int64) (*menu.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*menu.Item), args.Error(1)
}

func TestService_PlaceOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC)
	activeSession := &OwningSession{ID: 1, UserID: 7, Active: true}

	t.Run("SnapshotsCurrentPrices", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockMenu := new(MockMenuRepository)
		svc := NewService(mockRepo, mockMenu, clock.Fixed(now))

		mockRepo.On("GetOwningSession", ctx, int64(1)).Return(activeSession, nil)
		mockMenu.On("GetByID", ctx, int64(10)).Return(&menu.Item{ID: 10, Price: 420, Available: true}, nil)
		mockMenu.On("GetByID", ctx, int64(11)).Return(&menu.Item{ID: 11, Price: 320, Available: true}, nil)
		mockRepo.On("Create", ctx, mock.MatchedBy(func(o *Order) bool {
			return o.TotalCost == 420*2+320 &&
				len(o.Items) == 2 &&
				o.Items[0].Price == 420 &&
				o.Items[1].Price == 320 &&
				o.Status == StatusPending
		})).Return(nil)

		o, err := svc.PlaceOrder(ctx, 1, 7, []ItemRequest{
			{MenuItemID: 10, Quantity: 2},
			{MenuItemID: 11, Quantity: 1},
		})
		require.NoError(t, err)
		assert.Equal(t, 1160, o.TotalCost)
		assert.Equal(t, now, o.OrderTime)
		mockRepo.AssertExpectations(t)
	})

	t.Run("EmptyOrder", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockMenu := new(MockMenuRepository)
		svc := NewService(mockRepo, mockMenu, clock.Fixed(now))

		_, err := svc.PlaceOrder(ctx, 1, 7, nil)
		assert.ErrorIs(t, err, ErrEmptyOrder)
		mockRepo.AssertNotCalled(t, "GetOwningSession")
	})

	t.Run("InvalidQuantity", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockMenu := new(MockMenuRepository)
		svc := NewService(mockRepo, mockMenu, clock.Fixed(now))

		mockRepo.On("GetOwningSession", ctx, int64(1)).Return(activeSession, nil)

		_, err := svc.PlaceOrder(ctx, 1, 7, []ItemRequest{{MenuItemID: 10, Quantity: 0}})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		mockRepo.AssertNotCalled(t, "Create")
	})

	t.Run("NotOwner", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockMenu := new(MockMenuRepository)
		svc := NewService(mockRepo, mockMenu, clock.Fixed(now))

		mockRepo.On("GetOwningSession", ctx, int64(1)).Return(activeSession, nil)

		_, err := svc.PlaceOrder(ctx, 1, 99, []ItemRequest{{MenuItemID: 10, Quantity: 1}})
		assert.ErrorIs(t, err, ErrNotSessionOwner)
	})

	t.Run("SessionEnded", func(t *testing.T) {
		// Ended beats inactive: ordering against a checked-out session
		// reports the checkout, not a missing session.
		mockRepo := new(MockRepository)
		mockMenu := new(MockMenuRepository)
		svc := NewService(mockRepo, mockMenu, clock.Fixed(now))

		mockRepo.On("GetOwningSession", ctx, int64(1)).Return(&OwningSession{
			ID: 1, UserID: 7, Active: false, Ended: true,
		}, nil)

		_, err := svc.PlaceOrder(ctx, 1, 7, []ItemRequest{{MenuItemID: 10, Quantity: 1}})
		assert.ErrorIs(t, err, ErrSessionEnded)
	})

	t.Run("NoActiveSession", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockMenu := new(MockMenuRepository)
		svc := NewService(mockRepo, mockMenu, clock.Fixed(now))

		mockRepo.On("GetOwningSession", ctx, int64(1)).Return(&OwningSession{
			ID: 1, UserID: 7, Active: false, Ended: false,
		}, nil)

		_, err := svc.PlaceOrder(ctx, 1, 7, []ItemRequest{{MenuItemID: 10, Quantity: 1}})
		assert.ErrorIs(t, err, ErrNoActiveSession)
	})

	t.Run("ItemUnavailable", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockMenu := new(MockMenuRepository)
		svc := NewService(mockRepo, mockMenu, clock.Fixed(now))

		mockRepo.On("GetOwningSession", ctx, int64(1)).Return(activeSession, nil)
		mockMenu.On("GetByID", ctx, int64(10)).Return(&menu.Item{ID: 10, Price: 420, Available: false}, nil)

		_, err := svc.PlaceOrder(ctx, 1, 7, []ItemRequest{{MenuItemID: 10, Quantity: 1}})
		assert.ErrorIs(t, err, menu.ErrItemUnavailable)
		mockRepo.AssertNotCalled(t, "Create")
	})

	t.Run("RaceLostToCheckout", func(t *testing.T) {
		// Entry guards passed but the transactional re-check failed: the
		// repository error surfaces unchanged.
		mockRepo := new(MockRepository)
		mockMenu := new(MockMenuRepository)
		svc := NewService(mockRepo, mockMenu, clock.Fixed(now))

		mockRepo.On("GetOwningSession", ctx, int64(1)).Return(activeSession, nil)
		mockMenu.On("GetByID", ctx, int64(10)).Return(&menu.Item{ID: 10, Price: 420, Available: true}, nil)
		mockRepo.On("Create", ctx, mock.Anything).Return(ErrSessionEnded)

		_, err := svc.PlaceOrder(ctx, 1, 7, []ItemRequest{{MenuItemID: 10, Quantity: 1}})
		assert.ErrorIs(t, err, ErrSessionEnded)
	})
}

func TestService_GetOrderSubtotal(t *testing.T) {
	ctx := context.Background()

	t.Run("FilterPassedThrough", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, new(MockMenuRepository), clock.System())

		mockRepo.On("GetOwningSession", ctx, int64(1)).Return(&OwningSession{ID: 1, UserID: 7}, nil)
		mockRepo.On("ListBySession", ctx, int64(1), FilterPending).Return([]*Order{
			{ID: 1, TotalCost: 420},
			{ID: 2, TotalCost: 650},
		}, nil)

		subtotal, err := svc.GetOrderSubtotal(ctx, 1, 7, FilterPending)
		require.NoError(t, err)
		assert.Equal(t, 1070, subtotal)
	})

	t.Run("NotOwner", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, new(MockMenuRepository), clock.System())

		mockRepo.On("GetOwningSession", ctx, int64(1)).Return(&OwningSession{ID: 1, UserID: 7}, nil)

		_, err := svc.GetOrderSubtotal(ctx, 1, 99, FilterAll)
		assert.ErrorIs(t, err, ErrNotSessionOwner)
	})
}

func TestService_SubtotalForSession(t *testing.T) {
	// The checkout call site folds every order regardless of status.
	ctx := context.Background()
	mockRepo := new(MockRepository)
	svc := NewService(mockRepo, new(MockMenuRepository), clock.System())

	mockRepo.On("ListBySession", ctx, int64(1), FilterAll).Return([]*Order{
		{ID: 1, Status: StatusPending, TotalCost: 420},
		{ID: 2, Status: StatusCompleted, TotalCost: 580},
	}, nil)

	subtotal, err := svc.SubtotalForSession(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1000, subtotal)
}

func TestSubtotal(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, 0, Subtotal(nil))
		assert.Equal(t, 0, Subtotal([]*Order{}))
	})

	t.Run("OrderIndependent", func(t *testing.T) {
		a := &Order{TotalCost: 420}
		b := &Order{TotalCost: 650}
		c := &Order{TotalCost: 320}

		assert.Equal(t, 1390, Subtotal([]*Order{a, b, c}))
		assert.Equal(t, 1390, Subtotal([]*Order{c, a, b}))
	})
}
