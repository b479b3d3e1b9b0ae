package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"timecafe-be/internal/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, s *Session) error {
	args := m.Called(ctx, s)
	if args.Error(0) == nil {
		s.ID = 1
	}
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockRepository) GetActiveByUser(ctx context.Context, userID int64) (*Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID int64) ([]*Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Session), args.Error(1)
}

func (m *MockRepository) Complete(ctx context.Context, id int64, checkOutTime time.Time, totalTime, totalCost int) error {
	args := m.Called(ctx, id, checkOutTime, totalTime, totalCost)
	return args.Error(0)
}

// fixedOrders returns a constant subtotal regardless of session.
type fixedOrders struct {
	subtotal int
	err      error
}

func (f fixedOrders) SubtotalForSession(ctx context.Context, sessionID int64) (int, error) {
	return f.subtotal, f.err
}

func TestService_CheckIn(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, fixedOrders{}, clock.Fixed(now), 0)

		mockRepo.On("GetActiveByUser", ctx, int64(7)).Return(nil, nil)
		mockRepo.On("Create", ctx, mock.MatchedBy(func(s *Session) bool {
			return s.UserID == 7 && s.Status == StatusActive && s.CheckInTime.Equal(now)
		})).Return(nil)

		sess, err := svc.CheckIn(ctx, 7, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, sess.Status)
		assert.Equal(t, now, sess.CheckInTime)
		mockRepo.AssertExpectations(t)
	})

	t.Run("ActiveSessionExists", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, fixedOrders{}, clock.Fixed(now), 0)

		mockRepo.On("GetActiveByUser", ctx, int64(7)).Return(&Session{ID: 3, UserID: 7, Status: StatusActive}, nil)

		_, err := svc.CheckIn(ctx, 7, nil)
		assert.ErrorIs(t, err, ErrActiveSessionExists)
		mockRepo.AssertNotCalled(t, "Create")
	})

	t.Run("AllowedAfterCompletion", func(t *testing.T) {
		// A completed earlier session does not block a fresh check-in.
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, fixedOrders{}, clock.Fixed(now), 0)

		mockRepo.On("GetActiveByUser", ctx, int64(7)).Return(nil, nil)
		mockRepo.On("Create", ctx, mock.Anything).Return(nil)

		_, err := svc.CheckIn(ctx, 7, nil)
		assert.NoError(t, err)
	})
}

func TestService_CheckOut(t *testing.T) {
	ctx := context.Background()
	checkIn := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("TimeCostPlusOrders", func(t *testing.T) {
		// 90 minutes in: 500 base + 30 minutes over at 8 yen = 740,
		// plus a 300 yen order subtotal.
		now := checkIn.Add(90 * time.Minute)
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, fixedOrders{subtotal: 300}, clock.Fixed(now), 0)

		mockRepo.On("GetByID", ctx, int64(1)).Return(&Session{
			ID: 1, UserID: 7, CheckInTime: checkIn, Status: StatusActive,
		}, nil)
		mockRepo.On("Complete", ctx, int64(1), now, 5400, 1040).Return(nil)

		sess, err := svc.CheckOut(ctx, 1, 7)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, sess.Status)
		require.NotNil(t, sess.TotalCost)
		assert.Equal(t, 1040, *sess.TotalCost)
		require.NotNil(t, sess.TotalTime)
		assert.Equal(t, 5400, *sess.TotalTime)
		mockRepo.AssertExpectations(t)
	})

	t.Run("MinimumDurationApplied", func(t *testing.T) {
		// 5 minutes of presence billed as 15: still inside the first
		// hour, so the flat base fee. Recorded time stays raw.
		now := checkIn.Add(5 * time.Minute)
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, fixedOrders{}, clock.Fixed(now), 900)

		mockRepo.On("GetByID", ctx, int64(1)).Return(&Session{
			ID: 1, UserID: 7, CheckInTime: checkIn, Status: StatusActive,
		}, nil)
		mockRepo.On("Complete", ctx, int64(1), now, 300, 500).Return(nil)

		_, err := svc.CheckOut(ctx, 1, 7)
		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("NotOwner", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, fixedOrders{}, clock.Fixed(checkIn), 0)

		mockRepo.On("GetByID", ctx, int64(1)).Return(&Session{
			ID: 1, UserID: 7, CheckInTime: checkIn, Status: StatusActive,
		}, nil)

		_, err := svc.CheckOut(ctx, 1, 99)
		assert.ErrorIs(t, err, ErrNotSessionOwner)
	})

	t.Run("AlreadyCompleted", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, fixedOrders{}, clock.Fixed(checkIn), 0)

		mockRepo.On("GetByID", ctx, int64(1)).Return(&Session{
			ID: 1, UserID: 7, CheckInTime: checkIn, Status: StatusCompleted,
		}, nil)

		_, err := svc.CheckOut(ctx, 1, 7)
		assert.ErrorIs(t, err, ErrSessionNotActive)
		mockRepo.AssertNotCalled(t, "Complete")
	})

	t.Run("CorruptCheckInTime", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, fixedOrders{}, clock.Fixed(checkIn), 0)

		mockRepo.On("GetByID", ctx, int64(1)).Return(&Session{
			ID: 1, UserID: 7, Status: StatusActive,
		}, nil)

		_, err := svc.CheckOut(ctx, 1, 7)
		assert.ErrorIs(t, err, ErrCorruptCheckIn)
		mockRepo.AssertNotCalled(t, "Complete")
	})

	t.Run("ClockSkewClampedToZero", func(t *testing.T) {
		// Checkout observed before check-in: bill as zero elapsed, never
		// negative.
		now := checkIn.Add(-2 * time.Minute)
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, fixedOrders{}, clock.Fixed(now), 0)

		mockRepo.On("GetByID", ctx, int64(1)).Return(&Session{
			ID: 1, UserID: 7, CheckInTime: checkIn, Status: StatusActive,
		}, nil)
		mockRepo.On("Complete", ctx, int64(1), now, 0, 500).Return(nil)

		_, err := svc.CheckOut(ctx, 1, 7)
		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("OrderSourceError", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, fixedOrders{err: errors.New("db error")}, clock.Fixed(checkIn.Add(time.Hour)), 0)

		mockRepo.On("GetByID", ctx, int64(1)).Return(&Session{
			ID: 1, UserID: 7, CheckInTime: checkIn, Status: StatusActive,
		}, nil)

		_, err := svc.CheckOut(ctx, 1, 7)
		assert.Error(t, err)
		mockRepo.AssertNotCalled(t, "Complete")
	})
}

func TestService_ConcurrentCheckOut(t *testing.T) {
	// Two goroutines race on the same session; the guarded transition in
	// the repository lets exactly one through.
	ctx := context.Background()
	checkIn := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	now := checkIn.Add(2 * time.Hour)

	repo := NewMemoryRepository()
	svc := NewService(repo, fixedOrders{subtotal: 300}, clock.Fixed(now), 0)

	sess := &Session{UserID: 7, CheckInTime: checkIn, Status: StatusActive}
	require.NoError(t, repo.Create(ctx, sess))

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CheckOut(ctx, sess.ID, 7)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrSessionNotActive)
		}
	}
	assert.Equal(t, 1, winners)

	stored, err := repo.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	require.NotNil(t, stored.TotalCost)
	// 500 base + 60 minutes over at 8 yen + 300 yen of orders; the loser
	// attempts never re-billed.
	assert.Equal(t, 1280, *stored.TotalCost)
}

func TestService_GetSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, fixedOrders{}, clock.System(), 0)

		mockRepo.On("GetByID", ctx, int64(1)).Return(&Session{ID: 1, UserID: 7}, nil)

		sess, err := svc.GetSession(ctx, 1, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(1), sess.ID)
	})

	t.Run("NotOwner", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, fixedOrders{}, clock.System(), 0)

		mockRepo.On("GetByID", ctx, int64(1)).Return(&Session{ID: 1, UserID: 7}, nil)

		_, err := svc.GetSession(ctx, 1, 99)
		assert.ErrorIs(t, err, ErrNotSessionOwner)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, fixedOrders{}, clock.System(), 0)

		mockRepo.On("GetByID", ctx, int64(1)).Return(nil, ErrSessionNotFound)

		_, err := svc.GetSession(ctx, 1, 7)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}
