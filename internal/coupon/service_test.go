package coupon

import (
	"context"
	"strings"
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

func (m *MockRepository) Create(ctx context.Context, c *Coupon) error {
	args := m.Called(ctx, c)
	if args.Error(0) == nil {
		c.ID = 1
	}
	return args.Error(0)
}

func (m *MockRepository) ListActiveByUser(ctx context.Context, userID int64, now time.Time) ([]*Coupon, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Coupon), args.Error(1)
}

func (m *MockRepository) Redeem(ctx context.Context, id, userID int64, now time.Time) (*Coupon, error) {
	args := m.Called(ctx, id, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Coupon), args.Error(1)
}

func TestService_IssueBirthdayCoupon(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	mockRepo := new(MockRepository)
	svc := NewService(mockRepo, clock.Fixed(now))

	mockRepo.On("Create", ctx, mock.MatchedBy(func(c *Coupon) bool {
		return c.UserID == 7 &&
			c.Type == TypeBirthday &&
			c.Value == 2 &&
			c.ExpiryDate.Equal(now.Add(7*24*time.Hour)) &&
			strings.HasPrefix(c.Code, "BDAY-7-")
	})).Return(nil)

	c, err := svc.IssueBirthdayCoupon(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)
	mockRepo.AssertExpectations(t)
}

func TestService_Redeem(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, clock.Fixed(now))

		mockRepo.On("Redeem", ctx, int64(1), int64(7), now).Return(&Coupon{
			ID: 1, UserID: 7, Code: "BDAY-7-abc12345", IsUsed: true,
		}, nil)

		c, err := svc.Redeem(ctx, 1, 7)
		require.NoError(t, err)
		assert.True(t, c.IsUsed)
	})

	t.Run("Spent", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, clock.Fixed(now))

		mockRepo.On("Redeem", ctx, int64(1), int64(7), now).Return(nil, ErrCouponSpent)

		_, err := svc.Redeem(ctx, 1, 7)
		assert.ErrorIs(t, err, ErrCouponSpent)
	})
}
