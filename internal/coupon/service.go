package coupon

import (
	"context"
	"fmt"
	"time"

	"timecafe-be/internal/clock"
	"timecafe-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// birthdayValidity is how long a birthday coupon stays redeemable.
const birthdayValidity = 7 * 24 * time.Hour

// birthdayFreeHours is the grant on a birthday coupon.
const birthdayFreeHours = 2

type Service interface {
	ListActive(ctx context.Context, userID int64) ([]*Coupon, error)
	Redeem(ctx context.Context, couponID, userID int64) (*Coupon, error)
	IssueBirthdayCoupon(ctx context.Context, userID int64) (*Coupon, error)
}

type service struct {
	repo Repository
	clk  clock.Clock
}

func NewService(repo Repository, clk clock.Clock) Service {
	return &service{repo: repo, clk: clk}
}

func (s *service) ListActive(ctx context.Context, userID int64) ([]*Coupon, error) {
	return s.repo.ListActiveByUser(ctx, userID, s.clk.Now())
}

func (s *service) Redeem(ctx context.Context, couponID, userID int64) (*Coupon, error) {
	c, err := s.repo.Redeem(ctx, couponID, userID, s.clk.Now())
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("coupon redeemed",
		zap.Int64("coupon_id", c.ID),
		zap.Int64("user_id", userID),
		zap.String("code", c.Code),
	)
	return c, nil
}

func (s *service) IssueBirthdayCoupon(ctx context.Context, userID int64) (*Coupon, error) {
	now := s.clk.Now()

	c := &Coupon{
		UserID:     userID,
		Type:       TypeBirthday,
		Code:       fmt.Sprintf("BDAY-%d-%s", userID, uuid.New().String()[:8]),
		Value:      birthdayFreeHours,
		ExpiryDate: now.Add(birthdayValidity),
		CreatedAt:  now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("birthday coupon issued",
		zap.Int64("user_id", userID),
		zap.String("code", c.Code),
	)
	return c, nil
}
