package main

import (
	"net/http"

	"timecafe-be/internal/clock"
	"timecafe-be/internal/config"
	"timecafe-be/internal/coupon"
	"timecafe-be/internal/db"
	"timecafe-be/internal/httpapi"
	"timecafe-be/internal/logger"
	"timecafe-be/internal/menu"
	"timecafe-be/internal/middleware"
	"timecafe-be/internal/order"
	"timecafe-be/internal/payment"
	"timecafe-be/internal/session"
	"timecafe-be/internal/user"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	clk := clock.System()

	userRepo := user.NewRepository(database)
	userSvc := user.NewService(userRepo, clk)

	menuRepo := menu.NewRepository(database)

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo, menuRepo, clk)

	sessionRepo := session.NewRepository(database)
	sessionSvc := session.NewService(sessionRepo, orderSvc, clk, cfg.MinBilledSeconds)

	paymentRepo := payment.NewRepository(database)
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey)
	paymentSvc := payment.NewService(paymentRepo, gateway, clk)

	couponRepo := coupon.NewRepository(database)
	couponSvc := coupon.NewService(couponRepo, clk)

	h := httpapi.NewHandler(userSvc, sessionSvc, orderSvc, menuRepo, paymentSvc, couponSvc, clk)

	var handler http.Handler = h.Routes()
	handler = middleware.RateLimitMiddleware(handler)
	handler = middleware.AuthMiddleware(handler)
	handler = logger.LoggingMiddleware(handler)
	handler = logger.RequestIDMiddleware(handler)

	addr := ":" + cfg.AppPort
	logger.L().Info("server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}
