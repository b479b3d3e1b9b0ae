package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"timecafe-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const stripeBaseURL = "https://api.stripe.com"

type stripeGateway struct {
	secretKey  string
	httpClient *http.Client
}

func NewStripeGateway(secretKey string) Gateway {
	if secretKey == "" {
		logger.L().Warn("Stripe secret key is empty")
	}

	return &stripeGateway{
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type stripeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int    `json:"amount"`
}

func (g *stripeGateway) CreateCharge(ctx context.Context, referenceID string, amount int, customerID string) (*ChargeResponse, error) {
	log := logger.L().With(
		zap.String("reference_id", referenceID),
		zap.Int("amount", amount),
		zap.String("customer", customerID),
	)

	// JPY is zero-decimal: the amount goes over the wire as whole yen.
	form := url.Values{}
	form.Set("amount", strconv.Itoa(amount))
	form.Set("currency", "jpy")
	form.Set("customer", customerID)
	form.Set("metadata[reference_id]", referenceID)

	req, err := http.NewRequestWithContext(ctx, "POST",
		stripeBaseURL+"/v1/payment_intents",
		strings.NewReader(form.Encode()))
	if err != nil {
		log.Error("failed creating request", zap.Error(err))
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", uuid.New().String())

	log.Info("creating Stripe payment intent")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Error("Stripe request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read stripe response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error("Stripe returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", body),
		)
		return nil, fmt.Errorf("stripe error: %s", string(body))
	}

	var intent stripeIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		log.Error("failed decoding Stripe response", zap.Error(err))
		return nil, err
	}

	log.Info("Stripe payment intent created",
		zap.String("intent_id", intent.ID),
		zap.String("status", intent.Status),
	)

	return &ChargeResponse{
		ChargeID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
	}, nil
}

func (g *stripeGateway) ConfirmCharge(ctx context.Context, chargeID string) (*ChargeStatus, error) {
	log := logger.L().With(zap.String("intent_id", chargeID))

	req, err := http.NewRequestWithContext(ctx, "GET",
		stripeBaseURL+"/v1/payment_intents/"+chargeID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Error("Stripe request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read stripe response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error("Stripe returned error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", body),
		)
		return nil, fmt.Errorf("stripe error: %s", string(body))
	}

	var intent stripeIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, err
	}

	return &ChargeStatus{
		Status: intent.Status,
		Paid:   intent.Status == "succeeded",
	}, nil
}
