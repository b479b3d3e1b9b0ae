package payment

import "context"

// Gateway is the opaque charge collaborator. Its internals (provider API,
// retries, 3DS) are out of scope for the billing core.
type Gateway interface {
	CreateCharge(ctx context.Context, referenceID string, amount int, customerID string) (*ChargeResponse, error)
	ConfirmCharge(ctx context.Context, chargeID string) (*ChargeStatus, error)
}
