// Package payments adapts the Stripe SDK for destination charges with a
// platform fee split and for webhook signature verification.
package payments

import (
	"context"
	"math"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/webhook"
)

// platformFeePercent is the marketplace cut retained on every charge.
const platformFeePercent = 10

// Processor is the payment-processor surface the controllers depend on.
type Processor interface {
	CreateIntent(ctx context.Context, amount float64, destinationAccountID, sessionID, userID string) (string, error)
	VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

type StripeService struct {
	webhookSecret string
}

func NewStripeService(secretKey, webhookSecret string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{webhookSecret: webhookSecret}
}

// CreateIntent creates a card payment intent scoped to the seller's
// connected account, keeping the platform fee. amount is in major
// currency units; Stripe wants integral minor units, so the conversion
// happens here exactly once. Returns the client secret the caller needs
// to complete payment; the API secret key never leaves this package.
func (s *StripeService) CreateIntent(ctx context.Context, amount float64, destinationAccountID, sessionID, userID string) (string, error) {
	minorAmount := int64(math.Round(amount * 100))
	platformFee := minorAmount * platformFeePercent / 100

	params := &stripe.PaymentIntentParams{
		Amount:               stripe.Int64(minorAmount),
		Currency:             stripe.String(string(stripe.CurrencyUSD)),
		PaymentMethodTypes:   stripe.StringSlice([]string{"card"}),
		ApplicationFeeAmount: stripe.Int64(platformFee),
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(destinationAccountID),
		},
	}
	params.Context = ctx
	// Correlation metadata read back by the webhook handler.
	params.AddMetadata("sessionId", sessionID)
	params.AddMetadata("userId", userID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ClientSecret, nil
}

// VerifyEvent checks the webhook signature against the exact raw request
// body. Verification over re-serialized JSON would be meaningless, so
// callers must pass the unparsed bytes.
func (s *StripeService) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, s.webhookSecret)
}
