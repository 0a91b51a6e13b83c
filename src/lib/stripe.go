package lib

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
)

type CaptureRequest struct {
	Amount          decimal.Decimal
	Currency        string
	PaymentMethodID string
	IdempotencyKey  string
	Metadata        map[string]string
}

type CaptureResult struct {
	Success       bool
	TransactionID string
	Last4         string
	Brand         string
	Error         string
}

type RefundResult struct {
	Success  bool
	RefundID string
	Error    string
}

// PaymentGateway never returns Go errors; declines, timeouts and transport
// failures are all reported as unsuccessful results.
type PaymentGateway interface {
	CapturePayment(ctx context.Context, req CaptureRequest) CaptureResult
	RefundPayment(ctx context.Context, transactionID string, amount *decimal.Decimal) RefundResult
}

func NewStripeClient(apiKey string) *stripe.Client {
	return stripe.NewClient(apiKey)
}

type StripeGateway struct {
	client *stripe.Client
}

func NewStripeGateway(sc *stripe.Client) *StripeGateway {
	return &StripeGateway{client: sc}
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func (g *StripeGateway) CapturePayment(ctx context.Context, req CaptureRequest) CaptureResult {
	params := &stripe.PaymentIntentCreateParams{
		Amount:        stripe.Int64(toMinorUnits(req.Amount)),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.SetIdempotencyKey(req.IdempotencyKey)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.AddExpand("latest_charge")

	pi, err := g.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		log.Printf("[Stripe] capture failed for %s: %s\n", req.IdempotencyKey, err.Error())
		return CaptureResult{Error: stripeErrorMessage(err)}
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		g.cancelIntent(ctx, pi.ID)
		return CaptureResult{TransactionID: pi.ID, Error: fmt.Sprintf("payment intent is %s", pi.Status)}
	}
	res := CaptureResult{Success: true, TransactionID: pi.ID}
	if ch := pi.LatestCharge; ch != nil && ch.PaymentMethodDetails != nil && ch.PaymentMethodDetails.Card != nil {
		res.Last4 = ch.PaymentMethodDetails.Card.Last4
		res.Brand = string(ch.PaymentMethodDetails.Card.Brand)
	}
	return res
}

// cancelIntent voids an intent that did not succeed synchronously so it can
// never settle after the booking has been failed.
func (g *StripeGateway) cancelIntent(ctx context.Context, id string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, err := g.client.V1PaymentIntents.Cancel(cctx, id, &stripe.PaymentIntentCancelParams{}); err != nil {
		log.Printf("[Stripe] could not cancel payment intent %s, needs manual reconciliation: %s\n", id, err.Error())
	}
}

func (g *StripeGateway) RefundPayment(ctx context.Context, transactionID string, amount *decimal.Decimal) RefundResult {
	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(transactionID),
	}
	key := "refund:" + transactionID
	if amount != nil {
		params.Amount = stripe.Int64(toMinorUnits(*amount))
		key = fmt.Sprintf("%s:%d", key, *params.Amount)
	}
	params.SetIdempotencyKey(key)

	r, err := g.client.V1Refunds.Create(ctx, params)
	if err != nil {
		log.Printf("[Stripe] refund failed for %s: %s\n", transactionID, err.Error())
		return RefundResult{Error: stripeErrorMessage(err)}
	}
	if r.Status == stripe.RefundStatusFailed || r.Status == stripe.RefundStatusCanceled {
		return RefundResult{RefundID: r.ID, Error: fmt.Sprintf("refund is %s", r.Status)}
	}
	return RefundResult{Success: true, RefundID: r.ID}
}

func stripeErrorMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.DeclineCode != "" {
			return fmt.Sprintf("%s (%s)", stripeErr.Msg, stripeErr.DeclineCode)
		}
		if stripeErr.Msg != "" {
			return stripeErr.Msg
		}
		return string(stripeErr.Code)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "payment gateway timed out"
	}
	return err.Error()
}

// NoopGateway is used where payments are disabled.
type NoopGateway struct{}

func (NoopGateway) CapturePayment(context.Context, CaptureRequest) CaptureResult {
	return CaptureResult{Error: "payments are disabled"}
}

func (NoopGateway) RefundPayment(context.Context, string, *decimal.Decimal) RefundResult {
	return RefundResult{Error: "payments are disabled"}
}
