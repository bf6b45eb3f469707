// Package payment creates and reads card payment intents at the payment
// processor.
//
//	p := payment.NewStripe(secretKey)
//	intent, err := p.CreateIntent(ctx, payment.IntentParams{
//	    Amount:   course.Price,
//	    Currency: "usd",
//	    Metadata: map[string]string{"userId": uid, "courseId": cid},
//	})
//	// hand intent.ClientSecret to the browser
package payment

import (
	"context"
	"errors"
)

// StatusSucceeded is the terminal status of a paid intent.
const StatusSucceeded = "succeeded"

// ErrNotConfigured is returned when no processor key is set.
var ErrNotConfigured = errors.New("payment: processor is not configured")

// Intent is the processor's handle for an in-progress card charge.
type Intent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"metadata"`
}

// IntentParams describes the charge to prepare.
type IntentParams struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

// Processor is a card payment processor.
type Processor interface {
	CreateIntent(ctx context.Context, p IntentParams) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
}
