package payment

import (
	"context"
	"errors"
	"fmt"
	gohttp "net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	httpc "github.com/shashiranjanraj/coursemart/pkg/http"
	"github.com/shashiranjanraj/coursemart/pkg/logger"
)

// Stripe implements Processor with the stripe-go client.
type Stripe struct {
	key    string
	base   string
	client *gohttp.Client
	api    *client.API
}

// Option configures Stripe.
type Option func(*Stripe)

// WithAPIBase points the client at another API root (stripe-mock, tests).
func WithAPIBase(base string) Option {
	return func(s *Stripe) {
		if base != "" {
			s.base = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient sends requests through client instead of the shared one.
func WithHTTPClient(client *gohttp.Client) Option {
	return func(s *Stripe) { s.client = client }
}

func NewStripe(secretKey string, opts ...Option) *Stripe {
	s := &Stripe{key: secretKey, base: stripe.APIURL}
	for _, opt := range opts {
		opt(s)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        httpc.Client("stripe", s.client),
		URL:               stripe.String(s.base),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     stripeLogger{},
	})
	s.api = client.New(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return s
}

// Error is a processor-side failure.
type Error struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment: stripe %d %s (%s): %s", e.StatusCode, e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("payment: stripe %d %s: %s", e.StatusCode, e.Type, e.Message)
}

// CreateIntent prepares a card-only intent for p.Amount.
func (s *Stripe) CreateIntent(ctx context.Context, p IntentParams) (*Intent, error) {
	if s.key == "" {
		return nil, ErrNotConfigured
	}
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(p.Amount),
		Currency:           stripe.String(strings.ToLower(p.Currency)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("payment: create intent: %w", convertError(err))
	}
	return toIntent(pi)
}

// GetIntent reads an intent by id.
func (s *Stripe) GetIntent(ctx context.Context, id string) (*Intent, error) {
	if s.key == "" {
		return nil, ErrNotConfigured
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("payment: get intent %s: %w", id, convertError(err))
	}
	return toIntent(pi)
}

func toIntent(pi *stripe.PaymentIntent) (*Intent, error) {
	if pi == nil || pi.ID == "" {
		return nil, errors.New("payment: intent response has no id")
	}
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
	}, nil
}

// convertError maps a stripe-go API error onto Error. Transport failures
// pass through unchanged.
func convertError(err error) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return err
	}
	return &Error{
		StatusCode: serr.HTTPStatusCode,
		Type:       string(serr.Type),
		Code:       string(serr.Code),
		Message:    serr.Msg,
	}
}

// stripeLogger sends the client's own logging to slog.
type stripeLogger struct{}

func (stripeLogger) Debugf(format string, v ...interface{}) {
	logger.Debug("payment: " + fmt.Sprintf(format, v...))
}

func (stripeLogger) Infof(format string, v ...interface{}) {
	logger.Debug("payment: " + fmt.Sprintf(format, v...))
}

func (stripeLogger) Warnf(format string, v ...interface{}) {
	logger.Warn("payment: " + fmt.Sprintf(format, v...))
}

func (stripeLogger) Errorf(format string, v ...interface{}) {
	logger.Warn("payment: " + fmt.Sprintf(format, v...))
}
