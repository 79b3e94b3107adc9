// Package billing creates and cancels paid subscriptions through a payment
// provider selected by configuration.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/cloud"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
)

// ErrUnsupported is returned by providers that cannot perform an operation.
var ErrUnsupported = errors.New("operation not supported by payment provider")

// Checkout is what a client needs to confirm a new subscription.
type Checkout struct {
	Provider       string `json:"provider"`
	SubscriptionID string `json:"subscription_id"`
	ClientSecret   string `json:"client_secret"`
}

// Provider is the capability set every payment provider implements.
type Provider interface {
	Name() string
	CreateSubscription(ctx context.Context, userID string, plan entitlement.Plan) (Checkout, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// Options configures provider construction.
type Options struct {
	Functions      cloud.FunctionInvoker
	PublishableKey string
	PayPalClientID string
	PayPalMode     string
	Logger         *slog.Logger
}

// NewProvider selects a provider by name ("stripe" or "paypal").
func NewProvider(name string, opts Options) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "stripe":
		if opts.Functions == nil {
			return nil, fmt.Errorf("stripe provider requires a function invoker")
		}
		return &StripeProvider{functions: opts.Functions, publishableKey: opts.PublishableKey, logger: opts.Logger}, nil
	case "paypal":
		mode := opts.PayPalMode
		if mode == "" {
			mode = "sandbox"
		}
		return &PayPalProvider{clientID: opts.PayPalClientID, mode: mode, logger: opts.Logger}, nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", name)
	}
}

// Price is a plan's list price in USD.
type Price struct {
	Monthly float64 `json:"monthly"`
	Yearly  float64 `json:"yearly"`
}

// PlanPricing returns the list price of plan.
func PlanPricing(plan entitlement.Plan) Price {
	if plan == entitlement.PlanPro {
		return Price{Monthly: 24.99, Yearly: 249.99}
	}
	return Price{Monthly: 9.99, Yearly: 99.99}
}
