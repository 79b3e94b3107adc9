package billing

import (
	"context"
	"log/slog"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/ids"
)

// PayPalProvider is a sandbox provider. It issues mock subscription IDs and
// cannot cancel.
type PayPalProvider struct {
	clientID string
	mode     string
	logger   *slog.Logger
}

func (p *PayPalProvider) Name() string     { return "paypal" }
func (p *PayPalProvider) ClientID() string { return p.clientID }
func (p *PayPalProvider) Mode() string     { return p.mode }

func (p *PayPalProvider) CreateSubscription(ctx context.Context, userID string, plan entitlement.Plan) (Checkout, error) {
	if p.logger != nil {
		p.logger.Info("creating paypal subscription", "user_id", userID, "plan", plan, "mode", p.mode)
	}
	return Checkout{
		Provider:       p.Name(),
		SubscriptionID: "mock_paypal_sub_" + ids.New()[:8],
		ClientSecret:   "mock_paypal_secret",
	}, nil
}

func (p *PayPalProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if p.logger != nil {
		p.logger.Info("paypal cancel requested", "subscription_id", subscriptionID)
	}
	return ErrUnsupported
}
