package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/cloud"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
)

// StripeProvider delegates to the backend's subscription functions,
// which hold the Stripe secret key.
type StripeProvider struct {
	functions      cloud.FunctionInvoker
	publishableKey string
	logger         *slog.Logger
}

func (p *StripeProvider) Name() string { return "stripe" }

// PublishableKey is the client-side Stripe key.
func (p *StripeProvider) PublishableKey() string { return p.publishableKey }

func (p *StripeProvider) CreateSubscription(ctx context.Context, userID string, plan entitlement.Plan) (Checkout, error) {
	body := map[string]string{"userId": userID, "plan": string(plan), "provider": "stripe"}
	var resp struct {
		SubscriptionID string `json:"subscriptionId"`
		ClientSecret   string `json:"clientSecret"`
	}
	if err := p.functions.InvokeFunction(ctx, "create-subscription", body, &resp); err != nil {
		if p.logger != nil {
			p.logger.Error("failed to create subscription", "provider", "stripe", "user_id", userID, "error", err)
		}
		return Checkout{}, fmt.Errorf("create stripe subscription: %w", err)
	}
	if resp.SubscriptionID == "" {
		return Checkout{}, fmt.Errorf("create stripe subscription: empty subscription id")
	}
	return Checkout{Provider: p.Name(), SubscriptionID: resp.SubscriptionID, ClientSecret: resp.ClientSecret}, nil
}

func (p *StripeProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	body := map[string]string{"subscriptionId": subscriptionID, "provider": "stripe"}
	if err := p.functions.InvokeFunction(ctx, "cancel-subscription", body, nil); err != nil {
		return fmt.Errorf("cancel stripe subscription: %w", err)
	}
	return nil
}
