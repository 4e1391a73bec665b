package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// DevProvider is a BillingProvider for development environments without
// Paddle credentials. Checkout and portal links point at placeholder
// URLs, and webhooks are decoded without signature verification so
// local webhook replays work.
type DevProvider struct {
	Log *slog.Logger
}

func (p DevProvider) CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error) {
	p.Log.InfoContext(ctx, "dev checkout link created",
		"price_id", req.PriceID, "quantity", req.Quantity, "user_id", req.UserID)
	return &CheckoutLink{
		URL:       fmt.Sprintf("http://localhost/dev-checkout?price=%s&qty=%d", req.PriceID, req.Quantity),
		SessionID: "dev_txn",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

func (p DevProvider) GetCustomerPortalLink(ctx context.Context, sub *Subscription) (*PortalLink, error) {
	if sub == nil || sub.ProviderSubID == "" {
		return nil, ErrNoBillableSubscription
	}
	p.Log.InfoContext(ctx, "dev portal link created", "subscription_id", sub.ID)
	return &PortalLink{
		URL:       "http://localhost/dev-portal",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

func (p DevProvider) ParseWebhook(ctx context.Context, payload []byte, _ string) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("dev webhook payload: %w", err)
	}
	p.Log.WarnContext(ctx, "dev webhook accepted without signature verification",
		"event", event.ProviderEvent)
	return &event, nil
}
