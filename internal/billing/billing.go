package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/quizethic/quizethic-ai/internal/usage"
)

var ErrInvalidPayload = errors.New("invalid webhook payload")

// Event is the part of a subscription webhook the service acts on.
type Event struct {
	Type           string
	UserID         string
	ProductID      string
	SubscriptionID string
	Email          string
}

// ParseEvent extracts the fields of a subscription webhook body.
func ParseEvent(body []byte) (Event, error) {
	if !gjson.ValidBytes(body) {
		return Event{}, fmt.Errorf("%w: not JSON", ErrInvalidPayload)
	}
	r := gjson.GetManyBytes(body,
		"type",
		"data.metadata.user_id",
		"data.product_id",
		"data.subscription_id",
		"data.customer.email",
	)
	e := Event{
		Type:           r[0].String(),
		UserID:         r[1].String(),
		ProductID:      r[2].String(),
		SubscriptionID: r[3].String(),
		Email:          r[4].String(),
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("%w: type is missing", ErrInvalidPayload)
	}
	return e, nil
}

// Outcome says what Apply did with an event.
type Outcome struct {
	Applied bool
	UserID  string
	Tier    usage.Tier
	Reason  string // why an event was ignored
}

// TierSetter updates a user's tier. usage.TierStore implements it.
type TierSetter interface {
	SetTier(ctx context.Context, userID string, tier usage.Tier) error
}

// Processor maps subscription lifecycle events to tier changes.
type Processor struct {
	tiers        TierSetter
	productTiers map[string]usage.Tier
}

// NewProcessor creates a Processor. productTiers maps product IDs to tier names.
func NewProcessor(tiers TierSetter, productTiers map[string]string) (*Processor, error) {
	if tiers == nil {
		return nil, fmt.Errorf("tier store is nil")
	}
	mapped := make(map[string]usage.Tier, len(productTiers))
	for product, name := range productTiers {
		tier, err := usage.ParseTier(name)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", product, err)
		}
		mapped[product] = tier
	}
	return &Processor{tiers: tiers, productTiers: mapped}, nil
}

// Apply updates the user's tier for activation and cancellation events.
// Unknown event types are ignored without error.
func (p *Processor) Apply(ctx context.Context, e Event) (Outcome, error) {
	var tier usage.Tier
	switch e.Type {
	case "subscription.active", "subscription.renewed", "subscription.plan_changed":
		t, ok := p.productTiers[e.ProductID]
		if !ok {
			slog.Warn("webhook for unmapped product", "type", e.Type, "product_id", e.ProductID)
			return Outcome{Reason: "unmapped product"}, nil
		}
		tier = t
	case "subscription.cancelled", "subscription.expired", "subscription.failed", "subscription.on_hold":
		tier = usage.TierFree
	default:
		return Outcome{Reason: "unhandled event type"}, nil
	}

	if e.UserID == "" {
		return Outcome{}, fmt.Errorf("%w: data.metadata.user_id is missing", ErrInvalidPayload)
	}
	if err := p.tiers.SetTier(ctx, e.UserID, tier); err != nil {
		return Outcome{}, fmt.Errorf("set tier: %w", err)
	}

	slog.Info("subscription tier updated",
		"type", e.Type,
		"user_id", e.UserID,
		"tier", string(tier),
		"subscription_id", e.SubscriptionID,
	)
	return Outcome{Applied: true, UserID: e.UserID, Tier: tier}, nil
}
