// Package models defines subscription and plan types for billing.
package models

import "time"

type Plan string

const (
	PlanFree Plan = "FREE"
	PlanPro  Plan = "PRO"
)

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionInactive SubscriptionStatus = "inactive"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription mirrors one row of the subscriptions table, keyed by user.
type Subscription struct {
	UserID               string             `json:"user_id"`
	StripeCustomerID     string             `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string             `json:"stripe_subscription_id,omitempty"`
	Status               SubscriptionStatus `json:"status"`
	PriceID              string             `json:"price_id,omitempty"`
	CurrentPeriodEnd     *time.Time         `json:"current_period_end,omitempty"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// IsPro reports whether the subscription grants paid features.
// Only an exactly "active" status counts; past_due, canceled, inactive and
// a missing record are all free tier.
func (s *Subscription) IsPro() bool {
	return s != nil && s.Status == SubscriptionActive
}
