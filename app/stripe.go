package app

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/Balinti/conversation-tutor-ai/app/config"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/customer"
)

// InitStripe wires the Stripe API key from the environment.
func InitStripe() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config for stripe: %v", err)
	}
	stripe.Key = cfg.Stripe.SecretKey
}

// ensureStripeCustomer finds or creates a Stripe Customer for the given user.
// It uses subscriptions.stripe_customer_id when present, otherwise creates a
// new customer with metadata user_id = <userID> and records it.
func ensureStripeCustomer(ctx context.Context, userID string) (string, error) {
	if db == nil {
		return "", errors.New("db not initialized")
	}
	if userID == "" {
		return "", errors.New("missing user id")
	}

	sub, err := getSubscriptionByUser(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	if sub.StripeCustomerID != "" {
		return sub.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Metadata: map[string]string{
			"user_id": userID,
		},
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}

	if err := saveStripeCustomer(ctx, userID, cust.ID); err != nil {
		return "", err
	}
	return cust.ID, nil
}
