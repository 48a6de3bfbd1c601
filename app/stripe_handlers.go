package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Balinti/conversation-tutor-ai/app/config"
	"github.com/Balinti/conversation-tutor-ai/app/models"
	"github.com/Balinti/conversation-tutor-ai/auth"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

// CreateCheckoutSession starts a Stripe Checkout Session for the authenticated user.
func CreateCheckoutSession(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok || claims.Subject == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("stripe checkout config load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	priceID := req.PriceID
	if priceID == "" {
		priceID = cfg.Stripe.PriceIDProMonthly
	}
	if priceID != cfg.Stripe.PriceIDProMonthly && priceID != cfg.Stripe.PriceIDProAnnual {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown price id"})
		return
	}

	frontendURL := strings.TrimRight(cfg.Stripe.FrontendURL, "/")
	if priceID == "" || frontendURL == "" || cfg.Stripe.SecretKey == "" {
		log.Printf("missing Stripe config: price_id=%t frontend_url=%t", priceID != "", frontendURL != "")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "billing not configured"})
		return
	}

	stripeCustomerID, err := ensureStripeCustomer(c.Request.Context(), claims.Subject)
	if err != nil {
		log.Printf("ensureStripeCustomer failed for user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare billing"})
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(stripeCustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(frontendURL + "/billing/success"),
		CancelURL:  stripe.String(frontendURL + "/billing/cancel"),
	}

	sess, err := session.New(params)
	if err != nil {
		log.Printf("stripe checkout session failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": sess.URL})
}

// CreatePortalSession creates a Stripe Customer Portal session for the authenticated user.
func CreatePortalSession(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok || claims.Subject == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db not initialized"})
		return
	}

	sub, err := getSubscriptionByUser(c.Request.Context(), claims.Subject)
	if err == sql.ErrNoRows || (err == nil && sub.StripeCustomerID == "") {
		c.JSON(http.StatusNotFound, gin.H{"error": "no billing account for user"})
		return
	}
	if err != nil {
		log.Printf("portal lookup failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load customer"})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("portal config load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	frontendURL := strings.TrimRight(cfg.Stripe.FrontendURL, "/")
	if frontendURL == "" {
		log.Printf("missing Stripe config: frontend_url=false")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "billing not configured"})
		return
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(sub.StripeCustomerID),
		ReturnURL: stripe.String(frontendURL + "/settings/billing"),
	}

	sess, err := portal.New(params)
	if err != nil {
		log.Printf("stripe portal session failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create portal session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": sess.URL})
}

// StripeWebhook applies Stripe subscription events to the subscriptions table.
// It always acknowledges with 200 so Stripe does not retry events we cannot
// act on; failures are logged instead.
func StripeWebhook(c *gin.Context) {
	const maxBodyBytes = int64(65536)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		log.Printf("stripe webhook read failed: %v", err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("stripe webhook config load failed: %v", err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var event stripe.Event
	if secret := cfg.Stripe.WebhookSecret; secret != "" {
		event, err = webhook.ConstructEventWithOptions(
			body,
			c.GetHeader("Stripe-Signature"),
			secret,
			webhook.ConstructEventOptions{
				IgnoreAPIVersionMismatch: true,
			},
		)
		if err != nil {
			log.Printf("stripe webhook signature failed: %v", err)
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
	} else {
		// Local development without a webhook secret.
		if err := json.Unmarshal(body, &event); err != nil {
			log.Printf("stripe webhook unmarshal failed: %v", err)
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
	}

	if err := processStripeEvent(c.Request.Context(), event); err != nil {
		log.Printf("stripe webhook event=%s failed: %v", event.Type, err)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func processStripeEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return err
		}
		if sess.Customer == nil || sess.Customer.ID == "" {
			log.Printf("stripe session %s missing customer id", sess.ID)
			return nil
		}
		patch := subscriptionPatch{
			Status: models.SubscriptionActive,
		}
		if sess.Subscription != nil {
			patch.SubscriptionID = sql.NullString{String: sess.Subscription.ID, Valid: true}
		}
		return applySubscriptionPatch(ctx, sess.Customer.ID, patch)

	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		if sub.Customer == nil || sub.Customer.ID == "" {
			log.Printf("stripe subscription %s missing customer id", sub.ID)
			return nil
		}
		patch := subscriptionPatch{
			SubscriptionID: sql.NullString{String: sub.ID, Valid: true},
			Status:         mapStripeStatus(sub.Status),
		}
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			patch.PriceID = sql.NullString{String: sub.Items.Data[0].Price.ID, Valid: true}
		}
		if sub.CurrentPeriodEnd > 0 {
			patch.CurrentPeriodEnd = sql.NullTime{
				Time:  time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
				Valid: true,
			}
		}
		return applySubscriptionPatch(ctx, sub.Customer.ID, patch)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		if sub.Customer == nil || sub.Customer.ID == "" {
			log.Printf("stripe subscription %s missing customer id", sub.ID)
			return nil
		}
		// Canceled rows keep the customer id but drop everything else so the
		// user lands back on the free tier.
		return applySubscriptionPatch(ctx, sub.Customer.ID, subscriptionPatch{
			Status: models.SubscriptionCanceled,
		})

	default:
		// Intentionally ignore unhandled events.
		return nil
	}
}

// mapStripeStatus folds Stripe's subscription states into the plan gate.
// Only "active" unlocks unlimited usage.
func mapStripeStatus(s stripe.SubscriptionStatus) models.SubscriptionStatus {
	switch s {
	case stripe.SubscriptionStatusActive:
		return models.SubscriptionActive
	case stripe.SubscriptionStatusPastDue:
		return models.SubscriptionPastDue
	case stripe.SubscriptionStatusCanceled:
		return models.SubscriptionCanceled
	default:
		return models.SubscriptionInactive
	}
}
