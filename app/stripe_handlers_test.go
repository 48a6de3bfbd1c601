package app

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Balinti/conversation-tutor-ai/app/models"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
)

func postWebhook(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/stripe/webhook", StripeWebhook)

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// The webhook must acknowledge every delivery, otherwise Stripe retries
// events we already know we cannot process.
func TestStripeWebhookAlwaysAcknowledges(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	t.Run("unknown event type", func(t *testing.T) {
		w := postWebhook(t, `{"type":"invoice.finalized","data":{"object":{}}}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		w := postWebhook(t, `{not json`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	})

	t.Run("event missing customer", func(t *testing.T) {
		w := postWebhook(t, `{"type":"customer.subscription.deleted","data":{"object":{"id":"sub_1"}}}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	})
}

func TestStripeWebhookBadSignatureAcknowledged(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	w := postWebhook(t, `{"type":"checkout.session.completed","data":{"object":{}}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestCheckoutRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/billing/checkout", CreateCheckoutSession)
	router.POST("/api/billing/portal", CreatePortalSession)

	w := postJSON(t, router, "/api/billing/checkout", models.CheckoutRequest{})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("checkout status = %d, want 401", w.Code)
	}

	w = postJSON(t, router, "/api/billing/portal", struct{}{})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("portal status = %d, want 401", w.Code)
	}
}

func TestMapStripeStatus(t *testing.T) {
	cases := []struct {
		in   stripe.SubscriptionStatus
		want models.SubscriptionStatus
	}{
		{stripe.SubscriptionStatusActive, models.SubscriptionActive},
		{stripe.SubscriptionStatusPastDue, models.SubscriptionPastDue},
		{stripe.SubscriptionStatusCanceled, models.SubscriptionCanceled},
		{stripe.SubscriptionStatusTrialing, models.SubscriptionInactive},
		{stripe.SubscriptionStatusIncomplete, models.SubscriptionInactive},
		{stripe.SubscriptionStatusUnpaid, models.SubscriptionInactive},
	}
	for _, tc := range cases {
		if got := mapStripeStatus(tc.in); got != tc.want {
			t.Errorf("mapStripeStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSubscriptionIsPro(t *testing.T) {
	var nilSub *models.Subscription
	if nilSub.IsPro() {
		t.Fatalf("nil subscription must not be pro")
	}
	for _, status := range []models.SubscriptionStatus{
		models.SubscriptionInactive,
		models.SubscriptionPastDue,
		models.SubscriptionCanceled,
	} {
		sub := &models.Subscription{Status: status}
		if sub.IsPro() {
			t.Errorf("status %q must not be pro", status)
		}
	}
	active := &models.Subscription{Status: models.SubscriptionActive}
	if !active.IsPro() {
		t.Fatalf("active subscription must be pro")
	}
}
