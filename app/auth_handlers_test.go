package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Balinti/conversation-tutor-ai/app/models"
	"github.com/Balinti/conversation-tutor-ai/auth"

	"github.com/gin-gonic/gin"
)

func newIdentityRouter(sub string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if sub != "" {
		router.Use(func(c *gin.Context) {
			ctx := auth.WithClaims(c.Request.Context(), &auth.Claims{Subject: sub})
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
	router.GET("/health", Health)
	router.GET("/me", Me)
	router.POST("/api/auth/migrate-anon", MigrateAnonymous)
	return router
}

func TestHealth(t *testing.T) {
	router := newIdentityRouter("")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestMeRequiresAuth(t *testing.T) {
	router := newIdentityRouter("")
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestMeFreeDefaults(t *testing.T) {
	router := newIdentityRouter("auth0|user-1")
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body=%s)", w.Code, w.Body.String())
	}

	var resp struct {
		Plan            models.Plan `json:"plan"`
		SimulationsUsed int         `json:"simulationsUsed"`
		WeeklyLimit     *int        `json:"weeklyLimit"`
		Remaining       *int        `json:"remaining"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Plan != models.PlanFree {
		t.Fatalf("plan = %q, want %q", resp.Plan, models.PlanFree)
	}
	if resp.WeeklyLimit == nil || *resp.WeeklyLimit != FreeWeeklyLimit {
		t.Fatalf("weeklyLimit = %v, want %d", resp.WeeklyLimit, FreeWeeklyLimit)
	}
	if resp.Remaining == nil || *resp.Remaining != FreeWeeklyLimit {
		t.Fatalf("remaining = %v, want %d", resp.Remaining, FreeWeeklyLimit)
	}
}

func TestMigrateAnonymousRequiresAuth(t *testing.T) {
	router := newIdentityRouter("")
	w := postJSON(t, router, "/api/auth/migrate-anon", models.MigrateAnonRequest{AnonID: "anon-1"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestMigrateAnonymousRequiresAnonID(t *testing.T) {
	router := newIdentityRouter("auth0|user-1")
	w := postJSON(t, router, "/api/auth/migrate-anon", models.MigrateAnonRequest{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestMigrateAnonymousNoBackingStore(t *testing.T) {
	router := newIdentityRouter("auth0|user-1")
	w := postJSON(t, router, "/api/auth/migrate-anon", models.MigrateAnonRequest{AnonID: "anon-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body=%s)", w.Code, w.Body.String())
	}

	var resp struct {
		Migrated int `json:"migrated"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Migrated != 0 {
		t.Fatalf("migrated = %d, want 0", resp.Migrated)
	}
}
