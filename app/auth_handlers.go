// Package app provides public health and authenticated identity endpoints.
package app

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Balinti/conversation-tutor-ai/app/models"
	"github.com/Balinti/conversation-tutor-ai/auth"

	"github.com/gin-gonic/gin"
)

// Health is a public health check endpoint.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Me returns the authenticated user's plan and weekly usage info.
func Me(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	if db == nil {
		c.JSON(http.StatusOK, gin.H{
			"plan":            models.PlanFree,
			"simulationsUsed": 0,
			"weeklyLimit":     FreeWeeklyLimit,
			"remaining":       FreeWeeklyLimit,
		})
		return
	}

	plan := models.PlanFree
	sub, err := getSubscriptionByUser(c.Request.Context(), claims.Subject)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Printf("me: subscription lookup failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	if sub.IsPro() {
		plan = models.PlanPro
	}

	owner := OwnerRef{UserID: claims.Subject}
	used, err := getUsage(c.Request.Context(), owner, weekStartUTC(time.Now()))
	if err != nil {
		log.Printf("me: usage lookup failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	var weeklyLimit any = nil
	var remaining any = nil
	if plan == models.PlanFree {
		weeklyLimit = FreeWeeklyLimit
		remainingCount := FreeWeeklyLimit - used
		if remainingCount < 0 {
			remainingCount = 0
		}
		remaining = remainingCount
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":            plan,
		"simulationsUsed": used,
		"weeklyLimit":     weeklyLimit,
		"remaining":       remaining,
	})
}

// MigrateAnonymous moves the caller's anonymous sessions and current-week
// usage onto their authenticated account. Safe to call more than once; a
// repeat migrates zero rows.
func MigrateAnonymous(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok || claims.Subject == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req models.MigrateAnonRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AnonID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "anon_id required"})
		return
	}

	if db == nil {
		c.JSON(http.StatusOK, gin.H{"migrated": 0})
		return
	}

	migrated, err := migrateAnonOwner(c.Request.Context(), req.AnonID, claims.Subject, weekStartUTC(time.Now()))
	if err != nil {
		log.Printf("anon migration failed anon=%s user=%s err=%v", req.AnonID, claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "migration failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"migrated": migrated})
}

// GetProfile returns the authenticated user's coaching profile.
func GetProfile(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok || claims.Subject == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db not initialized"})
		return
	}

	profile, err := getProfile(c.Request.Context(), claims.Subject)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	if err != nil {
		log.Printf("profile lookup failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateProfile upserts the authenticated user's coaching profile.
func UpdateProfile(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok || claims.Subject == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req models.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	profile := models.Profile{
		UserID:   claims.Subject,
		Role:     req.Role,
		Goals:    req.Goals,
		Timezone: req.Timezone,
	}
	if profile.Goals == nil {
		profile.Goals = []string{}
	}

	if err := upsertProfile(c.Request.Context(), profile); err != nil {
		log.Printf("profile upsert failed user=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
