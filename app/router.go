// Package app wires shared HTTP routes for both local and Lambda execution.
package app

import (
	"time"

	"github.com/Balinti/conversation-tutor-ai/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the shared HTTP router for both local and Lambda execution.
func NewRouter() (*gin.Engine, error) {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", Health)
	router.POST("/api/stripe/webhook", StripeWebhook)

	verifier, err := auth.NewVerifierFromEnv()
	if err != nil && !auth.AuthDisabled() {
		return nil, err
	}

	// Simulation routes admit anonymous callers; a bearer token is honored
	// when present.
	open := router.Group("/")
	open.Use(auth.OptionalMiddleware(verifier))
	open.POST("/api/simulations/start", StartSimulation)
	open.POST("/api/simulations/complete", CompleteSimulation)
	open.GET("/api/sessions/:id", GetSession)
	open.POST("/api/drills/evaluate", EvaluateDrill)
	open.POST("/api/ai/stt", TranscribeAudio)
	open.POST("/api/ai/score", ScoreTranscript)
	open.POST("/api/ai/followups", GenerateFollowups)
	open.POST("/api/ai/tts", SpeakText)

	protected := router.Group("/")
	protected.Use(auth.Middleware(verifier, auth.MiddlewareConfig{
		DisableAuth: auth.AuthDisabled(),
	}))
	protected.GET("/me", Me)
	protected.GET("/api/sessions", ListSessions)
	protected.GET("/api/profile", GetProfile)
	protected.PUT("/api/profile", UpdateProfile)
	protected.POST("/api/auth/migrate-anon", MigrateAnonymous)
	protected.POST("/api/billing/checkout", CreateCheckoutSession)
	protected.POST("/api/billing/portal", CreatePortalSession)

	return router, nil
}
