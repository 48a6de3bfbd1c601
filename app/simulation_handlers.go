package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/Balinti/conversation-tutor-ai/app/models"
	"github.com/Balinti/conversation-tutor-ai/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	scenarioRngMu sync.Mutex
	scenarioRng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// loadSession is swapped in handler tests to serve sessions without a
// backing database.
var loadSession = getSessionByID

func generateSeed(scenarioType models.ScenarioType) models.ScenarioSeed {
	scenarioRngMu.Lock()
	defer scenarioRngMu.Unlock()
	return GenerateScenarioSeed(scenarioType, scenarioRng)
}

// ownerFromRequest resolves who a simulation belongs to: the authenticated
// user when claims are present, otherwise the client-supplied anonymous id.
func ownerFromRequest(c *gin.Context, anonID string) (OwnerRef, bool) {
	if claims, ok := auth.ClaimsFromContext(c.Request.Context()); ok && claims.Subject != "" {
		return OwnerRef{UserID: claims.Subject}, true
	}
	if anonID != "" {
		return OwnerRef{AnonID: anonID}, true
	}
	return OwnerRef{}, false
}

// StartSimulation validates the scenario type, checks the weekly quota and
// creates a new session with its generated seed embedded.
func StartSimulation(c *gin.Context) {
	var req models.StartSimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !req.ScenarioType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scenario type"})
		return
	}

	owner, ok := ownerFromRequest(c, req.AnonID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "anon_id required when not signed in"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	usage, err := checkQuota(ctx, owner, time.Now())
	if err != nil {
		var qerr quotaError
		if errors.As(err, &qerr) {
			message := "Weekly limit reached. Sign up for more."
			if owner.UserID != "" {
				message = "Weekly limit reached. Upgrade to Pro for unlimited."
			}
			c.JSON(http.StatusTooManyRequests, gin.H{"error": message})
			return
		}
		log.Printf("quota check failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check usage"})
		return
	}

	seed := generateSeed(req.ScenarioType)
	session := models.Session{
		ID:                uuid.NewString(),
		UserID:            owner.UserID,
		AnonID:            owner.AnonID,
		ScenarioType:      req.ScenarioType,
		Status:            models.StatusStarted,
		FollowupQuestions: seed.Followups,
	}

	if err := insertSession(ctx, session); err != nil {
		log.Printf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.JSON(http.StatusOK, models.StartSimulationResponse{
		SessionID: session.ID,
		Seed:      seed,
		Usage:     usage,
	})
}

// CompleteSimulation transcribes and scores a finished recording, bumps the
// owner's weekly usage and persists the final session state.
func CompleteSimulation(c *gin.Context) {
	var req models.CompleteSimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.SessionID == "" || req.Audio == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	audio, err := decodeAudio(req.Audio)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid audio encoding"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 120*time.Second)
	defer cancel()

	session, err := loadSession(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		log.Printf("session load failed id=%s: %v", req.SessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	// Re-scoring a finished session would silently overwrite its results.
	if session.Status == models.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "session already completed"})
		return
	}

	if err := updateSessionStatus(ctx, session.ID, models.StatusProcessing); err != nil {
		log.Printf("failed to mark session processing id=%s: %v", session.ID, err)
	}

	session = buildSessionResults(ctx, currentCoach(), session, req, audio)

	owner := OwnerRef{UserID: session.UserID, AnonID: session.AnonID}
	if err := incrementUsage(ctx, owner, weekStartUTC(time.Now())); err != nil {
		log.Printf("usage increment failed session=%s: %v", session.ID, err)
	}

	if err := finalizeSession(ctx, session); err != nil {
		log.Printf("failed to save results session=%s: %v", session.ID, err)
		if err := updateSessionStatus(ctx, session.ID, models.StatusError); err != nil {
			log.Printf("failed to mark session errored id=%s: %v", session.ID, err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save results"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

// buildSessionResults transcribes the recordings, re-pairs each spoken
// follow-up answer with its question in the order answered, and scores the
// result. It returns the session in its completed state without touching
// storage.
func buildSessionResults(ctx context.Context, ai Coach, session models.Session, req models.CompleteSimulationRequest, audio []byte) models.Session {
	mainTranscript := ai.Transcribe(ctx, audio)

	transcript := []models.TranscriptSegment{
		{
			Speaker:   "user",
			Text:      mainTranscript,
			Timestamp: 0,
			Duration:  req.DurationSec,
		},
	}

	var followupTranscripts []string
	var userResponses []models.UserResponse
	for _, answer := range req.Responses {
		answerAudio, err := decodeAudio(answer.Audio)
		if err != nil {
			log.Printf("skipping follow-up answer with bad audio session=%s question=%s", session.ID, answer.QuestionID)
			continue
		}
		text := ai.Transcribe(ctx, answerAudio)
		followupTranscripts = append(followupTranscripts, text)
		userResponses = append(userResponses, models.UserResponse{
			QuestionID: answer.QuestionID,
			Transcript: text,
		})

		if question, ok := findQuestion(session.FollowupQuestions, answer.QuestionID); ok {
			transcript = append(transcript, models.TranscriptSegment{
				Speaker:   "ai",
				Text:      question.Question,
				Timestamp: len(transcript) * 15,
			})
			transcript = append(transcript, models.TranscriptSegment{
				Speaker:   "user",
				Text:      text,
				Timestamp: len(transcript) * 15,
			})
		}
	}

	scores, feedback := ai.Score(ctx, mainTranscript, session.ScenarioType, followupTranscripts)

	session.Status = models.StatusCompleted
	session.DurationSec = req.DurationSec
	session.Transcript = transcript
	session.Scores = &scores
	session.DetailedFeedback = &feedback
	session.UserResponses = userResponses
	return session
}

// GetSession returns one session. Sessions owned by a user are only visible
// to that user; anonymous sessions are readable by anyone holding the id.
func GetSession(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	session, err := loadSession(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		log.Printf("session load failed id=%s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	if session.UserID != "" {
		claims, ok := auth.ClaimsFromContext(c.Request.Context())
		if !ok || claims.Subject != session.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

// ListSessions returns the authenticated user's session history.
func ListSessions(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	limit := 0
	if q := c.Query("limit"); q != "" {
		if v, err := parsePositiveInt(q); err == nil {
			limit = v
		}
	}

	sessions, err := ListSessionsForUser(ctx, claims.Subject, limit)
	if err != nil {
		log.Printf("session list failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// EvaluateDrill scores a re-recorded attempt at improving one highlight.
func EvaluateDrill(c *gin.Context) {
	var req models.DrillEvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.SessionID == "" || req.Audio == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	audio, err := decodeAudio(req.Audio)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid audio encoding"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	if _, err := loadSession(ctx, req.SessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		log.Printf("session load failed id=%s: %v", req.SessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	ai := currentCoach()
	newTranscript := ai.Transcribe(ctx, audio)
	result := ai.EvaluateDrill(ctx, req.OriginalText, newTranscript, req.ImprovementGoal)

	c.JSON(http.StatusOK, result)
}

func findQuestion(questions []models.FollowupQuestion, id string) (models.FollowupQuestion, bool) {
	for _, q := range questions {
		if q.ID == id {
			return q, true
		}
	}
	return models.FollowupQuestion{}, false
}
