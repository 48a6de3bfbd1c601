// Package app exposes the AI capabilities as thin proxy endpoints. Each one
// carries a "fallback" marker when no live provider is configured so the
// client can label synthetic results.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/Balinti/conversation-tutor-ai/app/models"

	"github.com/gin-gonic/gin"
)

type transcribeRequest struct {
	Audio string `json:"audio"`
}

// TranscribeAudio converts recorded audio to text.
func TranscribeAudio(c *gin.Context) {
	var req transcribeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Audio == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio data required"})
		return
	}

	audio, err := decodeAudio(req.Audio)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid audio encoding"})
		return
	}

	ai := currentCoach()
	if !ai.Configured() {
		c.JSON(http.StatusOK, gin.H{
			"text":     transcriptUnavailable,
			"fallback": true,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	c.JSON(http.StatusOK, gin.H{"text": ai.Transcribe(ctx, audio)})
}

type scoreRequest struct {
	Transcript        string              `json:"transcript"`
	ScenarioType      models.ScenarioType `json:"scenario_type"`
	FollowupResponses []string            `json:"followup_responses"`
}

// ScoreTranscript evaluates a transcript outside the session flow.
func ScoreTranscript(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Transcript == "" || !req.ScenarioType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transcript and scenario type required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	ai := currentCoach()
	scores, feedback := ai.Score(ctx, req.Transcript, req.ScenarioType, req.FollowupResponses)

	resp := gin.H{"scores": scores, "feedback": feedback}
	if !ai.Configured() {
		resp["fallback"] = true
	}
	c.JSON(http.StatusOK, resp)
}

type followupsRequest struct {
	Transcript   string              `json:"transcript"`
	ScenarioType models.ScenarioType `json:"scenario_type"`
}

// GenerateFollowups asks for 1-2 generated challenge questions based on what
// the user said so far.
func GenerateFollowups(c *gin.Context) {
	var req followupsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Transcript == "" || !req.ScenarioType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transcript and scenario type required"})
		return
	}

	ai := currentCoach()
	if !ai.Configured() {
		c.JSON(http.StatusOK, gin.H{
			"questions": []models.FollowupQuestion{},
			"fallback":  true,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	questions := ai.Followups(ctx, req.Transcript, req.ScenarioType)
	if questions == nil {
		questions = []models.FollowupQuestion{}
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

type speakRequest struct {
	Text string `json:"text"`
}

// SpeakText renders a follow-up question to audio.
func SpeakText(c *gin.Context) {
	var req speakRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text required"})
		return
	}

	ai := currentCoach()
	if !ai.Configured() {
		c.JSON(http.StatusOK, gin.H{
			"audio":    nil,
			"fallback": true,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	audio := ai.Speak(ctx, req.Text)
	if audio == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "TTS failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"audio": encodeAudioDataURL(audio)})
}
