package app

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Balinti/conversation-tutor-ai/app/models"

	"github.com/gin-gonic/gin"
)

func newAIRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/ai/stt", TranscribeAudio)
	router.POST("/api/ai/score", ScoreTranscript)
	router.POST("/api/ai/followups", GenerateFollowups)
	router.POST("/api/ai/tts", SpeakText)
	return router
}

func TestTranscribeAudioFallbackMarker(t *testing.T) {
	router := newAIRouter()
	w := postJSON(t, router, "/api/ai/stt", map[string]string{
		"audio": base64.StdEncoding.EncodeToString([]byte("audio")),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Text     string `json:"text"`
		Fallback bool   `json:"fallback"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Fallback {
		t.Fatalf("expected fallback marker without a configured provider")
	}
	if resp.Text != transcriptUnavailable {
		t.Fatalf("text = %q, want %q", resp.Text, transcriptUnavailable)
	}
}

func TestTranscribeAudioRejectsMissingAudio(t *testing.T) {
	router := newAIRouter()
	w := postJSON(t, router, "/api/ai/stt", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestScoreTranscriptFallbackShape(t *testing.T) {
	router := newAIRouter()
	w := postJSON(t, router, "/api/ai/score", map[string]any{
		"transcript":    "Yesterday I shipped the login flow.",
		"scenario_type": models.ScenarioStandup,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Scores   models.Scores           `json:"scores"`
		Feedback models.DetailedFeedback `json:"feedback"`
		Fallback bool                    `json:"fallback"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Fallback {
		t.Fatalf("expected fallback marker without a configured provider")
	}
	if resp.Scores.Overall < 0 || resp.Scores.Overall > 100 {
		t.Fatalf("overall score %d out of range", resp.Scores.Overall)
	}
	if len(resp.Feedback.Tips) != 3 {
		t.Fatalf("got %d tips, want 3", len(resp.Feedback.Tips))
	}
	if len(resp.Feedback.Highlights) != 2 {
		t.Fatalf("got %d highlights, want 2", len(resp.Feedback.Highlights))
	}
}

func TestScoreTranscriptRejectsBadScenario(t *testing.T) {
	router := newAIRouter()
	w := postJSON(t, router, "/api/ai/score", map[string]any{
		"transcript":    "hello",
		"scenario_type": "karaoke",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGenerateFollowupsFallback(t *testing.T) {
	router := newAIRouter()
	w := postJSON(t, router, "/api/ai/followups", map[string]any{
		"transcript":    "The deploy finished on time.",
		"scenario_type": models.ScenarioIncident,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Questions []models.FollowupQuestion `json:"questions"`
		Fallback  bool                      `json:"fallback"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Fallback {
		t.Fatalf("expected fallback marker without a configured provider")
	}
	if len(resp.Questions) != 0 {
		t.Fatalf("fallback should return no generated questions, got %d", len(resp.Questions))
	}
}

func TestSpeakTextFallback(t *testing.T) {
	router := newAIRouter()
	w := postJSON(t, router, "/api/ai/tts", map[string]string{"text": "How long until the fix?"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Audio    *string `json:"audio"`
		Fallback bool    `json:"fallback"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Fallback || resp.Audio != nil {
		t.Fatalf("expected null audio with fallback marker, got audio=%v fallback=%t", resp.Audio, resp.Fallback)
	}
}
