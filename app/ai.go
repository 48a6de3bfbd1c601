// Package app adapts the external AI provider behind a capability interface.
// Handlers never see provider errors: every operation returns a well-formed
// result, degrading to a shaped synthetic one when the provider is missing
// or failing.
package app

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/Balinti/conversation-tutor-ai/app/config"
	"github.com/Balinti/conversation-tutor-ai/app/models"
)

// Transcription sentinels returned in place of provider output.
const (
	transcriptUnavailable = "[Transcript unavailable - AI service not configured. Your audio has been recorded.]"
	transcriptFailed      = "[Transcription failed. Please try again.]"
	transcriptEmpty       = "[No speech detected]"
)

// Coach is the speech/scoring capability consumed by the handlers.
type Coach interface {
	// Configured reports whether a live provider backs this coach. Proxy
	// endpoints surface this as the "fallback" marker.
	Configured() bool
	// Transcribe converts recorded audio to text, or a sentinel string.
	Transcribe(ctx context.Context, audio []byte) string
	// Score evaluates the main transcript plus follow-up answers.
	Score(ctx context.Context, transcript string, scenarioType models.ScenarioType, followupTranscripts []string) (models.Scores, models.DetailedFeedback)
	// Followups asks for 1-2 generated challenge questions.
	Followups(ctx context.Context, transcript string, scenarioType models.ScenarioType) []models.FollowupQuestion
	// EvaluateDrill judges a re-recorded attempt against the original.
	EvaluateDrill(ctx context.Context, originalText, newTranscript, goal string) models.DrillEvaluateResponse
	// Speak renders text to mp3 audio, or nil when unavailable.
	Speak(ctx context.Context, text string) []byte
}

var (
	coach     Coach
	coachOnce sync.Once
)

// InitCoach selects the live or stub coach from configuration.
func InitCoach() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config for coach: %v", err)
	}
	coach = NewCoach(cfg.OpenAI)
	coachOnce.Do(func() {})
}

// NewCoach returns the live provider when an API key is configured,
// otherwise the deterministic-shaped stub.
func NewCoach(cfg config.OpenAIConfig) Coach {
	if cfg.APIKey == "" {
		log.Print("OPENAI_API_KEY not set; using fallback coach")
		return newStubCoach(rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	return newOpenAICoach(cfg)
}

// currentCoach returns the process-wide coach, lazily falling back to the
// stub so handler tests run without init.
func currentCoach() Coach {
	coachOnce.Do(func() {
		if coach == nil {
			coach = newStubCoach(rand.New(rand.NewSource(time.Now().UnixNano())))
		}
	})
	return coach
}

// stubCoach generates plausibly-shaped random results so the UI flow never
// dead-ends on missing provider configuration.
type stubCoach struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newStubCoach(rng *rand.Rand) *stubCoach {
	return &stubCoach{rng: rng}
}

func (s *stubCoach) Configured() bool { return false }

func (s *stubCoach) Transcribe(_ context.Context, _ []byte) string {
	return transcriptUnavailable
}

func (s *stubCoach) Score(_ context.Context, _ string, scenarioType models.ScenarioType, _ []string) (models.Scores, models.DetailedFeedback) {
	s.mu.Lock()
	scores := models.Scores{
		Clarity:   60 + s.rng.Intn(20),
		Structure: 60 + s.rng.Intn(20),
		Tone:      65 + s.rng.Intn(20),
		Overall:   65 + s.rng.Intn(15),
	}
	s.mu.Unlock()

	return scores, models.DetailedFeedback{
		Tips: fallbackTips(scenarioType),
		Highlights: []models.Highlight{
			{Quote: "Your opening statement", Type: models.HighlightPositive, Explanation: "Good job setting context at the start."},
			{Quote: "Consider being more specific", Type: models.HighlightImprovement, Explanation: "Adding concrete details helps others understand better."},
		},
	}
}

func (s *stubCoach) Followups(_ context.Context, _ string, _ models.ScenarioType) []models.FollowupQuestion {
	return nil
}

func (s *stubCoach) EvaluateDrill(_ context.Context, _, _, _ string) models.DrillEvaluateResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.DrillEvaluateResponse{
		Score:    70 + s.rng.Intn(20),
		Feedback: "Good effort! Keep practicing to improve your delivery.",
		Improved: s.rng.Float64() > 0.3,
	}
}

func (s *stubCoach) Speak(_ context.Context, _ string) []byte {
	return nil
}

func fallbackTips(scenarioType models.ScenarioType) []string {
	if scenarioType == models.ScenarioStandup {
		return []string{
			"Try to lead with your most important update first.",
			"Keep each update to 1-2 sentences for clarity.",
			"Mention blockers explicitly rather than hinting at them.",
		}
	}
	return []string{
		"Start with the current status: is the incident ongoing or resolved?",
		"Clearly state the impact on users or systems.",
		"Provide a clear timeline of events and next steps.",
	}
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func clampScores(s models.Scores) models.Scores {
	s.Clarity = clampScore(s.Clarity)
	s.Structure = clampScore(s.Structure)
	s.Tone = clampScore(s.Tone)
	s.Overall = clampScore(s.Overall)
	return s
}

// normalizeFeedback shapes provider output to the contract: exactly 3 tips
// and exactly 2 highlights, one positive then one improvement.
func normalizeFeedback(scenarioType models.ScenarioType, fb models.DetailedFeedback) models.DetailedFeedback {
	tips := fallbackTips(scenarioType)
	for i := 0; i < len(fb.Tips) && i < 3; i++ {
		if fb.Tips[i] != "" {
			tips[i] = fb.Tips[i]
		}
	}
	fb.Tips = tips

	var positive, improvement *models.Highlight
	for i := range fb.Highlights {
		h := fb.Highlights[i]
		switch h.Type {
		case models.HighlightPositive:
			if positive == nil {
				positive = &h
			}
		case models.HighlightImprovement:
			if improvement == nil {
				improvement = &h
			}
		}
	}
	if positive == nil {
		positive = &models.Highlight{Quote: "Your opening statement", Type: models.HighlightPositive, Explanation: "Good job setting context at the start."}
	}
	if improvement == nil {
		improvement = &models.Highlight{Quote: "Consider being more specific", Type: models.HighlightImprovement, Explanation: "Adding concrete details helps others understand better."}
	}
	fb.Highlights = []models.Highlight{*positive, *improvement}
	return fb
}
