package models

// Request/response bodies for the JSON API.

type StartSimulationRequest struct {
	ScenarioType ScenarioType `json:"scenario_type"`
	AnonID       string       `json:"anon_id,omitempty"`
}

// UsageSnapshot reports weekly quota consumption. Limit is null for paid
// users (unbounded).
type UsageSnapshot struct {
	Used  int  `json:"used"`
	Limit *int `json:"limit"`
}

type StartSimulationResponse struct {
	SessionID string        `json:"sessionId"`
	Seed      ScenarioSeed  `json:"seed"`
	Usage     UsageSnapshot `json:"usage"`
}

// FollowupAnswer carries one recorded answer to a follow-up question.
// Audio is base64 encoded.
type FollowupAnswer struct {
	QuestionID string `json:"questionId"`
	Audio      string `json:"audio"`
}

type CompleteSimulationRequest struct {
	SessionID   string           `json:"sessionId"`
	Audio       string           `json:"audio"`
	DurationSec int              `json:"duration_sec"`
	Responses   []FollowupAnswer `json:"responses,omitempty"`
}

type DrillEvaluateRequest struct {
	SessionID       string `json:"sessionId"`
	Audio           string `json:"audio"`
	OriginalText    string `json:"originalText"`
	ImprovementGoal string `json:"improvementGoal"`
}

type DrillEvaluateResponse struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
	Improved bool   `json:"improved"`
}

type MigrateAnonRequest struct {
	AnonID string `json:"anon_id"`
}

type CheckoutRequest struct {
	PriceID string `json:"priceId"`
}

type ProfileUpdateRequest struct {
	Role     string   `json:"role"`
	Goals    []string `json:"goals"`
	Timezone string   `json:"timezone"`
}
