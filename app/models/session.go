// Package models defines the practice session domain types.
package models

import "time"

type ScenarioType string

const (
	ScenarioStandup  ScenarioType = "standup"
	ScenarioIncident ScenarioType = "incident"
)

// Valid reports whether the scenario type is one of the supported values.
func (s ScenarioType) Valid() bool {
	return s == ScenarioStandup || s == ScenarioIncident
}

type SessionStatus string

const (
	StatusStarted    SessionStatus = "started"
	StatusProcessing SessionStatus = "processing"
	StatusCompleted  SessionStatus = "completed"
	StatusError      SessionStatus = "error"
)

// TranscriptSegment is one turn of the reassembled conversation.
// Speaker is "user" or "ai".
type TranscriptSegment struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp int    `json:"timestamp"`
	Duration  int    `json:"duration,omitempty"`
}

// Scores holds the three sub-scores plus overall, each in [0,100].
type Scores struct {
	Clarity   int `json:"clarity"`
	Structure int `json:"structure"`
	Tone      int `json:"tone"`
	Overall   int `json:"overall"`
}

const (
	HighlightPositive    = "positive"
	HighlightImprovement = "improvement"
)

type Highlight struct {
	Quote       string `json:"quote"`
	Type        string `json:"type"`
	Explanation string `json:"explanation"`
}

type DetailedFeedback struct {
	Tips       []string    `json:"tips"`
	Highlights []Highlight `json:"highlights"`
}

// UserResponse records the transcript of one answered follow-up question.
type UserResponse struct {
	QuestionID string `json:"questionId"`
	Transcript string `json:"transcript"`
}

type Session struct {
	ID                string              `json:"id"`
	UserID            string              `json:"user_id,omitempty"`
	AnonID            string              `json:"anon_id,omitempty"`
	ScenarioType      ScenarioType        `json:"scenario_type"`
	Status            SessionStatus       `json:"status"`
	DurationSec       int                 `json:"duration_sec"`
	Transcript        []TranscriptSegment `json:"transcript"`
	Scores            *Scores             `json:"scores"`
	DetailedFeedback  *DetailedFeedback   `json:"detailed_feedback"`
	FollowupQuestions []FollowupQuestion  `json:"followup_questions"`
	UserResponses     []UserResponse      `json:"user_responses"`
	CreatedAt         time.Time           `json:"created_at"`
}
