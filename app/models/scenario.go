package models

const (
	QuestionInterruption = "interruption"
	QuestionFollowup     = "followup"
)

// FollowupQuestion is a scripted challenge question injected mid-scenario.
// Timing is the offset in seconds from the start of the recording.
type FollowupQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Type     string `json:"type"`
	Timing   int    `json:"timing"`
}

// ScenarioSeed is the generated prompt/context for a session. It is created
// fresh per start, immutable, and embedded into the Session rather than
// persisted on its own.
type ScenarioSeed struct {
	ScenarioType ScenarioType       `json:"scenario_type"`
	Title        string             `json:"title"`
	Context      string             `json:"context"`
	Prompts      []string           `json:"prompts"`
	Followups    []FollowupQuestion `json:"followups"`
	TimeLimit    int                `json:"timeLimit"`
}
