// Package app generates randomized practice scenarios.
package app

import (
	"math/rand"
	"sort"

	"github.com/Balinti/conversation-tutor-ai/app/models"

	"github.com/google/uuid"
)

const (
	standupTimeLimitSec  = 90
	incidentTimeLimitSec = 120
)

var standupContexts = []string{
	"You are giving your daily standup update to your team. Your team lead and 5 engineers are listening.",
	"It's Monday morning standup. The product manager has joined to check on sprint progress.",
	"Your standup is running late, and the team seems eager to get back to work. Keep it concise.",
}

var incidentContexts = []string{
	"There was a production outage affecting 20% of users. You are giving a status update to stakeholders.",
	"A critical API is returning 500 errors. Engineering leadership is on the call for a status update.",
	"Database latency spiked causing slowdowns. The incident commander asked for your update.",
}

var standupPrompts = []string{
	"Share what you worked on yesterday, what you're working on today, and any blockers.",
	"Give your update: accomplishments, current focus, and obstacles.",
	"Time for your standup. What's your status?",
}

var incidentPrompts = []string{
	"Please give us the current status of the incident.",
	"What's the latest on this issue? Impact and timeline?",
	"Update the team on where we are with this incident.",
}

var standupFollowups = []models.FollowupQuestion{
	{Question: `Can you be more specific about what "almost done" means?`, Type: models.QuestionInterruption, Timing: 15},
	{Question: "What's the ETA on that task?", Type: models.QuestionFollowup, Timing: 30},
	{Question: "Is there anything blocking you that we can help with?", Type: models.QuestionFollowup, Timing: 45},
	{Question: "How does this align with the sprint goal?", Type: models.QuestionFollowup, Timing: 60},
	{Question: "Wait, didn't you mention that yesterday too?", Type: models.QuestionInterruption, Timing: 20},
}

var incidentFollowups = []models.FollowupQuestion{
	{Question: "What's the user impact right now?", Type: models.QuestionInterruption, Timing: 10},
	{Question: "When do you expect this to be resolved?", Type: models.QuestionFollowup, Timing: 25},
	{Question: "Has this happened before? Is there a pattern?", Type: models.QuestionFollowup, Timing: 40},
	{Question: "What's our rollback plan if the fix doesn't work?", Type: models.QuestionInterruption, Timing: 35},
	{Question: "Who else needs to be involved in resolving this?", Type: models.QuestionFollowup, Timing: 50},
}

// GenerateScenarioSeed produces the context, prompt and follow-up questions
// for one practice session. rng drives every random choice so tests can pin
// the selection; production callers pass a time-seeded source.
func GenerateScenarioSeed(scenarioType models.ScenarioType, rng *rand.Rand) models.ScenarioSeed {
	contexts := standupContexts
	prompts := standupPrompts
	timeLimit := standupTimeLimitSec
	if scenarioType == models.ScenarioIncident {
		contexts = incidentContexts
		prompts = incidentPrompts
		timeLimit = incidentTimeLimitSec
	}

	return models.ScenarioSeed{
		ScenarioType: scenarioType,
		Title:        ScenarioDisplayName(scenarioType),
		Context:      contexts[rng.Intn(len(contexts))],
		Prompts:      []string{prompts[rng.Intn(len(prompts))]},
		Followups:    pickFollowups(scenarioType, rng),
		TimeLimit:    timeLimit,
	}
}

// pickFollowups selects 2-3 questions: always at least one interruption and
// one followup, plus a 50% chance of a third from the remaining pool. The
// result is ordered by timing offset, not by selection order.
func pickFollowups(scenarioType models.ScenarioType, rng *rand.Rand) []models.FollowupQuestion {
	pool := standupFollowups
	if scenarioType == models.ScenarioIncident {
		pool = incidentFollowups
	}

	var interruptions, followups []models.FollowupQuestion
	for _, q := range pool {
		if q.Type == models.QuestionInterruption {
			interruptions = append(interruptions, q)
		} else {
			followups = append(followups, q)
		}
	}

	selected := []models.FollowupQuestion{
		withID(interruptions[rng.Intn(len(interruptions))]),
		withID(followups[rng.Intn(len(followups))]),
	}

	if rng.Intn(2) == 1 {
		var remaining []models.FollowupQuestion
		for _, q := range pool {
			taken := false
			for _, s := range selected {
				if s.Question == q.Question {
					taken = true
					break
				}
			}
			if !taken {
				remaining = append(remaining, q)
			}
		}
		if len(remaining) > 0 {
			selected = append(selected, withID(remaining[rng.Intn(len(remaining))]))
		}
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].Timing < selected[j].Timing
	})
	return selected
}

func withID(q models.FollowupQuestion) models.FollowupQuestion {
	q.ID = uuid.NewString()
	return q
}

// ScenarioDisplayName maps a scenario type onto its UI label.
func ScenarioDisplayName(scenarioType models.ScenarioType) string {
	if scenarioType == models.ScenarioStandup {
		return "Daily Standup"
	}
	return "Incident Status Update"
}
