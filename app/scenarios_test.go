package app

import (
	"math/rand"
	"testing"

	"github.com/Balinti/conversation-tutor-ai/app/models"
)

func TestGenerateScenarioSeedFollowupInvariants(t *testing.T) {
	for _, scenarioType := range []models.ScenarioType{models.ScenarioStandup, models.ScenarioIncident} {
		t.Run(string(scenarioType), func(t *testing.T) {
			for seed := int64(0); seed < 50; seed++ {
				rng := rand.New(rand.NewSource(seed))
				got := GenerateScenarioSeed(scenarioType, rng)

				if len(got.Followups) < 2 || len(got.Followups) > 3 {
					t.Fatalf("seed %d: got %d followups, want 2-3", seed, len(got.Followups))
				}

				var interruptions, followups int
				for i, q := range got.Followups {
					switch q.Type {
					case models.QuestionInterruption:
						interruptions++
					case models.QuestionFollowup:
						followups++
					default:
						t.Fatalf("seed %d: unexpected question type %q", seed, q.Type)
					}
					if q.ID == "" {
						t.Fatalf("seed %d: question %d missing id", seed, i)
					}
					if i > 0 && got.Followups[i-1].Timing > q.Timing {
						t.Fatalf("seed %d: followups not sorted by timing: %v", seed, got.Followups)
					}
				}
				if interruptions < 1 {
					t.Fatalf("seed %d: no interruption question selected", seed)
				}
				if followups < 1 {
					t.Fatalf("seed %d: no followup question selected", seed)
				}

				for i := range got.Followups {
					for j := i + 1; j < len(got.Followups); j++ {
						if got.Followups[i].Question == got.Followups[j].Question {
							t.Fatalf("seed %d: duplicate question selected: %q", seed, got.Followups[i].Question)
						}
					}
				}
			}
		})
	}
}

func TestGenerateScenarioSeedTimeLimits(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if got := GenerateScenarioSeed(models.ScenarioStandup, rng).TimeLimit; got != 90 {
		t.Fatalf("standup time limit = %d, want 90", got)
	}
	if got := GenerateScenarioSeed(models.ScenarioIncident, rng).TimeLimit; got != 120 {
		t.Fatalf("incident time limit = %d, want 120", got)
	}
}

func TestGenerateScenarioSeedPoolMembership(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	got := GenerateScenarioSeed(models.ScenarioIncident, rng)

	if !contains(incidentContexts, got.Context) {
		t.Fatalf("context %q not from incident pool", got.Context)
	}
	if len(got.Prompts) != 1 || !contains(incidentPrompts, got.Prompts[0]) {
		t.Fatalf("prompts %v not from incident pool", got.Prompts)
	}
	for _, q := range got.Followups {
		found := false
		for _, p := range incidentFollowups {
			if p.Question == q.Question && p.Type == q.Type && p.Timing == q.Timing {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("question %+v not from incident pool", q)
		}
	}
}

func TestScenarioDisplayName(t *testing.T) {
	if got := ScenarioDisplayName(models.ScenarioStandup); got != "Daily Standup" {
		t.Fatalf("standup display name = %q", got)
	}
	if got := ScenarioDisplayName(models.ScenarioIncident); got != "Incident Status Update" {
		t.Fatalf("incident display name = %q", got)
	}
}

func TestScenarioTypeValid(t *testing.T) {
	if !models.ScenarioStandup.Valid() || !models.ScenarioIncident.Valid() {
		t.Fatalf("expected supported types to validate")
	}
	if models.ScenarioType("retro").Valid() {
		t.Fatalf("expected unknown type to be invalid")
	}
}

func contains(pool []string, s string) bool {
	for _, p := range pool {
		if p == s {
			return true
		}
	}
	return false
}
