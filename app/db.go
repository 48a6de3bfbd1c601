package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Balinti/conversation-tutor-ai/app/config"
	"github.com/Balinti/conversation-tutor-ai/app/models"

	"github.com/lib/pq"
)

var db *sql.DB

// MustInitDB initializes the global db and panics/logs fatally on error.
func MustInitDB() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s",
		cfg.DB.Username,
		cfg.DB.Password,
		cfg.DB.URL,
		cfg.DB.Port,
	)

	d, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("sql.Open: %v", err)
	}

	if err := d.Ping(); err != nil {
		log.Fatalf("db.Ping: %v", err)
	}

	log.Println("Connected to Postgres")
	db = d
}

// --- sessions ---

func insertSession(ctx context.Context, s models.Session) error {
	if db == nil {
		// Allow test runs without a backing DB.
		return nil
	}

	followups, err := json.Marshal(s.FollowupQuestions)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, anon_id, scenario_type, status, followup_questions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now());
	`,
		s.ID,
		nullIfEmpty(s.UserID),
		nullIfEmpty(s.AnonID),
		s.ScenarioType,
		s.Status,
		followups,
	)
	return err
}

func getSessionByID(ctx context.Context, id string) (models.Session, error) {
	if db == nil {
		return models.Session{}, sql.ErrNoRows
	}

	var (
		s                models.Session
		userID, anonID   sql.NullString
		transcriptRaw    []byte
		scoresRaw        []byte
		feedbackRaw      []byte
		followupsRaw     []byte
		userResponsesRaw []byte
	)

	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, anon_id, scenario_type, status, duration_sec,
		       transcript, scores, detailed_feedback, followup_questions,
		       user_responses, created_at
		FROM sessions
		WHERE id = $1;
	`, id).Scan(
		&s.ID,
		&userID,
		&anonID,
		&s.ScenarioType,
		&s.Status,
		&s.DurationSec,
		&transcriptRaw,
		&scoresRaw,
		&feedbackRaw,
		&followupsRaw,
		&userResponsesRaw,
		&s.CreatedAt,
	)
	if err != nil {
		return models.Session{}, err
	}

	s.UserID = userID.String
	s.AnonID = anonID.String
	if err := unmarshalInto(transcriptRaw, &s.Transcript); err != nil {
		return models.Session{}, err
	}
	if len(scoresRaw) > 0 {
		s.Scores = &models.Scores{}
		if err := json.Unmarshal(scoresRaw, s.Scores); err != nil {
			return models.Session{}, err
		}
	}
	if len(feedbackRaw) > 0 {
		s.DetailedFeedback = &models.DetailedFeedback{}
		if err := json.Unmarshal(feedbackRaw, s.DetailedFeedback); err != nil {
			return models.Session{}, err
		}
	}
	if err := unmarshalInto(followupsRaw, &s.FollowupQuestions); err != nil {
		return models.Session{}, err
	}
	if err := unmarshalInto(userResponsesRaw, &s.UserResponses); err != nil {
		return models.Session{}, err
	}
	return s, nil
}

// ListSessionsForUser reads the user's sessions, newest first.
func ListSessionsForUser(ctx context.Context, userID string, limit int) ([]models.Session, error) {
	if db == nil {
		return []models.Session{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, scenario_type, status, duration_sec, scores, created_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2;
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Session{}
	for rows.Next() {
		var s models.Session
		var scoresRaw []byte
		if err := rows.Scan(&s.ID, &s.ScenarioType, &s.Status, &s.DurationSec, &scoresRaw, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.UserID = userID
		if len(scoresRaw) > 0 {
			s.Scores = &models.Scores{}
			if err := json.Unmarshal(scoresRaw, s.Scores); err != nil {
				return nil, err
			}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func updateSessionStatus(ctx context.Context, id string, status models.SessionStatus) error {
	if db == nil {
		return nil
	}
	_, err := db.ExecContext(ctx, `
		UPDATE sessions
		SET status = $1
		WHERE id = $2;
	`, status, id)
	return err
}

// finalizeSession persists the completed session in one statement.
func finalizeSession(ctx context.Context, s models.Session) error {
	if db == nil {
		return nil
	}

	transcript, err := json.Marshal(s.Transcript)
	if err != nil {
		return err
	}
	scores, err := json.Marshal(s.Scores)
	if err != nil {
		return err
	}
	feedback, err := json.Marshal(s.DetailedFeedback)
	if err != nil {
		return err
	}
	responses, err := json.Marshal(s.UserResponses)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		UPDATE sessions
		SET status = $1, duration_sec = $2, transcript = $3, scores = $4,
		    detailed_feedback = $5, user_responses = $6
		WHERE id = $7;
	`,
		models.StatusCompleted,
		s.DurationSec,
		transcript,
		scores,
		feedback,
		responses,
		s.ID,
	)
	return err
}

// --- identity migration ---

// migrateAnonOwner reassigns the anonymous identity's sessions and merges
// its current-week usage count onto the authenticated user. Both steps run
// in one transaction so a crash cannot duplicate or drop counts. Rerunning
// for an already-migrated anon id matches nothing and is a no-op.
func migrateAnonOwner(ctx context.Context, anonID, userID string, weekStart time.Time) (int, error) {
	if db == nil {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE sessions
		SET user_id = $1, anon_id = NULL
		WHERE anon_id = $2;
	`, userID, anonID)
	if err != nil {
		return 0, err
	}
	migrated, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	var anonUsed int
	err = tx.QueryRowContext(ctx, `
		SELECT simulations_used
		FROM usage_limits
		WHERE anon_id = $1 AND week_start = $2;
	`, anonID, weekStart).Scan(&anonUsed)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}

	if anonUsed > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO usage_limits (user_id, week_start, simulations_used, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (user_id, week_start) WHERE user_id IS NOT NULL
			DO UPDATE SET simulations_used = usage_limits.simulations_used + $3, updated_at = now();
		`, userID, weekStart, anonUsed)
		if err != nil {
			return 0, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM usage_limits
		WHERE anon_id = $1;
	`, anonID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(migrated), nil
}

// --- subscriptions ---

func getSubscriptionByUser(ctx context.Context, userID string) (models.Subscription, error) {
	var (
		s                models.Subscription
		customerID       sql.NullString
		subscriptionID   sql.NullString
		priceID          sql.NullString
		currentPeriodEnd sql.NullTime
	)

	err := db.QueryRowContext(ctx, `
		SELECT user_id, stripe_customer_id, stripe_subscription_id, status,
		       price_id, current_period_end, updated_at
		FROM subscriptions
		WHERE user_id = $1;
	`, userID).Scan(
		&s.UserID,
		&customerID,
		&subscriptionID,
		&s.Status,
		&priceID,
		&currentPeriodEnd,
		&s.UpdatedAt,
	)
	if err != nil {
		return models.Subscription{}, err
	}

	s.StripeCustomerID = customerID.String
	s.StripeSubscriptionID = subscriptionID.String
	s.PriceID = priceID.String
	if currentPeriodEnd.Valid {
		t := currentPeriodEnd.Time
		s.CurrentPeriodEnd = &t
	}
	return s, nil
}

// saveStripeCustomer records the customer id for a user, creating the
// subscription row in the inactive state on first checkout attempt.
func saveStripeCustomer(ctx context.Context, userID, customerID string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, stripe_customer_id, status, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id)
		DO UPDATE SET stripe_customer_id = $2, updated_at = now();
	`, userID, customerID, models.SubscriptionInactive)
	return err
}

// subscriptionPatch carries the webhook-reported field copies.
type subscriptionPatch struct {
	SubscriptionID   sql.NullString
	Status           models.SubscriptionStatus
	PriceID          sql.NullString
	CurrentPeriodEnd sql.NullTime
}

func applySubscriptionPatch(ctx context.Context, stripeCustomerID string, patch subscriptionPatch) error {
	if db == nil {
		return nil
	}
	_, err := db.ExecContext(ctx, `
		UPDATE subscriptions
		SET stripe_subscription_id = $1, status = $2, price_id = $3,
		    current_period_end = $4, updated_at = now()
		WHERE stripe_customer_id = $5;
	`,
		patch.SubscriptionID,
		patch.Status,
		patch.PriceID,
		patch.CurrentPeriodEnd,
		stripeCustomerID,
	)
	return err
}

// --- profiles ---

func getProfile(ctx context.Context, userID string) (models.Profile, error) {
	var (
		p        models.Profile
		role     sql.NullString
		timezone sql.NullString
	)

	err := db.QueryRowContext(ctx, `
		SELECT user_id, role, goals, timezone, created_at
		FROM profiles
		WHERE user_id = $1;
	`, userID).Scan(&p.UserID, &role, pq.Array(&p.Goals), &timezone, &p.CreatedAt)
	if err != nil {
		return models.Profile{}, err
	}
	p.Role = role.String
	p.Timezone = timezone.String
	if p.Goals == nil {
		p.Goals = []string{}
	}
	return p, nil
}

func upsertProfile(ctx context.Context, p models.Profile) error {
	if db == nil {
		return nil
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, role, goals, timezone, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id)
		DO UPDATE SET role = $2, goals = $3, timezone = $4;
	`,
		p.UserID,
		nullIfEmpty(p.Role),
		pq.Array(p.Goals),
		nullIfEmpty(p.Timezone),
	)
	return err
}

// --- helpers ---

func unmarshalInto(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
