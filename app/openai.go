package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/Balinti/conversation-tutor-ai/app/config"
	"github.com/Balinti/conversation-tutor-ai/app/models"
)

const openAIBaseURL = "https://api.openai.com/v1"

var aiHTTPClient = &http.Client{Timeout: 60 * time.Second}

// openAICoach talks to the provider's speech-to-text, chat completion and
// text-to-speech endpoints. Every public method degrades to a shaped static
// result on failure; errors never reach the handlers.
type openAICoach struct {
	cfg     config.OpenAIConfig
	baseURL string
}

func newOpenAICoach(cfg config.OpenAIConfig) *openAICoach {
	return &openAICoach{cfg: cfg, baseURL: openAIBaseURL}
}

func (o *openAICoach) Configured() bool { return true }

// Wire shapes for the provider's JSON responses. Payloads are parsed into
// these before any field is trusted.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	MaxTokens int `json:"max_tokens"`
}

func (o *openAICoach) Transcribe(ctx context.Context, audio []byte) string {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio.webm")
	if err != nil {
		log.Printf("transcription request build failed: %v", err)
		return transcriptFailed
	}
	if _, err := part.Write(audio); err != nil {
		log.Printf("transcription request build failed: %v", err)
		return transcriptFailed
	}
	_ = writer.WriteField("model", o.cfg.STTModel)
	_ = writer.WriteField("language", "en")
	if err := writer.Close(); err != nil {
		log.Printf("transcription request build failed: %v", err)
		return transcriptFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return transcriptFailed
	}
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := aiHTTPClient.Do(req)
	if err != nil {
		log.Printf("transcription call failed: %v", err)
		return transcriptFailed
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		log.Printf("transcription http %d: %s", res.StatusCode, msg)
		return transcriptFailed
	}

	var parsed transcriptionResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		log.Printf("transcription decode failed: %v", err)
		return transcriptFailed
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return transcriptEmpty
	}
	return parsed.Text
}

func (o *openAICoach) Score(ctx context.Context, transcript string, scenarioType models.ScenarioType, followupTranscripts []string) (models.Scores, models.DetailedFeedback) {
	scenarioContext := "incident status update to stakeholders"
	if scenarioType == models.ScenarioStandup {
		scenarioContext = "daily standup meeting update"
	}

	systemPrompt := fmt.Sprintf(`You are an expert communication coach evaluating a %s.
Score the response on three criteria (0-100):
1. Clarity: How clear and understandable is the message?
2. Structure: Is the information well-organized?
3. Tone: Is the tone appropriate for a professional setting?

Also provide:
- 3 actionable tips for improvement
- 2 highlighted moments (one positive, one for improvement) with quotes from the transcript

Return JSON with this structure:
{
  "scores": { "clarity": number, "structure": number, "tone": number, "overall": number },
  "feedback": {
    "tips": [string, string, string],
    "highlights": [
      { "quote": string, "type": "positive", "explanation": string },
      { "quote": string, "type": "improvement", "explanation": string }
    ]
  }
}`, scenarioContext)

	userContent := fmt.Sprintf("Response: %q", transcript)
	if len(followupTranscripts) > 0 {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Main response: %q\n\nFollow-up responses:", transcript)
		for i, r := range followupTranscripts {
			fmt.Fprintf(&sb, "\n%d. %q", i+1, r)
		}
		userContent = sb.String()
	}

	var parsed struct {
		Scores   models.Scores           `json:"scores"`
		Feedback models.DetailedFeedback `json:"feedback"`
	}
	if err := o.chatJSON(ctx, systemPrompt, userContent, 800, &parsed); err != nil {
		log.Printf("scoring call failed: %v", err)
		return scoreErrorFallback()
	}

	return clampScores(parsed.Scores), normalizeFeedback(scenarioType, parsed.Feedback)
}

// scoreErrorFallback is the static shape returned when a live call attempt
// fails. Wording differs from the stub coach on purpose so logs can tell the
// two degradation paths apart.
func scoreErrorFallback() (models.Scores, models.DetailedFeedback) {
	return models.Scores{Clarity: 70, Structure: 65, Tone: 72, Overall: 69},
		models.DetailedFeedback{
			Tips: []string{
				"Consider being more specific about timelines.",
				"Lead with the most important information.",
				"Use concrete examples when possible.",
			},
			Highlights: []models.Highlight{
				{Quote: "Your response", Type: models.HighlightPositive, Explanation: "Good attempt at communication."},
				{Quote: "Consider details", Type: models.HighlightImprovement, Explanation: "More specificity would help."},
			},
		}
}

func (o *openAICoach) Followups(ctx context.Context, transcript string, scenarioType models.ScenarioType) []models.FollowupQuestion {
	meeting := "incident status update"
	if scenarioType == models.ScenarioStandup {
		meeting = "daily standup"
	}
	systemPrompt := fmt.Sprintf(`You are an AI that generates realistic follow-up questions for a %s meeting simulation.
Based on the user's response, generate 1-2 challenging but realistic follow-up questions that a manager or team lead might ask.
Return JSON: {"questions": [{"question": string, "type": "interruption" or "followup"}]}`, meeting)

	var parsed struct {
		Questions []struct {
			Question string `json:"question"`
			Type     string `json:"type"`
		} `json:"questions"`
	}
	if err := o.chatJSON(ctx, systemPrompt, fmt.Sprintf("User's response: %q", transcript), 300, &parsed); err != nil {
		log.Printf("followup generation failed: %v", err)
		return nil
	}

	out := make([]models.FollowupQuestion, 0, len(parsed.Questions))
	for i, q := range parsed.Questions {
		if q.Question == "" {
			continue
		}
		qType := q.Type
		if qType != models.QuestionInterruption {
			qType = models.QuestionFollowup
		}
		out = append(out, models.FollowupQuestion{
			ID:       fmt.Sprintf("generated-%d", i),
			Question: q.Question,
			Type:     qType,
			Timing:   0,
		})
	}
	return out
}

func (o *openAICoach) EvaluateDrill(ctx context.Context, originalText, newTranscript, goal string) models.DrillEvaluateResponse {
	systemPrompt := fmt.Sprintf(`Compare the original statement with the improved version.
The user was trying to improve: %s

Original: %q
New version: %q

Evaluate if the new version is an improvement. Return JSON:
{ "score": number (0-100), "feedback": string, "improved": boolean }`, goal, originalText, newTranscript)

	var parsed models.DrillEvaluateResponse
	if err := o.chatJSON(ctx, systemPrompt, "Evaluate the improvement.", 300, &parsed); err != nil {
		log.Printf("drill evaluation failed: %v", err)
		return models.DrillEvaluateResponse{
			Score:    75,
			Feedback: "Good effort! Consider being even more specific.",
			Improved: true,
		}
	}
	parsed.Score = clampScore(parsed.Score)
	if parsed.Feedback == "" {
		parsed.Feedback = "Good effort! Consider being even more specific."
	}
	return parsed
}

func (o *openAICoach) Speak(ctx context.Context, text string) []byte {
	payload, err := json.Marshal(map[string]string{
		"model":           o.cfg.TTSModel,
		"input":           text,
		"voice":           o.cfg.TTSVoice,
		"response_format": "mp3",
	})
	if err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := aiHTTPClient.Do(req)
	if err != nil {
		log.Printf("tts call failed: %v", err)
		return nil
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		log.Printf("tts http %d", res.StatusCode)
		return nil
	}

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		log.Printf("tts read failed: %v", err)
		return nil
	}
	return audio
}

// chatJSON runs one JSON-mode chat completion and parses the model output
// into v. Retries on 429/5xx like the other upstream calls.
func (o *openAICoach) chatJSON(ctx context.Context, systemPrompt, userContent string, maxTokens int, v any) error {
	reqBody := chatRequest{
		Model: o.cfg.ChatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		MaxTokens: maxTokens,
	}
	reqBody.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")

		res, err := aiHTTPClient.Do(req)
		if err != nil {
			return err
		}

		if res.StatusCode == http.StatusOK {
			var parsed chatResponse
			err := json.NewDecoder(res.Body).Decode(&parsed)
			res.Body.Close()
			if err != nil {
				return err
			}
			if len(parsed.Choices) == 0 {
				return errors.New("chat completion returned no choices")
			}
			return json.Unmarshal([]byte(parsed.Choices[0].Message.Content), v)
		}

		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		res.Body.Close()
		lastErr = fmt.Errorf("chat completion http %d: %s", res.StatusCode, msg)

		if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
			time.Sleep(time.Duration(250*(attempt+1)) * time.Millisecond)
			continue
		}
		break
	}
	return lastErr
}
