package config

import (
	"os"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	DB     PostgresConfig
	Stripe StripeConfig
	OpenAI OpenAIConfig
}

type PostgresConfig struct {
	Username string
	Password string
	URL      string
	Port     string
}

type StripeConfig struct {
	SecretKey         string
	WebhookSecret     string
	PriceIDProMonthly string
	PriceIDProAnnual  string
	FrontendURL       string
}

type OpenAIConfig struct {
	APIKey    string
	ChatModel string
	STTModel  string
	TTSModel  string
	TTSVoice  string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		DB: PostgresConfig{
			Username: os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PWD"),
			URL:      os.Getenv("POSTGRES_URL"),
			Port:     os.Getenv("POSTGRES_PORT"),
		},
		Stripe: StripeConfig{
			SecretKey:         os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:     os.Getenv("STRIPE_WEBHOOK_SECRET"),
			PriceIDProMonthly: os.Getenv("STRIPE_PRO_MONTHLY_PRICE_ID"),
			PriceIDProAnnual:  os.Getenv("STRIPE_PRO_ANNUAL_PRICE_ID"),
			FrontendURL:       os.Getenv("FRONTEND_URL"),
		},
		OpenAI: OpenAIConfig{
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			ChatModel: getenvDefault("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			STTModel:  getenvDefault("OPENAI_STT_MODEL", "whisper-1"),
			TTSModel:  getenvDefault("OPENAI_TTS_MODEL", "tts-1"),
			TTSVoice:  getenvDefault("OPENAI_TTS_VOICE", "onyx"),
		},
	}

	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
