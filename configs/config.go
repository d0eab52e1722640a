package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type R2 struct {
	AccountID    string
	AccessKey    string
	SecretKey    string
	BucketName   string
	Endpoint     string
	UploadURLTTL time.Duration
}

type Twitter struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
}

type OpenAI struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
}

// Drafting holds the defaults used when a user has not saved their own
// prompt, model or auto-post preference.
type Drafting struct {
	SystemPrompt string
	Model        string
	Temperature  float32
	MaxTokens    int
	AutoPost     bool
}

type Timeouts struct {
	Transcription time.Duration
	Drafting      time.Duration
	Post          time.Duration
}

type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	Twitter            Twitter
	OpenAI             OpenAI
	Drafting           Drafting
	Timeouts           Timeouts
	PostgresURI        string
	RedisURI           string
	FrontendURL        string
	ListenAddr         string
	R2                 R2
	SecretKey          string
	CookieName         string
}

const DefaultSystemPrompt = `You turn spoken notes into posts for Twitter/X.
Rewrite the transcript below in the speaker's voice. Remove filler words and false starts.
If the idea fits in 280 characters, return a single tweet. Otherwise return a thread of short tweets, each under 280 characters, that reads well in order.
Respond with a JSON object only, shaped exactly like:
{"mode": "tweet" | "thread", "tweets": [{"text": "...", "char_count": 0}]}`

func LoadConfig() *Config {
	return &Config{
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:3000/login/callback"),
		Twitter: Twitter{
			ClientID:     getEnv("TWITTER_CLIENT_ID", ""),
			ClientSecret: getEnv("TWITTER_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("TWITTER_REDIRECT_URI", "http://localhost:3000/auth/twitter/callback"),
			Scopes:       strings.Fields(getEnv("TWITTER_SCOPES", "tweet.read tweet.write users.read offline.access media.write")),
			AuthURL:      getEnv("TWITTER_AUTH_URL", "https://twitter.com/i/oauth2/authorize"),
			TokenURL:     getEnv("TWITTER_TOKEN_URL", "https://api.x.com/2/oauth2/token"),
			APIBaseURL:   getEnv("TWITTER_API_BASE_URL", "https://api.x.com"),
		},
		OpenAI: OpenAI{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			BaseURL:            getEnv("OPENAI_BASE_URL", ""),
			TranscriptionModel: getEnv("OPENAI_TRANSCRIPTION_MODEL", "whisper-1"),
		},
		Drafting: Drafting{
			SystemPrompt: getEnv("DRAFTING_SYSTEM_PROMPT", DefaultSystemPrompt),
			Model:        getEnv("DRAFTING_MODEL", "gpt-4o-mini"),
			Temperature:  float32(getEnvFloat("DRAFTING_TEMPERATURE", 0.7)),
			MaxTokens:    getEnvInt("DRAFTING_MAX_TOKENS", 1000),
			AutoPost:     getEnvBool("AUTO_POST", false),
		},
		Timeouts: Timeouts{
			Transcription: getEnvDuration("TRANSCRIPTION_TIMEOUT", 30*time.Second),
			Drafting:      getEnvDuration("DRAFTING_TIMEOUT", 30*time.Second),
			Post:          getEnvDuration("POST_TIMEOUT", 10*time.Second),
		},
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", ""),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		ListenAddr:  getEnv("LISTEN_ADDR", ":3000"),
		R2: R2{
			AccountID:    getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:    getEnv("R2_ACCESS_KEY", ""),
			SecretKey:    getEnv("R2_SECRET_KEY", ""),
			BucketName:   getEnv("R2_BUCKET_NAME", ""),
			Endpoint:     getEnv("R2_ENDPOINT", ""),
			UploadURLTTL: getEnvDuration("R2_UPLOAD_URL_TTL", 15*time.Minute),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "voicepost_session"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
