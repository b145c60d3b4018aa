package config

import (
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Storage StorageConfig
	Audio   AudioConfig
	Breaker BreakerConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type AIConfig struct {
	Provider              string
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIChatModel       string
	OpenAITranscribeModel string
	GeminiAPIKey          string
	GeminiModel           string
}

type StorageConfig struct {
	TempDir     string
	MaxFileSize int64
}

type AudioConfig struct {
	FFmpegPath string
}

type BreakerConfig struct {
	Enabled      bool
	MinRequests  uint32
	FailureRatio float64
	Timeout      time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using environment and default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8010"),
			Env:  getEnv("ENV", "development"),
		},
		AI: AIConfig{
			Provider:              strings.ToLower(getEnv("AI_PROVIDER", ProviderOpenAI)),
			OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", ""),
			OpenAIChatModel:       getEnv("OPENAI_CHAT_MODEL", "gpt-3.5-turbo"),
			OpenAITranscribeModel: getEnv("OPENAI_TRANSCRIBE_MODEL", "gpt-4o-transcribe"),
			GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
			GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Storage: StorageConfig{
			TempDir:     getEnv("TEMP_DIR", os.TempDir()),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 25<<20),
		},
		Audio: AudioConfig{
			FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
		},
		Breaker: BreakerConfig{
			Enabled:      getEnvAsBool("BREAKER_ENABLED", false),
			MinRequests:  getEnvAsPositiveUint32("BREAKER_MIN_REQUESTS", 5),
			FailureRatio: getEnvAsFloat("BREAKER_FAILURE_RATIO", 0.6),
			Timeout:      getEnvAsDuration("BREAKER_TIMEOUT", "30s"),
		},
	}
}

// Credential returns the API key of the active provider. The environment is
// consulted first so a key exported after startup is picked up on the next call.
func (a *AIConfig) Credential() string {
	envKey, fallback := "OPENAI_API_KEY", a.OpenAIAPIKey
	if a.Provider == ProviderGemini {
		envKey, fallback = "GEMINI_API_KEY", a.GeminiAPIKey
	}
	return getEnv(envKey, fallback)
}

func (a *AIConfig) CredentialName() string {
	if a.Provider == ProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsPositiveUint32 falls back to defaultValue for zero, negative and
// out-of-range values.
func getEnvAsPositiveUint32(key string, defaultValue uint32) uint32 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil && value > 0 && value <= math.MaxUint32 {
		return uint32(value)
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
