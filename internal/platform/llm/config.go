package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/rejap-backend/internal/platform/envutil"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
	ProviderNone      = "none"
)

type Config struct {
	Provider string

	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	Gemini    GeminiConfig
	Retry     RetryConfig

	// Timeout bounds one tutor call, retries included.
	Timeout time.Duration
}

type OpenAIConfig struct {
	APIKey string
	Model  string
	// BaseURL lets any OpenAI-compatible endpoint (Groq, OpenRouter) stand in.
	BaseURL string
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

func DefaultConfig() Config {
	return Config{
		Provider:  ProviderOpenAI,
		OpenAI:    OpenAIConfig{Model: "gpt-4o-mini"},
		Anthropic: AnthropicConfig{Model: "claude-haiku"},
		Gemini:    GeminiConfig{Model: "gemini-flash"},
		Retry: RetryConfig{
			MaxAttempts: 1,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 20 * time.Second,
	}
}

func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Provider = strings.ToLower(envutil.String("LLM_PROVIDER", cfg.Provider))

	cfg.OpenAI.APIKey = envutil.String("OPENAI_API_KEY", "")
	cfg.OpenAI.Model = envutil.String("OPENAI_MODEL", cfg.OpenAI.Model)
	cfg.OpenAI.BaseURL = envutil.String("OPENAI_BASE_URL", "")

	cfg.Anthropic.APIKey = envutil.String("ANTHROPIC_API_KEY", "")
	cfg.Anthropic.Model = envutil.String("ANTHROPIC_MODEL", cfg.Anthropic.Model)

	cfg.Gemini.APIKey = envutil.String("GEMINI_API_KEY", "")
	cfg.Gemini.Model = envutil.String("GEMINI_MODEL", cfg.Gemini.Model)

	cfg.Retry.MaxAttempts = envutil.Int("LLM_MAX_ATTEMPTS", cfg.Retry.MaxAttempts)
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	cfg.Timeout = envutil.Duration("LLM_TIMEOUT", cfg.Timeout)
	return cfg
}

// Validate reports a missing key for the selected provider.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	case ProviderMock, ProviderNone:
	default:
		return fmt.Errorf("unknown llm provider %q", c.Provider)
	}
	return nil
}
