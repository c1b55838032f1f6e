package llm

import (
	"context"
	"fmt"

	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

// NewProvider builds the configured provider wrapped as
// caller -> retry -> logging -> sdk. A selected provider without its key
// degrades to the "none" provider with a warning instead of failing boot.
func NewProvider(ctx context.Context, cfg Config, log *logger.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		if cfg.Provider != ProviderOpenAI && cfg.Provider != ProviderAnthropic && cfg.Provider != ProviderGemini {
			return nil, err
		}
		log.Warn("llm provider disabled", "provider", cfg.Provider, "reason", err.Error())
		return noneProvider{}, nil
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderMock:
		return NewMockProvider(), nil
	case ProviderNone:
		return noneProvider{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("init %s provider: %w", cfg.Provider, err)
	}
	return WithRetry(WithLogging(base, log), cfg.Retry), nil
}

// IsConfigured is false for the "none" provider.
func IsConfigured(p Provider) bool {
	_, none := p.(noneProvider)
	return !none
}
