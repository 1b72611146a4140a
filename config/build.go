package config

import (
	"fmt"
	"os"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/hupe1980/meshflow/logging"
	"github.com/hupe1980/meshflow/model"
	"github.com/hupe1980/meshflow/model/anthropic"
	"github.com/hupe1980/meshflow/model/langchain"
	"github.com/hupe1980/meshflow/model/openai"
)

// NewGateway builds the configured completion gateway, wrapped in a rate
// limiter when gateway.rate_limit is positive. The openai provider reads
// OPENAI_API_KEY from the environment; anthropic uses api_key when set;
// langchain talks to the Ollama server at base_url.
func (c *Config) NewGateway() (model.Gateway, error) {
	g := c.Gateway

	var gw model.Gateway
	switch g.Provider {
	case ProviderOpenAI:
		gw = openai.NewGateway(func(o *openai.Options) {
			if g.Model != "" {
				o.Model = g.Model
			}
			if g.Temperature > 0 {
				o.Temperature = g.Temperature
			}
			if g.MaxTokens > 0 {
				o.MaxCompletionTokens = g.MaxTokens
			}
		})
	case ProviderAnthropic:
		gw = anthropic.NewGateway(func(o *anthropic.Options) {
			if g.Model != "" {
				o.Model = anthropicsdk.Model(g.Model)
			}
			if g.Temperature > 0 {
				o.Temperature = g.Temperature
			}
			if g.MaxTokens > 0 {
				o.MaxTokens = g.MaxTokens
			}
			o.APIKey = g.APIKey
		})
	case ProviderLangChain:
		opts := []ollama.Option{ollama.WithModel(g.Model)}
		if g.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(g.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to build langchain gateway: %w", err)
		}
		gw = langchain.NewGateway(llm, func(o *langchain.Options) {
			o.Name = g.Model
			if g.Temperature > 0 {
				o.Temperature = g.Temperature
			}
			if g.MaxTokens > 0 {
				o.MaxTokens = int(g.MaxTokens)
			}
		})
	case ProviderMock:
		gw = model.NewMockGateway("mock")
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", g.Provider)
	}

	return model.RateLimited(gw, g.RateLimit, g.Burst), nil
}

// NewLogger builds the configured logger. Output goes to stderr.
func (c *Config) NewLogger() (logging.Logger, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}

	if c.Log.Backend == "zap" {
		z, err := logging.NewZapLogger(level, c.Log.Format)
		if err != nil {
			return nil, fmt.Errorf("failed to build zap logger: %w", err)
		}
		return z, nil
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: c.Log.Format,
		Output: os.Stderr,
	}), nil
}
