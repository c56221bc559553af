package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"lexdraft/internal/assistant"
	"lexdraft/internal/middleware"
)

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// Options configures a provider adapter.
type Options struct {
	Provider Provider
	Model    string
	BaseURL  string
	APIKey   string
}

// APIKeyName is the credential a provider needs, or "" when it needs none.
func (p Provider) APIKeyName() string {
	switch p {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return "GOOGLE_API_KEY"
	default:
		return ""
	}
}

// DefaultModel is used when no model is configured.
func (p Provider) DefaultModel() string {
	switch p {
	case ProviderOllama:
		return "llama3.2"
	case ProviderAnthropic:
		return "claude-3-5-sonnet-latest"
	case ProviderGemini:
		return "gemini-2.5-flash"
	default:
		return "gpt-3.5-turbo"
	}
}

func NewAdapter(opts Options) (assistant.Adapter, error) {
	if opts.Model == "" {
		opts.Model = opts.Provider.DefaultModel()
	}
	switch opts.Provider {
	case ProviderOpenAI:
		return NewOpenAIAdapter(opts)
	case ProviderOllama:
		return NewOllamaAdapter(opts)
	case ProviderAnthropic:
		return NewAnthropicAdapter(opts)
	case ProviderGemini:
		return NewGeminiAdapter(opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", opts.Provider)
	}
}

var (
	// ErrNoChoices is returned when the provider answers without any choice.
	ErrNoChoices = errors.New("no choices in model response")

	// ErrBaseURLUnsupported means the provider's client cannot be pointed at
	// a custom endpoint.
	ErrBaseURLUnsupported = errors.New("base_url is not supported for this provider")
)

// Adapter sends chat requests through any langchaingo model.
type Adapter struct {
	client llms.Model
	model  string
}

func newAdapter(client llms.Model, model string) *Adapter {
	return &Adapter{client: client, model: model}
}

func (a *Adapter) Model() string { return a.model }

func (a *Adapter) Reply(ctx context.Context, messages []assistant.Message, params *middleware.LLMParams) (string, error) {
	resp, err := a.client.GenerateContent(ctx, convertMessages(messages), a.callOptions(params)...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Content, nil
}

func (a *Adapter) callOptions(params *middleware.LLMParams) []llms.CallOption {
	opts := make([]llms.CallOption, 0, 4)
	opts = append(opts, llms.WithModel(a.model))
	if params == nil {
		return opts
	}
	if params.Model != "" {
		opts = append(opts, llms.WithModel(params.Model))
	}
	if params.Temperature != 0 {
		opts = append(opts, llms.WithTemperature(params.Temperature))
	}
	if params.TopP != 0 {
		opts = append(opts, llms.WithTopP(params.TopP))
	}
	if params.MaxTokens != 0 {
		opts = append(opts, llms.WithMaxTokens(params.MaxTokens))
	}
	return opts
}

func convertMessages(messages []assistant.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case assistant.RoleSystem:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, m.Content))
		case assistant.RoleAssistant:
			out = append(out, llms.TextParts(llms.ChatMessageTypeAI, m.Content))
		default:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		}
	}
	return out
}
