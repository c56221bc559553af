package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

func NewOpenAIAdapter(opts Options) (*Adapter, error) {
	oo := []openai.Option{
		openai.WithModel(opts.Model),
		openai.WithToken(opts.APIKey),
	}
	if opts.BaseURL != "" {
		oo = append(oo, openai.WithBaseURL(opts.BaseURL))
	}
	client, err := openai.New(oo...)
	if err != nil {
		return nil, err
	}
	return newAdapter(client, opts.Model), nil
}

func NewOllamaAdapter(opts Options) (*Adapter, error) {
	oo := []ollama.Option{ollama.WithModel(opts.Model)}
	if opts.BaseURL != "" {
		oo = append(oo, ollama.WithServerURL(opts.BaseURL))
	}
	client, err := ollama.New(oo...)
	if err != nil {
		return nil, err
	}
	return newAdapter(client, opts.Model), nil
}

func NewAnthropicAdapter(opts Options) (*Adapter, error) {
	oo := []anthropic.Option{
		anthropic.WithModel(opts.Model),
		anthropic.WithToken(opts.APIKey),
	}
	if opts.BaseURL != "" {
		oo = append(oo, anthropic.WithBaseURL(opts.BaseURL))
	}
	client, err := anthropic.New(oo...)
	if err != nil {
		return nil, err
	}
	return newAdapter(client, opts.Model), nil
}

// NewGeminiAdapter rejects a base URL; the client has no endpoint override.
func NewGeminiAdapter(opts Options) (*Adapter, error) {
	if opts.BaseURL != "" {
		return nil, fmt.Errorf("%w: gemini", ErrBaseURLUnsupported)
	}
	oo := []googleai.Option{
		googleai.WithDefaultModel(opts.Model),
		googleai.WithAPIKey(opts.APIKey),
	}
	client, err := googleai.New(context.Background(), oo...)
	if err != nil {
		return nil, err
	}
	return newAdapter(client, opts.Model), nil
}
