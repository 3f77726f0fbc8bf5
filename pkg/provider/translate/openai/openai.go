// Package openai provides a translate.Provider that frames translation as
// an OpenAI chat completion, for deployments without a DeepL/Papago/Google
// key but with an OpenAI one.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/xenolive/liveasr/pkg/provider/translate"
)

// languageNames maps this service's internal language codes to the English
// language name used in the translation prompt.
var languageNames = map[string]string{
	"en": "English", "ja": "Japanese", "zh": "Chinese", "vi": "Vietnamese",
	"id": "Indonesian", "th": "Thai", "mn": "Mongolian", "uz": "Uzbek",
	"tr": "Turkish", "de": "German", "it": "Italian", "fr": "French",
	"es": "Spanish", "ru": "Russian", "pt": "Portuguese",
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// Provider implements translate.Provider by prompting an OpenAI chat model
// to translate Korean text.
type Provider struct {
	client  oai.Client
	model   string
	baseURL string
}

var _ translate.Provider = (*Provider)(nil)

// New constructs a new OpenAI-backed translate.Provider.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, errors.New("openai: model must not be empty")
	}

	p := &Provider{model: model}
	for _, o := range opts {
		o(p)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if p.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(p.baseURL))
	}
	p.client = oai.NewClient(reqOpts...)
	return p, nil
}

// Name implements translate.Provider.
func (p *Provider) Name() string { return "openai" }

// Translate implements translate.Provider.
func (p *Provider) Translate(ctx context.Context, text string, lang string) (string, error) {
	langName, ok := languageNames[lang]
	if !ok || text == "" {
		return "", nil
	}

	prompt := fmt.Sprintf(
		"Translate the following Korean broadcast transcript into %s. "+
			"Reply with only the translation, no quotes or commentary:\n\n%s",
		langName, text,
	)

	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage("You are a professional live-broadcast subtitle translator."),
			oai.UserMessage(prompt),
		},
	})
	if err != nil {
		return fmt.Sprintf("[%s 번역 실패]", lang), nil
	}
	if len(resp.Choices) == 0 {
		return fmt.Sprintf("[%s 번역 실패]", lang), nil
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
