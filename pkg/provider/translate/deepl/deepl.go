// Package deepl provides a translate.Provider backed by the DeepL
// translation API.
package deepl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/xenolive/liveasr/pkg/provider/translate"
)

const defaultBaseURL = "https://api-free.deepl.com/v2/translate"

// langMap maps this service's internal language codes to DeepL's target
// language codes.
var langMap = map[string]string{
	"en": "EN-US", "ja": "JA", "zh": "ZH", "vi": "VI", "id": "ID", "tr": "TR",
	"de": "DE", "it": "IT", "fr": "FR", "es": "ES", "ru": "RU", "pt": "PT",
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithBaseURL overrides the DeepL API endpoint, e.g. to use the paid-tier
// api.deepl.com host instead of the free-tier default.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.httpClient = client }
}

// Provider implements translate.Provider using the DeepL REST API.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ translate.Provider = (*Provider)(nil)

// New creates a DeepL-backed Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepl: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name implements translate.Provider.
func (p *Provider) Name() string { return "deepl" }

type deeplResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

// Translate implements translate.Provider.
func (p *Provider) Translate(ctx context.Context, text string, lang string) (string, error) {
	target, ok := langMap[lang]
	if !ok || text == "" {
		return "", nil
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("source_lang", "KO")
	form.Set("target_lang", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("deepl: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Sprintf("[%s 번역 실패]", lang), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("[%s 번역 실패]", lang), nil
	}

	var parsed deeplResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || len(parsed.Translations) == 0 {
		return fmt.Sprintf("[%s 번역 실패]", lang), nil
	}
	return parsed.Translations[0].Text, nil
}
