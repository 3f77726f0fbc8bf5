// Package google provides a translate.Provider backed by the Google Cloud
// Translation API (v2, REST), authenticated with a simple API key rather
// than the full Cloud SDK's service-account credential flow -- no Cloud SDK
// dependency exists among the retrieved examples to ground a
// credentials-based client on.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/xenolive/liveasr/pkg/provider/translate"
)

const defaultBaseURL = "https://translation.googleapis.com/language/translate/v2"

// langMap maps this service's internal language codes to Google Translate's
// target language codes.
var langMap = map[string]string{
	"en": "en", "ja": "ja", "zh": "zh-CN", "vi": "vi", "id": "id", "th": "th",
	"mn": "mn", "uz": "uz", "tr": "tr", "de": "de", "it": "it", "fr": "fr",
	"es": "es", "ru": "ru", "pt": "pt",
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithBaseURL overrides the Google Translate API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.httpClient = client }
}

// Provider implements translate.Provider using the Google Cloud Translation
// v2 REST API.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ translate.Provider = (*Provider)(nil)

// New creates a Google Translate-backed Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("google: apiKey must not be empty")
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
func (p *Provider) Name() string { return "google" }

type googleResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

// Translate implements translate.Provider.
func (p *Provider) Translate(ctx context.Context, text string, lang string) (string, error) {
	target, ok := langMap[lang]
	if !ok || text == "" {
		return "", nil
	}

	form := url.Values{}
	form.Set("q", text)
	form.Set("source", "ko")
	form.Set("target", target)
	form.Set("format", "text")
	form.Set("key", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("google: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Sprintf("[%s Google 번역 실패]", lang), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("[%s Google 번역 실패]", lang), nil
	}

	var parsed googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || len(parsed.Data.Translations) == 0 {
		return fmt.Sprintf("[%s Google 번역 실패]", lang), nil
	}

	// The API returns HTML-entity-escaped text; decode it back to plain
	// unicode the way the original's html.unescape call did.
	return html.UnescapeString(parsed.Data.Translations[0].TranslatedText), nil
}
