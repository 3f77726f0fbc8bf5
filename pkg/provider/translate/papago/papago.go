// Package papago provides a translate.Provider backed by Naver's Papago
// translation API.
package papago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/xenolive/liveasr/pkg/provider/translate"
)

const defaultEndpoint = "https://papago.apigw.ntruss.com/nmt/v1/translation"

// langMap maps this service's internal language codes to Papago's target
// language codes.
var langMap = map[string]string{
	"en": "en", "ja": "ja", "zh": "zh-CN", "vi": "vi", "id": "id", "th": "th",
	"de": "de", "it": "it", "fr": "fr", "es": "es", "ru": "ru",
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.httpClient = client }
}

// Provider implements translate.Provider using the Papago REST API.
type Provider struct {
	endpoint     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

var _ translate.Provider = (*Provider)(nil)

// New creates a Papago-backed Provider. clientID and clientSecret must both
// be non-empty.
func New(clientID, clientSecret string, opts ...Option) (*Provider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("papago: clientID and clientSecret must not be empty")
	}
	p := &Provider{
		endpoint:     defaultEndpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   http.DefaultClient,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name implements translate.Provider.
func (p *Provider) Name() string { return "papago" }

type papagoResponse struct {
	Message struct {
		Result struct {
			TranslatedText string `json:"translatedText"`
		} `json:"result"`
	} `json:"message"`
}

// Translate implements translate.Provider.
func (p *Provider) Translate(ctx context.Context, text string, lang string) (string, error) {
	target, ok := langMap[lang]
	if !ok || text == "" {
		return "", nil
	}

	form := url.Values{}
	form.Set("source", "ko")
	form.Set("target", target)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("papago: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-NCP-APIGW-API-KEY-ID", p.clientID)
	req.Header.Set("X-NCP-APIGW-API-KEY", p.clientSecret)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Sprintf("[Papago %s 번역 실패]", lang), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Sprintf("[Papago %s 번역 실패]", lang), nil
	}

	var parsed papagoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Sprintf("[Papago %s 번역 실패]", lang), nil
	}
	return parsed.Message.Result.TranslatedText, nil
}
