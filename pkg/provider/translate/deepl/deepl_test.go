package deepl_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xenolive/liveasr/pkg/provider/translate/deepl"
)

func TestNewRejectsEmptyAPIKey(t *testing.T) {
	if _, err := deepl.New(""); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestTranslateSkipsUnsupportedLanguage(t *testing.T) {
	p, err := deepl.New("test-key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	text, err := p.Translate(context.Background(), "안녕하세요", "ko")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty result for unsupported language, got %q", text)
	}
}

func TestTranslateReturnsTranslatedText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "DeepL-Auth-Key test-key" {
			t.Errorf("unexpected Authorization header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"translations": []map[string]string{{"text": "Hello"}},
		})
	}))
	defer server.Close()

	p, err := deepl.New("test-key", deepl.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	text, err := p.Translate(context.Background(), "안녕하세요", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if text != "Hello" {
		t.Fatalf("got %q, want %q", text, "Hello")
	}
}

func TestTranslateReturnsFailureMarkerOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p, err := deepl.New("test-key", deepl.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	text, err := p.Translate(context.Background(), "안녕하세요", "en")
	if err != nil {
		t.Fatalf("Translate returned an error instead of a failure marker: %v", err)
	}
	if text == "" {
		t.Fatal("expected a non-empty failure marker")
	}
}

func TestName(t *testing.T) {
	p, _ := deepl.New("test-key")
	if p.Name() != "deepl" {
		t.Fatalf("got %q, want %q", p.Name(), "deepl")
	}
}
