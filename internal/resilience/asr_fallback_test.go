package resilience

import (
	"context"
	"errors"
	"testing"

	asrmock "github.com/xenolive/liveasr/pkg/provider/asr/mock"
)

func TestASRFallback_Transcribe_PrimarySuccess(t *testing.T) {
	primary := &asrmock.Provider{Default: "primary result"}
	secondary := &asrmock.Provider{Default: "secondary result"}

	fb := NewASRFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	text, err := fb.Transcribe(context.Background(), []float32{0.1, 0.2}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "primary result" {
		t.Fatalf("got %q, want %q", text, "primary result")
	}
	if len(primary.Calls) != 1 {
		t.Fatalf("primary called %d times, want 1", len(primary.Calls))
	}
	if len(secondary.Calls) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.Calls))
	}
}

func TestASRFallback_Transcribe_Failover(t *testing.T) {
	primary := &asrmock.Provider{Err: errors.New("primary down")}
	secondary := &asrmock.Provider{Default: "secondary result"}

	fb := NewASRFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	text, err := fb.Transcribe(context.Background(), []float32{0.1, 0.2}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "secondary result" {
		t.Fatalf("got %q, want %q", text, "secondary result")
	}
	if len(secondary.Calls) != 1 {
		t.Fatalf("secondary called %d times, want 1", len(secondary.Calls))
	}
}

func TestASRFallback_Transcribe_AllFail(t *testing.T) {
	primary := &asrmock.Provider{Err: errors.New("primary down")}
	secondary := &asrmock.Provider{Err: errors.New("secondary down")}

	fb := NewASRFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	_, err := fb.Transcribe(context.Background(), []float32{0.1, 0.2}, "", nil)
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}
