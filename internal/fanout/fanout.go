// Package fanout dispatches one finalized transcript to every configured
// target language concurrently, the way _text_processing_task's
// asyncio.gather of per-language translate_and_store coroutines did.
package fanout

import (
	"context"
	"fmt"
	"sync"

	"github.com/xenolive/liveasr/internal/resilience"
	"github.com/xenolive/liveasr/pkg/provider/translate"
)

// Result is one language's translation outcome.
type Result struct {
	Language string
	Text     string
}

// Dispatcher fans a single translation call out across every active
// language, using one circuit breaker per engine so a failing translator
// backend degrades to fast failure-marker responses instead of blocking
// every language behind it.
type Dispatcher struct {
	provider translate.Provider
	breaker  *resilience.CircuitBreaker
}

// New creates a Dispatcher wrapping provider with its own circuit breaker,
// so repeated failures against this engine trip independently of any other
// configured engine.
func New(provider translate.Provider) *Dispatcher {
	return &Dispatcher{
		provider: provider,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name: "translate." + provider.Name(),
		}),
	}
}

// Name returns the underlying engine's name.
func (d *Dispatcher) Name() string {
	return d.provider.Name()
}

// Dispatch translates text into every language in languages concurrently
// and returns one Result per language, in the same order as the input. A
// language whose translation fails (whether from a hard error or a tripped
// circuit breaker) still produces a Result, carrying a failure-marker
// string instead of aborting the other languages' dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, text string, languages []string) []Result {
	results := make([]Result, len(languages))

	var wg sync.WaitGroup
	for i, lang := range languages {
		wg.Add(1)
		go func(i int, lang string) {
			defer wg.Done()
			results[i] = Result{Language: lang, Text: d.translateOne(ctx, text, lang)}
		}(i, lang)
	}
	wg.Wait()

	return results
}

// translateOne runs a single language's translation through the
// dispatcher's circuit breaker, converting any failure (breaker-open or
// provider error) into a failure-marker string rather than propagating an
// error to the caller.
func (d *Dispatcher) translateOne(ctx context.Context, text string, lang string) string {
	var translated string
	err := d.breaker.Execute(func() error {
		var execErr error
		translated, execErr = d.provider.Translate(ctx, text, lang)
		return execErr
	})
	if err != nil {
		return fmt.Sprintf("[%s 번역 실패]", lang)
	}
	return translated
}
