package resilience

import (
	"context"

	"github.com/xenolive/liveasr/pkg/provider/asr"
)

// ASRFallback implements [asr.Provider] with automatic failover across
// multiple ASR backends (e.g. a primary whispercpp model and a secondary
// remote engine). Each backend has its own circuit breaker; when the
// primary fails or its breaker is open, the next healthy fallback is tried.
type ASRFallback struct {
	group *FallbackGroup[asr.Provider]
}

// Compile-time interface assertion.
var _ asr.Provider = (*ASRFallback)(nil)

// NewASRFallback creates an [ASRFallback] with primary as the preferred backend.
func NewASRFallback(primary asr.Provider, primaryName string, cfg FallbackConfig) *ASRFallback {
	return &ASRFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional ASR provider as a fallback.
func (f *ASRFallback) AddFallback(name string, provider asr.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe tries the first healthy backend in registration order. If the
// primary fails (hard error or open circuit breaker), the next fallback is
// tried with the same arguments.
func (f *ASRFallback) Transcribe(ctx context.Context, pcm []float32, previousText string, options map[string]any) (string, error) {
	return ExecuteWithResult(f.group, func(p asr.Provider) (string, error) {
		return p.Transcribe(ctx, pcm, previousText, options)
	})
}
