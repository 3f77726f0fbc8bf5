// Package mock provides a test double for asr.Provider.
package mock

import (
	"context"
	"sync"

	"github.com/xenolive/liveasr/pkg/provider/asr"
)

// Provider is a configurable asr.Provider test double. Script supplies the
// text to return in call order; when Script is exhausted, Default is
// returned for every subsequent call.
type Provider struct {
	mu      sync.Mutex
	Script  []string
	Default string
	Err     error

	Calls []Call
}

// Call records the arguments a single Transcribe invocation was made with.
type Call struct {
	PCM          []float32
	PreviousText string
	Options      map[string]any
}

var _ asr.Provider = (*Provider)(nil)

// Transcribe implements asr.Provider.
func (p *Provider) Transcribe(_ context.Context, pcm []float32, previousText string, options map[string]any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, Call{PCM: pcm, PreviousText: previousText, Options: options})

	if p.Err != nil {
		return "", p.Err
	}
	if len(p.Script) > 0 {
		text := p.Script[0]
		p.Script = p.Script[1:]
		return text, nil
	}
	return p.Default, nil
}
