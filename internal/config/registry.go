package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/xenolive/liveasr/pkg/provider/asr"
	"github.com/xenolive/liveasr/pkg/provider/translate"
	"github.com/xenolive/liveasr/pkg/provider/vad"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name. Callers (see
// cmd/liveasrd/main.go) treat this as "not yet configured" rather than a
// fatal error when the corresponding config entry is empty.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider kind this service consumes. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	asr       map[string]func(ProviderEntry) (asr.Provider, error)
	vad       map[string]func(ProviderEntry) (vad.Engine, error)
	translate map[string]func(ProviderEntry) (translate.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		asr:       make(map[string]func(ProviderEntry) (asr.Provider, error)),
		vad:       make(map[string]func(ProviderEntry) (vad.Engine, error)),
		translate: make(map[string]func(ProviderEntry) (translate.Provider, error)),
	}
}

// RegisterASR registers an ASR provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterASR(name string, factory func(ProviderEntry) (asr.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[name] = factory
}

// RegisterVAD registers a VAD engine factory under name.
func (r *Registry) RegisterVAD(name string, factory func(ProviderEntry) (vad.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vad[name] = factory
}

// RegisterTranslator registers a translation provider factory under name.
func (r *Registry) RegisterTranslator(name string, factory func(ProviderEntry) (translate.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translate[name] = factory
}

// CreateASR instantiates an ASR provider using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory matches.
func (r *Registry) CreateASR(entry ProviderEntry) (asr.Provider, error) {
	r.mu.RLock()
	factory, ok := r.asr[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateVAD instantiates a VAD engine using the factory registered under entry.Name.
func (r *Registry) CreateVAD(entry ProviderEntry) (vad.Engine, error) {
	r.mu.RLock()
	factory, ok := r.vad[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vad/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTranslator instantiates a translation provider using the factory
// registered under entry.Name. Every built-in factory is registered
// regardless of credentials (see cmd/liveasrd/main.go's
// registerBuiltinProviders); a factory given missing credentials returns an
// error here, and the caller logs it and leaves that translator out of the
// providers it builds, so an unconfigured translator never fails at call time.
func (r *Registry) CreateTranslator(entry ProviderEntry) (translate.Provider, error) {
	r.mu.RLock()
	factory, ok := r.translate[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: translate/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// TranslatorNames returns the set of registered translator names. Used to
// build the set of languages/engines offered to a newly connected session.
func (r *Registry) TranslatorNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.translate))
	for name := range r.translate {
		names = append(names, name)
	}
	return names
}
