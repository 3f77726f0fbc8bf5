// Package translate defines the Provider interface for translation engines
// and the shared failure-marker convention used when an engine call fails:
// callers never receive a hard error for an unsupported language or a
// downstream API failure, only a synthesized marker string, so that one
// engine's outage never blocks the others configured alongside it.
package translate

import "context"

// Provider translates Korean source text into the language identified by
// lang (an ISO 639-1-ish code as used in internal/wire messages, e.g. "en",
// "ja", "zh"). If lang is not supported by this engine, Translate returns
// an empty string and a nil error; callers should treat an empty result as
// "skip this engine for this language" rather than a failure.
type Provider interface {
	// Name identifies the engine for logging, metrics, and the
	// "translation_result" wire message's engine attribution.
	Name() string

	// Translate returns the translated text, or a human-readable failure
	// marker string (never an error) if the underlying API call failed.
	Translate(ctx context.Context, text string, lang string) (string, error)
}
