// Package observe provides application-wide observability primitives for
// liveasr: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all liveasr metrics.
const meterName = "github.com/xenolive/liveasr"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// DecodeDuration tracks how long a decoder takes to hand back PCM for a
	// single incoming chunk.
	DecodeDuration metric.Float64Histogram

	// SegmentDuration tracks the wall-clock length of a completed utterance
	// from VAD speech-start to silence-triggered flush.
	SegmentDuration metric.Float64Histogram

	// TranscribeDuration tracks ASR transcription latency per utterance.
	TranscribeDuration metric.Float64Histogram

	// TranslateDuration tracks a single translation provider call's latency.
	TranslateDuration metric.Float64Histogram

	// BroadcastFanoutDuration tracks how long it takes to fan a message out
	// to every connected viewer.
	BroadcastFanoutDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// UtterancesFinalized counts utterances flushed to a final_result message.
	UtterancesFinalized metric.Int64Counter

	// TranslationsDispatched counts translation_result messages produced,
	// by target language.
	TranslationsDispatched metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live streams with an active
	// controller or at least one viewer.
	ActiveSessions metric.Int64UpDownCounter

	// ActiveViewers tracks the number of connected viewer WebSocket
	// connections across all streams.
	ActiveViewers metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for the decode/segment/transcribe/translate/broadcast pipeline.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.DecodeDuration, err = m.Float64Histogram("liveasr.decode.duration",
		metric.WithDescription("Latency of decoding one incoming audio chunk to PCM."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SegmentDuration, err = m.Float64Histogram("liveasr.segment.duration",
		metric.WithDescription("Wall-clock length of a completed utterance segment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscribeDuration, err = m.Float64Histogram("liveasr.transcribe.duration",
		metric.WithDescription("Latency of ASR transcription per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranslateDuration, err = m.Float64Histogram("liveasr.translate.duration",
		metric.WithDescription("Latency of a single translation provider call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BroadcastFanoutDuration, err = m.Float64Histogram("liveasr.broadcast.fanout.duration",
		metric.WithDescription("Latency of fanning one message out to all viewers of a stream."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("liveasr.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.UtterancesFinalized, err = m.Int64Counter("liveasr.utterances.finalized",
		metric.WithDescription("Total utterances flushed as a final_result message."),
	); err != nil {
		return nil, err
	}
	if met.TranslationsDispatched, err = m.Int64Counter("liveasr.translations.dispatched",
		metric.WithDescription("Total translation_result messages produced, by target language."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("liveasr.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("liveasr.active_sessions",
		metric.WithDescription("Number of streams with an active controller or viewer."),
	); err != nil {
		return nil, err
	}
	if met.ActiveViewers, err = m.Int64UpDownCounter("liveasr.active_viewers",
		metric.WithDescription("Number of connected viewer WebSocket connections across all streams."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("liveasr.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordUtteranceFinalized is a convenience method that records a finalized
// utterance counter increment.
func (m *Metrics) RecordUtteranceFinalized(ctx context.Context, streamID string) {
	m.UtterancesFinalized.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stream_id", streamID)),
	)
}

// RecordTranslationDispatched is a convenience method that records a
// translation_result counter increment for a target language.
func (m *Metrics) RecordTranslationDispatched(ctx context.Context, language string) {
	m.TranslationsDispatched.Add(ctx, 1,
		metric.WithAttributes(attribute.String("language", language)),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
