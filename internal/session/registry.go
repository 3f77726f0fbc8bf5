package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/xenolive/liveasr/internal/decode"
	"github.com/xenolive/liveasr/internal/fanout"
	"github.com/xenolive/liveasr/internal/transcribe"
	"github.com/xenolive/liveasr/internal/workerpool"
	"github.com/xenolive/liveasr/pkg/provider/vad"
)

// Registry holds every active stream's Session, creating one on first
// reference and dropping it once both its controller and viewers have
// disconnected. It is the Go counterpart to original_source/
// stream_manager.py's StreamManager.
type Registry struct {
	newSessionConfig func() Config

	mu       sync.Mutex
	sessions map[string]*Session
}

// Deps bundles the shared, stream-independent dependencies every Session
// created by this Registry is built with.
type Deps struct {
	ASRTranscriber    *transcribe.Transcriber
	TranscribePool    *workerpool.Pool
	VADEngine         vad.Engine
	DecoderFactory    decode.Factory
	Translators       map[string]*fanout.Dispatcher
	DefaultEngine     string
	BroadcastCapacity int
	UploadsDir        string
	Aggressiveness    int
	Logger            *slog.Logger
}

// NewRegistry creates an empty Registry. Every session it creates shares
// deps's ASR/VAD/translator/decoder dependencies.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		newSessionConfig: func() Config {
			return Config{
				ASRTranscriber:    deps.ASRTranscriber,
				TranscribePool:    deps.TranscribePool,
				VADEngine:         deps.VADEngine,
				DecoderFactory:    deps.DecoderFactory,
				Translators:       deps.Translators,
				DefaultEngine:     deps.DefaultEngine,
				BroadcastCapacity: deps.BroadcastCapacity,
				UploadsDir:        deps.UploadsDir,
				Aggressiveness:    deps.Aggressiveness,
				Logger:            deps.Logger,
			}
		},
	}
}

// GetOrCreate returns the Session for streamID, creating it (and starting
// its aggregator) on first reference, matching get_or_create_session.
func (r *Registry) GetOrCreate(_ context.Context, streamID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[streamID]; ok {
		return s
	}
	s := New(streamID, r.newSessionConfig())
	r.sessions[streamID] = s
	return s
}

// RemoveIfEmpty drops and closes streamID's Session if it currently has no
// controller and no viewers attached, matching remove_session_if_empty. Safe
// to call for a streamID with no session.
func (r *Registry) RemoveIfEmpty(streamID string) {
	r.mu.Lock()
	s, ok := r.sessions[streamID]
	if !ok || !s.IsEmpty() {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, streamID)
	r.mu.Unlock()

	if err := s.Close(); err != nil {
		s.logger.Warn("closing removed session", "error", err)
	}
}

// Count returns the number of currently tracked sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
