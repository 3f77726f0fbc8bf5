// Package session owns the per-stream pipeline: a Session wires together a
// decoder, a VAD-driven segmenter, a transcriber, a text aggregator, a
// translation fanout dispatcher, and a viewer broadcaster, and handles the
// controller WebSocket's "stream_start"/"tuning"/"config" messages. It is
// the Go counterpart to original_source/stream_manager.py's StreamSession.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/xenolive/liveasr/internal/aggregate"
	"github.com/xenolive/liveasr/internal/broadcast"
	"github.com/xenolive/liveasr/internal/constants"
	"github.com/xenolive/liveasr/internal/decode"
	"github.com/xenolive/liveasr/internal/fanout"
	"github.com/xenolive/liveasr/internal/segment"
	"github.com/xenolive/liveasr/internal/transcribe"
	"github.com/xenolive/liveasr/internal/wire"
	"github.com/xenolive/liveasr/internal/workerpool"
	"github.com/xenolive/liveasr/pkg/provider/vad"
)

// ErrControllerAlreadyConnected is returned by SetController when a
// controller is already attached. internal/transport always completes the
// WebSocket handshake first and relies on this atomic check to decide
// whether to close the new connection with policy-violation code 1008,
// matching spec.md §6's close-after-accept behavior.
var ErrControllerAlreadyConnected = errors.New("session: controller already connected")

// Controller is the narrow interface a controller WebSocket connection
// satisfies. It is deliberately the same shape as broadcast.Viewer so a
// single transport adapter type can implement both.
type Controller interface {
	Send(ctx context.Context, data []byte) error
}

// Session owns one stream's full pipeline and connection state.
type Session struct {
	streamID   string
	logger     *slog.Logger
	uploadsDir string

	asrTranscriber *transcribe.Transcriber
	transcribePool *workerpool.Pool
	vadEngine      vad.Engine
	decoderFactory decode.Factory
	translators    map[string]*fanout.Dispatcher
	broadcaster    *broadcast.Broadcaster

	baseSegmenterConfig segment.Config

	mu                  sync.Mutex
	controller          Controller
	languages           []string
	engine              string
	silenceThresholdSec float64
	whisperOptions      map[string]any

	decoder    decode.Decoder
	segmenter  *segment.Segmenter
	pipelineWG sync.WaitGroup
	cancelPipe context.CancelFunc

	aggregator     *aggregate.Aggregator
	aggregatorWG   sync.WaitGroup
	cancelAggregate context.CancelFunc

	lastTranscript string
}

// Config bundles the dependencies and defaults a Session needs.
type Config struct {
	ASRTranscriber    *transcribe.Transcriber
	TranscribePool    *workerpool.Pool
	VADEngine         vad.Engine
	DecoderFactory    decode.Factory
	Translators       map[string]*fanout.Dispatcher // keyed by engine name
	DefaultEngine     string
	BroadcastCapacity int
	UploadsDir        string
	Aggressiveness    int
	Logger            *slog.Logger
}

// New creates a Session for streamID and starts its aggregator. The decode
// pipeline itself is not started until a "stream_start" message arrives.
func New(streamID string, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("stream_id", streamID)

	pool := cfg.TranscribePool
	if pool == nil {
		pool = workerpool.New(1)
	}

	s := &Session{
		streamID:            streamID,
		logger:              logger,
		uploadsDir:          cfg.UploadsDir,
		asrTranscriber:      cfg.ASRTranscriber,
		transcribePool:      pool,
		vadEngine:           cfg.VADEngine,
		decoderFactory:      cfg.DecoderFactory,
		translators:         cfg.Translators,
		broadcaster:         broadcast.New(cfg.BroadcastCapacity, logger),
		engine:              cfg.DefaultEngine,
		silenceThresholdSec: constants.DefaultSilenceThresholdSeconds,
		whisperOptions:      map[string]any{},
		baseSegmenterConfig: segment.Config{
			SilenceThresholdSeconds: constants.DefaultSilenceThresholdSeconds,
			MinAudioDurationSeconds: constants.DefaultMinAudioDurationSeconds,
			Aggressiveness:          cfg.Aggressiveness,
		},
	}

	s.aggregator = aggregate.New(logger)
	aggCtx, cancel := context.WithCancel(context.Background())
	s.cancelAggregate = cancel
	s.aggregatorWG.Add(1)
	go func() {
		defer s.aggregatorWG.Done()
		s.aggregator.Run(aggCtx)
	}()
	s.aggregatorWG.Add(1)
	go func() {
		defer s.aggregatorWG.Done()
		s.pumpFlushes(aggCtx)
	}()

	return s
}

// Broadcaster exposes the session's viewer broadcaster so internal/transport
// can register and remove viewer connections.
func (s *Session) Broadcaster() *broadcast.Broadcaster {
	return s.broadcaster
}

// HasController reports whether a controller is currently attached.
func (s *Session) HasController() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller != nil
}

// SetController attaches c as this session's controller, loads persisted
// ASR options (whisperOptions) into the live session and transcriber, and
// sends a session_init message. Returns ErrControllerAlreadyConnected if a
// controller is already attached.
func (s *Session) SetController(ctx context.Context, c Controller) error {
	s.mu.Lock()
	if s.controller != nil {
		s.mu.Unlock()
		return ErrControllerAlreadyConnected
	}
	s.controller = c
	s.mu.Unlock()

	if saved, err := loadTuning(s.uploadsDir, s.streamID); err != nil {
		s.logger.Error("loading persisted tuning, using defaults", "error", err)
	} else if saved != nil {
		s.mu.Lock()
		for k, v := range saved {
			s.whisperOptions[k] = v
		}
		s.mu.Unlock()
		s.asrTranscriber.SetOptions(s.snapshotOptions())
	}

	s.mu.Lock()
	init := wire.SessionInit{
		Type: "session_init",
		Settings: wire.SessionSettings{
			SilenceThreshold:  s.silenceThresholdSec,
			TranslationEngine: s.engine,
			WhisperParams:     copyOptions(s.whisperOptions),
		},
	}
	s.mu.Unlock()

	payload, err := json.Marshal(init)
	if err != nil {
		return fmt.Errorf("encoding session_init: %w", err)
	}
	if err := c.Send(ctx, payload); err != nil {
		s.mu.Lock()
		s.controller = nil
		s.mu.Unlock()
		return fmt.Errorf("sending session_init: %w", err)
	}
	return nil
}

// RemoveController detaches the controller, if c is still the attached one.
func (s *Session) RemoveController(c Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controller == c {
		s.controller = nil
	}
}

// IsEmpty reports whether the session has neither a controller nor any
// viewers attached, the condition under which remove_session_if_empty drops
// a StreamSession from the manager.
func (s *Session) IsEmpty() bool {
	s.mu.Lock()
	hasController := s.controller != nil
	s.mu.Unlock()
	return !hasController && s.broadcaster.ViewerCount() == 0
}

// HandleControllerText dispatches one decoded JSON text message from the
// controller WebSocket, matching set_controller's message loop.
func (s *Session) HandleControllerText(ctx context.Context, raw []byte) error {
	var env wire.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decoding controller message: %w", err)
	}

	switch env.Type {
	case "stream_start":
		s.logger.Info("stream_start received, resetting decode pipeline")
		return s.restartPipeline(ctx)
	case "tuning":
		var msg wire.Tuning
		if err := json.Unmarshal(raw, &msg); err != nil {
			return fmt.Errorf("decoding tuning message: %w", err)
		}
		return s.applyTuning(ctx, msg)
	case "config":
		var msg wire.ConfigUpdate
		if err := json.Unmarshal(raw, &msg); err != nil {
			return fmt.Errorf("decoding config message: %w", err)
		}
		s.applyConfig(ctx, msg)
		return nil
	default:
		s.logger.Warn("ignoring unrecognized controller message type", "type", env.Type)
		return nil
	}
}

// HandleControllerAudio forwards a raw audio chunk from the controller
// WebSocket into the active decoder, if one is running.
func (s *Session) HandleControllerAudio(chunk []byte) {
	s.mu.Lock()
	d := s.decoder
	s.mu.Unlock()

	if d == nil {
		s.logger.Warn("ffmpeg process not ready, dropping audio chunk")
		return
	}
	if err := d.Write(chunk); err != nil {
		s.logger.Error("writing audio chunk to decoder", "error", err)
	}
}

// snapshotOptions returns a defensive copy of the session's current
// whisperOptions, safe to hand to the transcriber or persist without
// holding s.mu for the duration of the call.
func (s *Session) snapshotOptions() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOptions(s.whisperOptions)
}

func copyOptions(options map[string]any) map[string]any {
	cp := make(map[string]any, len(options))
	for k, v := range options {
		cp[k] = v
	}
	return cp
}

// applyTuning merges an incoming tuning message's params into the session's
// whisperOptions, pushes the merged map live to the transcriber, persists it
// to disk, and acknowledges it to the controller. Unlike "config", tuning
// never touches the segmenter: these are ASR engine parameters, not
// VAD/silence thresholds.
func (s *Session) applyTuning(ctx context.Context, msg wire.Tuning) error {
	s.mu.Lock()
	for k, v := range msg.Params {
		s.whisperOptions[k] = v
	}
	controller := s.controller
	s.mu.Unlock()

	options := s.snapshotOptions()
	s.asrTranscriber.SetOptions(options)

	ack := wire.TuningAck{Type: "tuning_ack", Status: "ok"}
	if err := saveTuning(s.uploadsDir, s.streamID, options); err != nil {
		s.logger.Error("saving tuning parameters", "error", err)
		ack.Status = "error"
		ack.Message = err.Error()
	}

	if controller == nil {
		return nil
	}
	payload, err := json.Marshal(ack)
	if err != nil {
		return fmt.Errorf("encoding tuning_ack: %w", err)
	}
	return controller.Send(ctx, payload)
}

// applyConfig updates the session's language set, silence threshold, and
// active translation engine, pushes the silence threshold live to the
// segmenter, and broadcasts the new language config to viewers, matching
// broadcast_to_viewers_and_cache's "config" handling (cache invalidation
// included, via Broadcaster.SetConfig).
func (s *Session) applyConfig(ctx context.Context, msg wire.ConfigUpdate) {
	s.mu.Lock()
	s.languages = append([]string(nil), msg.Languages...)
	if msg.TranslationEngine != "" {
		s.engine = msg.TranslationEngine
	}
	if msg.SilenceThreshold > 0 {
		s.silenceThresholdSec = msg.SilenceThreshold
	}
	languages := append([]string(nil), s.languages...)
	engine := s.engine
	silenceThreshold := s.silenceThresholdSec
	seg := s.segmenter
	s.mu.Unlock()

	if seg != nil {
		seg.SetTuning(segment.Config{
			SilenceThresholdSeconds: silenceThreshold,
			MinAudioDurationSeconds: s.baseSegmenterConfig.MinAudioDurationSeconds,
			Aggressiveness:          s.baseSegmenterConfig.Aggressiveness,
		})
	}

	s.logger.Info("config updated", "languages", languages, "engine", engine, "silence_threshold_seconds", silenceThreshold)

	out := wire.ConfigUpdate{Type: "config", Languages: languages}
	payload, err := json.Marshal(out)
	if err != nil {
		s.logger.Error("encoding config broadcast", "error", err)
		return
	}
	s.broadcaster.SetConfig(ctx, payload)
}

// restartPipeline tears down the current decoder/segmenter (if any) and
// starts a fresh pair, the same as _reset_processing_tasks. The aggregator
// is deliberately left running: its in-progress buffer survives a
// stream_start, matching internal/wire.StreamStart's documented behavior.
func (s *Session) restartPipeline(ctx context.Context) error {
	s.stopPipeline()

	s.mu.Lock()
	segCfg := segment.Config{
		SilenceThresholdSeconds: s.silenceThresholdSec,
		MinAudioDurationSeconds: s.baseSegmenterConfig.MinAudioDurationSeconds,
		Aggressiveness:          s.baseSegmenterConfig.Aggressiveness,
	}
	s.mu.Unlock()

	pipeCtx, cancel := context.WithCancel(ctx)

	d, err := s.decoderFactory(pipeCtx, s.streamID)
	if err != nil {
		cancel()
		return fmt.Errorf("creating decoder: %w", err)
	}

	seg, err := segment.New(pipeCtx, s.streamID, s.vadEngine, segCfg, s.logger)
	if err != nil {
		cancel()
		d.Close()
		return fmt.Errorf("creating segmenter: %w", err)
	}

	s.mu.Lock()
	s.decoder = d
	s.segmenter = seg
	s.cancelPipe = cancel
	s.mu.Unlock()

	s.pipelineWG.Add(2)
	go func() {
		defer s.pipelineWG.Done()
		s.pumpPCM(pipeCtx, d, seg)
	}()
	go func() {
		defer s.pipelineWG.Done()
		s.pumpUtterances(pipeCtx, seg)
	}()

	return nil
}

// stopPipeline cancels and tears down the current decoder/segmenter pair,
// if any are running. Safe to call when none are running.
func (s *Session) stopPipeline() {
	s.mu.Lock()
	cancel := s.cancelPipe
	d := s.decoder
	seg := s.segmenter
	s.decoder = nil
	s.segmenter = nil
	s.cancelPipe = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if d != nil {
		if err := d.Close(); err != nil {
			s.logger.Warn("closing decoder", "error", err)
		}
	}
	if seg != nil {
		if err := seg.Close(); err != nil {
			s.logger.Warn("closing segmenter", "error", err)
		}
	}
	s.pipelineWG.Wait()
}

// pumpPCM forwards decoded PCM chunks into the segmenter until the decoder's
// channel closes or ctx is cancelled, mirroring _read_stdout feeding
// pcm_queue into pcm_processing_task.
func (s *Session) pumpPCM(ctx context.Context, d decode.Decoder, seg *segment.Segmenter) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-d.PCM():
			if !ok {
				if err := d.Err(); err != nil {
					s.logger.Warn("decoder stopped with error", "error", err)
				}
				return
			}
			if err := seg.Write(chunk); err != nil {
				s.logger.Error("segmenter rejected PCM chunk", "error", err)
			}
		}
	}
}

// pumpUtterances transcribes each completed utterance and feeds its text
// into the aggregator, broadcasting the running interim transcript as it
// grows, mirroring pcm_processing_task's VAD-to-text_queue handoff plus
// text_consumer's interim_result broadcast.
func (s *Session) pumpUtterances(ctx context.Context, seg *segment.Segmenter) {
	for {
		select {
		case <-ctx.Done():
			return
		case utt, ok := <-seg.Utterances():
			if !ok {
				return
			}
			s.mu.Lock()
			previous := s.lastTranscript
			s.mu.Unlock()

			text, err := s.transcribePool.Do(ctx, func(ctx context.Context) (string, error) {
				return s.asrTranscriber.Transcribe(ctx, utt, previous)
			})
			if err != nil {
				s.logger.Error("transcription failed", "error", err)
				continue
			}
			if text == "" {
				continue
			}

			s.mu.Lock()
			s.lastTranscript = text
			s.mu.Unlock()

			interim := s.aggregator.Write(text)
			s.broadcastInterim(ctx, interim)
		}
	}
}

// broadcastInterim sends a running interim_result to the controller and
// viewers. Interim results are never cached.
func (s *Session) broadcastInterim(ctx context.Context, text string) {
	msg := wire.InterimResult{Type: "interim_result", Text: text}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("encoding interim_result", "error", err)
		return
	}
	s.sendToController(ctx, payload)
	s.broadcaster.BroadcastTransient(ctx, payload)
}

// pumpFlushes consumes completed buffers from the aggregator, broadcasts
// each as a final_result, and dispatches it to the session's active
// translation engine for every configured target language, broadcasting
// each translation_result as it completes. Mirrors
// trigger_translation_if_needed's finalize-then-translate sequence.
func (s *Session) pumpFlushes(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case flush, ok := <-s.aggregator.Flushes():
			if !ok {
				return
			}
			s.handleFlush(ctx, flush)
		}
	}
}

func (s *Session) handleFlush(ctx context.Context, flush aggregate.Flush) {
	s.logger.Info("flushing finalized transcript", "reason", flush.Reason, "text", flush.Text)

	id := strconv.FormatInt(time.Now().Unix(), 10)
	final := wire.FinalResult{Type: "final_result", Original: flush.Text, ID: id}
	payload, err := json.Marshal(final)
	if err != nil {
		s.logger.Error("encoding final_result", "error", err)
		return
	}
	s.sendToController(ctx, payload)
	s.broadcaster.BroadcastCacheable(ctx, payload)

	s.mu.Lock()
	languages := append([]string(nil), s.languages...)
	dispatcher := s.translators[s.engine]
	engineName := s.engine
	s.mu.Unlock()

	if len(languages) == 0 {
		return
	}
	if dispatcher == nil {
		s.logger.Warn("configured translation engine unavailable, skipping translation", "engine", engineName)
		return
	}

	for _, result := range dispatcher.Dispatch(ctx, flush.Text, languages) {
		trans := wire.TranslationResult{Type: "translation_result", OriginalID: id, Lang: result.Language, Text: result.Text}
		tp, err := json.Marshal(trans)
		if err != nil {
			s.logger.Error("encoding translation_result", "error", err, "language", result.Language)
			continue
		}
		s.sendToController(ctx, tp)
		s.broadcaster.BroadcastCacheable(ctx, tp)
	}
}

func (s *Session) sendToController(ctx context.Context, payload []byte) {
	s.mu.Lock()
	c := s.controller
	s.mu.Unlock()
	if c == nil {
		return
	}
	if err := c.Send(ctx, payload); err != nil {
		s.logger.Warn("sending to controller failed", "error", err)
	}
}

// Close tears down the session's pipeline and aggregator. Called once the
// session is removed from its registry.
func (s *Session) Close() error {
	s.stopPipeline()
	if s.cancelAggregate != nil {
		s.cancelAggregate()
	}
	s.aggregatorWG.Wait()
	return nil
}
