// Package wire defines the JSON message schemas exchanged over the
// controller and viewer WebSockets, matching spec.md §6 exactly.
package wire

// Envelope is the minimal shape every inbound or outbound message satisfies:
// a "type" discriminator selecting how the rest of the payload is decoded.
type Envelope struct {
	Type string `json:"type"`
}

// ---- controller → server -----------------------------------------------

// StreamStart is sent by the controller to (re)start the decode pipeline for
// the current stream. Per spec.md §9 this does not clear the aggregation
// buffer; only the decoder/segmenter/transcriber pipeline is torn down and
// recreated.
type StreamStart struct {
	Type string `json:"type"` // "stream_start"
}

// Tuning merges an arbitrary set of ASR engine parameters (whisperOptions,
// e.g. beam size or temperature) into the session. Params is opaque to the
// server: it is merged key by key into the persisted options map and handed
// to the transcriber unchanged.
type Tuning struct {
	Type   string         `json:"type"` // "tuning"
	Params map[string]any `json:"params"`
}

// ConfigUpdate is sent by the controller to change the target-language set,
// silence threshold, and/or active translation engine. It is also the shape
// replayed first to any newly connected viewer (with only Languages set).
// It is not what uploads/{streamId}.json holds; that file stores the
// session's whisperOptions map.
type ConfigUpdate struct {
	Type              string   `json:"type"` // "config"
	Languages         []string `json:"languages"`
	SilenceThreshold  float64  `json:"silence_threshold,omitempty"`
	TranslationEngine string   `json:"translation_engine,omitempty"`
}

// ---- server → controller -------------------------------------------------

// SessionInit is sent once to a controller immediately after it connects,
// carrying the persisted (or default) settings for the stream.
type SessionInit struct {
	Type     string          `json:"type"` // "session_init"
	Settings SessionSettings `json:"settings"`
}

// SessionSettings is the settings payload nested inside a SessionInit
// message.
type SessionSettings struct {
	SilenceThreshold  float64        `json:"silence_threshold"`
	TranslationEngine string         `json:"translation_engine"`
	WhisperParams     map[string]any `json:"whisper_params"`
}

// TuningAck acknowledges a Tuning message.
type TuningAck struct {
	Type    string `json:"type"` // "tuning_ack"
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ---- server → controller & viewers ---------------------------------------

// InterimResult carries a non-final partial transcript, for UI activity
// indicators only; it is never cached for replay.
type InterimResult struct {
	Type string `json:"type"` // "interim_result"
	Text string `json:"text"`
}

// FinalResult carries a flushed, aggregated Korean transcript chunk. ID is a
// freshly minted identifier referenced by this result's subsequent
// TranslationResult children. It is cached for replay.
type FinalResult struct {
	Type     string `json:"type"` // "final_result"
	Original string `json:"original"`
	ID       string `json:"id"`
}

// TranslationResult carries one language's translation of the FinalResult
// identified by OriginalID. One is broadcast per configured target
// language. It is cached for replay alongside its corresponding
// FinalResult.
type TranslationResult struct {
	Type       string `json:"type"` // "translation_result"
	OriginalID string `json:"original_id"`
	Lang       string `json:"lang"`
	Text       string `json:"text"`
}
