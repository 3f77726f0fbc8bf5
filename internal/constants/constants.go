// Package constants holds the fixed numeric and closed-set values that drive
// VAD segmentation, aggregation, and hallucination filtering. Values are
// taken verbatim from original_source/config.py.
package constants

// SampleRate is the PCM sample rate (Hz) produced by the decoder and
// consumed by every downstream pipeline stage.
const SampleRate = 16000

// VADFrameMs is the frame duration (ms) the VAD engine classifies at a time.
const VADFrameMs = 30

// VADBytesPerFrame is the number of PCM bytes in one VAD frame:
// (SampleRate * VADFrameMs) / 1000 * 2 bytes/sample.
const VADBytesPerFrame = (SampleRate * VADFrameMs) / 1000 * 2

// DefaultVADAggressiveness matches the original VAD_AGGRESSIVENESS setting.
const DefaultVADAggressiveness = 3

// DefaultSilenceThresholdSeconds is the default silence duration that ends
// an utterance, overridable per session via a "config" message.
const DefaultSilenceThresholdSeconds = 0.8

// DefaultMinAudioDurationSeconds is the minimum utterance length submitted
// to the transcriber.
const DefaultMinAudioDurationSeconds = 1.2

// TranslationTimeoutSeconds bounds how long the aggregator waits after the
// last transcript arrival before force-flushing on a timeout (subject to
// MinLengthForTimeoutTranslation).
const TranslationTimeoutSeconds = 1.5

// MinLengthForTimeoutTranslation is the minimum buffered rune count required
// for a timeout-triggered flush to fire; shorter buffers keep waiting for a
// sentence terminator or connecting-word boundary instead.
const MinLengthForTimeoutTranslation = 5

// ReplayCacheCapacity is the maximum number of broadcast messages retained
// for replay to newly connected viewers.
const ReplayCacheCapacity = 8

// ConnectingWords is the closed set of Korean discourse connectives that
// mark the buffer as semantically incomplete, because the sentence is very
// likely to continue. They suppress a timeout flush only; a punctuation
// flush on a sentence terminator is not gated on them.
var ConnectingWords = []string{
	"그리고", "그래서", "그러나", "하지만", "그런데", "또한", "또는", "즉", "및",
	"대해", "따라", "위해", "통해", "관련", "대한", "관해", "대하여", "비해", "따르면",
}

// ConnectingEndings is the closed set of Korean verb/noun endings that
// indicate the current clause is not yet grammatically complete.
var ConnectingEndings = []string{
	"고", "하며", "면서", "는데", "지만", "하고", "에서", "에게", "한테", "부터",
	"까지", "으로", "로", "인데", "해도", "해서", "했고", "하는", "하던", "거나",
	"든지", "든가", "으며", "다가", "어서", "니까", "ㄹ수록", "더라도", "어야",
	"은데", "ㄴ데", "구요", "고요", "를", "을", "가", "이", "는", "은", "의", "와", "과",
}

// SentenceTerminators is the closed set of Korean sentence-final endings
// that trigger a flush when the aggregated buffer ends with one
// (ConnectingWords/ConnectingEndings do not override it).
var SentenceTerminators = []string{
	"습니다.", "니다.", "까요?", "이죠?", "데요!", "하죠.", "시오.",
}

// HallucinationBlacklist lists transcript phrases known to be
// whisper-family hallucinations on silence/noise input. An utterance is
// discarded before aggregation when its trimmed text contains one of these
// phrases AND is not much longer than the phrase itself (see
// transcribe.IsHallucination) -- a short transcript containing the phrase is
// almost certainly the hallucination alone, while a long one containing it
// as a substring is probably real speech that happens to include it.
var HallucinationBlacklist = []string{
	"감사합니다",
	"시청해주셔서 감사합니다",
	"한국어 음성 대화",
	"다음 영상에서 만나요.",
}
