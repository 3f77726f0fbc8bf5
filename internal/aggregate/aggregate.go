// Package aggregate buffers incremental transcript text from
// internal/transcribe into complete sentences, deciding when a buffer is
// ready to be translated and broadcast as a "final_result". The flush
// policy mirrors the original _text_processing_task: a sentence-terminator
// ending triggers a flush almost immediately unless more text arrives
// within a short settle window, while a quiet buffer is eventually flushed
// on a timeout regardless of punctuation, provided it is long enough and
// does not end mid-clause.
package aggregate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/xenolive/liveasr/internal/constants"
)

// punctuationSettleDelay is how long the aggregator waits after a
// sentence-terminator ending before flushing, to allow a same-breath
// continuation to arrive first.
const punctuationSettleDelay = 300 * time.Millisecond

// timeoutPollInterval is how often the background timeout watcher checks
// whether the buffer has gone quiet long enough to force a flush.
const timeoutPollInterval = 500 * time.Millisecond

// Flush is a completed buffer ready for translation and broadcast.
type Flush struct {
	Text   string
	Reason string // "punctuation" or "timeout"
}

// Aggregator accumulates transcript fragments and emits Flush events on its
// output channel when the buffered text is ready to be finalized.
type Aggregator struct {
	logger *slog.Logger

	mu           sync.Mutex
	buffer       string
	lastReceived time.Time
	generation   int

	out chan Flush
}

// New creates an Aggregator. Run must be called to start its background
// timeout watcher.
func New(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger, out: make(chan Flush, 4)}
}

// Flushes returns the channel of completed buffers. Closed when Run's
// context is cancelled.
func (a *Aggregator) Flushes() <-chan Flush {
	return a.out
}

// Write appends text to the buffer (space-joined with any existing
// content) and returns the buffer's current trimmed contents for immediate
// "interim_result" broadcast. If the buffer now ends with a sentence
// terminator, a settle-window flush check is scheduled automatically.
func (a *Aggregator) Write(text string) string {
	a.mu.Lock()
	if a.buffer != "" && text != "" {
		a.buffer += " "
	}
	a.buffer += text
	a.buffer = strings.TrimSpace(a.buffer)
	a.lastReceived = time.Now()
	a.generation++
	gen := a.generation
	interim := a.buffer
	endsWithTerminator := hasSuffixAny(a.buffer, constants.SentenceTerminators)
	a.mu.Unlock()

	if endsWithTerminator {
		go a.schedulePunctuationFlush(gen)
	}
	return interim
}

// schedulePunctuationFlush waits out the settle window and flushes with
// reason "punctuation" if no newer text has arrived since gen was
// observed. Unlike a timeout flush, a punctuation flush is not gated on
// semantic completeness: the original only applied that check to the
// quiet-buffer timeout path.
func (a *Aggregator) schedulePunctuationFlush(gen int) {
	time.Sleep(punctuationSettleDelay)

	a.mu.Lock()
	if a.generation != gen || a.buffer == "" {
		a.mu.Unlock()
		return
	}
	text := a.buffer
	a.resetLocked()
	a.mu.Unlock()

	a.emit(Flush{Text: text, Reason: "punctuation"})
}

// Run starts the background timeout watcher, which periodically flushes a
// buffer that has gone quiet for TranslationTimeoutSeconds, is long enough,
// and does not end mid-clause. It returns when ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(timeoutPollInterval)
	defer ticker.Stop()
	defer close(a.out)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.checkTimeoutFlush()
		}
	}
}

func (a *Aggregator) checkTimeoutFlush() {
	a.mu.Lock()
	if a.buffer == "" || a.lastReceived.IsZero() {
		a.mu.Unlock()
		return
	}
	elapsed := time.Since(a.lastReceived)
	isTimeout := elapsed.Seconds() > constants.TranslationTimeoutSeconds
	isLongEnough := len([]rune(a.buffer)) >= constants.MinLengthForTimeoutTranslation
	if !isTimeout || !isLongEnough || isSemanticallyIncomplete(a.buffer) {
		a.mu.Unlock()
		return
	}
	text := a.buffer
	a.resetLocked()
	a.mu.Unlock()

	a.emit(Flush{Text: text, Reason: "timeout"})
}

// resetLocked clears the buffer. Callers must hold a.mu.
func (a *Aggregator) resetLocked() {
	a.buffer = ""
	a.lastReceived = time.Time{}
}

// Reset clears the buffer without emitting a flush, discarding any
// in-progress sentence. A "stream_start" message does not call it: the
// session's pipeline restart leaves the aggregator's buffer intact.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
	a.generation++
}

func (a *Aggregator) emit(f Flush) {
	select {
	case a.out <- f:
	default:
		// Consumer is not keeping up; an undelivered flush would otherwise
		// block the punctuation goroutine or the timeout ticker forever.
		a.logger.Warn("flush dropped, downstream consumer too slow", "reason", f.Reason)
	}
}

// hasSuffixAny reports whether s ends with any of suffixes.
func hasSuffixAny(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

// isSemanticallyIncomplete reports whether buffer's last whitespace-
// delimited word indicates the sentence is grammatically unfinished: either
// it ends with a known connecting-clause suffix, or it is itself one of the
// closed-set connecting words.
func isSemanticallyIncomplete(buffer string) bool {
	fields := strings.Fields(buffer)
	if len(fields) == 0 {
		return false
	}
	lastWord := fields[len(fields)-1]

	for _, w := range constants.ConnectingWords {
		if lastWord == w {
			return true
		}
	}
	for _, e := range constants.ConnectingEndings {
		if strings.HasSuffix(lastWord, e) {
			return true
		}
	}
	return false
}
