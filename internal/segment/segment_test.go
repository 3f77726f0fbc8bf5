package segment_test

import (
	"context"
	"testing"

	"github.com/xenolive/liveasr/internal/constants"
	"github.com/xenolive/liveasr/internal/segment"
	"github.com/xenolive/liveasr/pkg/provider/vad"
	vadmock "github.com/xenolive/liveasr/pkg/provider/vad/mock"
)

func testConfig() segment.Config {
	return segment.Config{
		SilenceThresholdSeconds: 0.06, // 2 VAD frames at 30ms
		MinAudioDurationSeconds: 0,
		Aggressiveness:          constants.DefaultVADAggressiveness,
	}
}

func frame() []byte {
	return make([]byte, constants.VADBytesPerFrame)
}

func TestSegmenterEmitsUtteranceAfterSilence(t *testing.T) {
	sess := &vadmock.Session{}
	engine := &vadmock.Engine{Session: sess}
	seg, err := segment.New(context.Background(), "test-stream", engine, testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer seg.Close()

	if len(engine.NewSessionCalls) != 1 {
		t.Fatalf("expected exactly one NewSession call, got %d", len(engine.NewSessionCalls))
	}

	sess.EventResult = vad.VADEvent{Type: vad.VADSpeechStart}
	if err := seg.Write(frame()); err != nil {
		t.Fatalf("Write speech frame: %v", err)
	}
	sess.EventResult = vad.VADEvent{Type: vad.VADSpeechContinue}
	if err := seg.Write(frame()); err != nil {
		t.Fatalf("Write speech frame: %v", err)
	}

	sess.EventResult = vad.VADEvent{Type: vad.VADSilence}
	if err := seg.Write(frame()); err != nil {
		t.Fatalf("Write silence frame: %v", err)
	}
	if err := seg.Write(frame()); err != nil {
		t.Fatalf("Write silence frame: %v", err)
	}
	if err := seg.Write(frame()); err != nil {
		t.Fatalf("Write silence frame: %v", err)
	}

	select {
	case utt := <-seg.Utterances():
		if len(utt.PCM) == 0 {
			t.Fatal("expected non-empty utterance PCM")
		}
	default:
		t.Fatal("expected an utterance to be emitted after sustained silence")
	}
}

func TestSegmenterDropsShortUtterances(t *testing.T) {
	sess := &vadmock.Session{}
	engine := &vadmock.Engine{Session: sess}
	cfg := testConfig()
	cfg.MinAudioDurationSeconds = 10 // unreasonably long, so nothing ever qualifies
	seg, err := segment.New(context.Background(), "test-stream", engine, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer seg.Close()

	sess.EventResult = vad.VADEvent{Type: vad.VADSpeechStart}
	seg.Write(frame())
	sess.EventResult = vad.VADEvent{Type: vad.VADSilence}
	seg.Write(frame())
	seg.Write(frame())
	seg.Write(frame())

	select {
	case <-seg.Utterances():
		t.Fatal("did not expect an utterance shorter than MinAudioDurationSeconds to be emitted")
	default:
	}
}

func TestSegmenterResetDiscardsInProgressSpeech(t *testing.T) {
	sess := &vadmock.Session{}
	engine := &vadmock.Engine{Session: sess}
	seg, err := segment.New(context.Background(), "test-stream", engine, testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer seg.Close()

	sess.EventResult = vad.VADEvent{Type: vad.VADSpeechStart}
	seg.Write(frame())
	seg.Reset()

	if sess.ResetCallCount != 1 {
		t.Fatalf("expected underlying VAD session Reset to be called once, got %d", sess.ResetCallCount)
	}

	sess.EventResult = vad.VADEvent{Type: vad.VADSilence}
	seg.Write(frame())
	seg.Write(frame())
	seg.Write(frame())

	select {
	case <-seg.Utterances():
		t.Fatal("did not expect an utterance after Reset discarded in-progress speech")
	default:
	}
}
