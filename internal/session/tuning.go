package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// tuningPath returns the path uploads/{streamId}.json is read from and
// written to, matching the original's f"uploads/{self.stream_id}.json".
func tuningPath(uploadsDir, streamID string) string {
	return filepath.Join(uploadsDir, streamID+".json")
}

// loadTuning reads a session's persisted ASR engine parameters
// (whisperOptions). A missing file is not an error: it returns (nil, nil),
// leaving the caller to fall back to its configured defaults, matching the
// original's "파일이 없습니다" branch.
func loadTuning(uploadsDir, streamID string) (map[string]any, error) {
	path := tuningPath(uploadsDir, streamID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading tuning file: %w", err)
	}
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("decoding tuning file: %w", err)
	}
	return params, nil
}

// saveTuning persists params to uploads/{streamId}.json, pretty-printed, the
// same shape json.dump(..., ensure_ascii=False, indent=2) produced. Go's
// encoding/json never escapes non-ASCII runes outside of HTML-special
// characters, so no ensure_ascii-equivalent flag is needed.
func saveTuning(uploadsDir, streamID string, params map[string]any) error {
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		return fmt.Errorf("creating uploads dir: %w", err)
	}
	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tuning file: %w", err)
	}
	path := tuningPath(uploadsDir, streamID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing tuning file: %w", err)
	}
	return nil
}
