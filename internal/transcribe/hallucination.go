package transcribe

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/xenolive/liveasr/internal/constants"
)

// hallucinationLengthSlack bounds how much longer than the blacklisted
// phrase a transcript may be while still being treated as that
// hallucination rather than real speech which happens to contain it.
const hallucinationLengthSlack = 5

// hallucinationSimilarityThreshold is the Jaro-Winkler similarity above
// which a transcript is logged as a likely near-miss hallucination. This is
// diagnostic only: it never suppresses a transcript, unlike the
// contains-plus-length blacklist match in IsHallucination.
const hallucinationSimilarityThreshold = 0.92

// IsHallucination reports whether text is one of the known whisper-family
// hallucination phrases that recur on silence or background noise input.
// text is flagged when it contains a blacklisted phrase and is not much
// longer than the phrase itself; a long transcript that merely contains a
// blacklisted phrase as a substring is treated as real speech.
func IsHallucination(text string) bool {
	trimmed := strings.TrimSpace(text)
	trimmedLen := utf8.RuneCountInString(trimmed)
	for _, phrase := range constants.HallucinationBlacklist {
		if strings.Contains(trimmed, phrase) && trimmedLen < utf8.RuneCountInString(phrase)+hallucinationLengthSlack {
			return true
		}
	}
	logNearMisses(trimmed)
	return false
}

// logNearMisses emits a debug log when text is similar to, but does not
// exactly equal, a blacklisted phrase. This surfaces new hallucination
// variants for the blacklist to be extended with, without risking
// false-positive suppression of real transcripts.
func logNearMisses(text string) {
	if text == "" {
		return
	}
	for _, phrase := range constants.HallucinationBlacklist {
		score := matchr.JaroWinkler(text, phrase, true)
		if score >= hallucinationSimilarityThreshold {
			slog.Debug("transcript resembles a known hallucination phrase",
				"text", text, "phrase", phrase, "similarity", score)
		}
	}
}
