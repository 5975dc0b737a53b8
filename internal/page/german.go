package page

import "strings"

// germanDiacritics are characters near-exclusive to German text.
const germanDiacritics = "äöüßÄÖÜ"

// functionWords is a closed set of high-frequency German function words.
// Two distinct hits are required because several of them ("die", "bei",
// "war") also occur in other languages.
var functionWords = map[string]bool{
	"der": true, "die": true, "das": true, "und": true, "ist": true,
	"nicht": true, "ein": true, "eine": true, "einen": true, "mit": true,
	"auf": true, "von": true, "zu": true, "den": true, "dem": true,
	"des": true, "sich": true, "auch": true, "werden": true, "wird": true,
	"sind": true, "aber": true, "oder": true, "dass": true, "wenn": true,
	"wir": true, "ich": true, "es": true, "im": true, "am": true,
	"bei": true, "nach": true, "aus": true, "durch": true, "als": true,
	"haben": true, "hat": true, "kann": true, "wie": true, "noch": true,
	"sie": true, "man": true, "nur": true, "sein": true, "einem": true,
	"einer": true, "diese": true, "dieser": true, "dieses": true,
}

// LooksGerman reports whether text is plausibly German: it contains a
// German diacritic, or at least two distinct function words. This is a
// heuristic, not a classifier; false positives and negatives are expected.
// The only guarantee is determinism for identical input.
func LooksGerman(text string) bool {
	if strings.ContainsAny(text, germanDiacritics) {
		return true
	}

	hits := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?()[]{}\"'«»„“”–-")
		if functionWords[word] {
			hits[word] = true
			if len(hits) >= 2 {
				return true
			}
		}
	}
	return false
}
