package textfilter

import (
	"strings"
	"unicode"
)

// FirstSentence returns text up to and including the first sentence
// terminator that is followed by whitespace or the end of input.
func FirstSentence(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i == len(runes)-1 || unicode.IsSpace(runes[i+1]) {
			return string(runes[:i+1])
		}
	}
	return text
}

// ClampWords keeps at most max whitespace-separated words.
func ClampWords(text string, max int) string {
	words := strings.Fields(text)
	if max <= 0 || len(words) <= max {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:max], " ")
}

// Sanitizer normalizes generated narrative text.
type Sanitizer struct {
	maxWords int
	filter   *ProfanityFilter
}

// NewSanitizer returns a Sanitizer clamping to maxWords. The profanity filter
// is applied only when the rating calls for it.
func NewSanitizer(maxWords int, rating string) *Sanitizer {
	s := &Sanitizer{maxWords: maxWords}
	if ShouldFilterContent(rating) {
		s.filter = NewProfanityFilter()
	}
	return s
}

// Clean trims wrapping quotes and whitespace, keeps the first sentence, and
// clamps its length. It returns "" when nothing usable remains.
func (s *Sanitizer) Clean(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "\"'`“”")
	text = ClampWords(FirstSentence(text), s.maxWords)
	if s.filter != nil {
		text = s.filter.FilterText(text)
	}
	return strings.TrimSpace(text)
}
