package textfilter

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// replacements maps filtered words to family-friendly alternatives.
var replacements = map[string]string{
	"fuck":         "fudge",
	"shit":         "shoot",
	"damn":         "dang",
	"hell":         "heck",
	"ass":          "butt",
	"bitch":        "jerk",
	"bastard":      "jerk",
	"crap":         "crud",
	"piss":         "ticked",
	"dick":         "jerk",
	"whore":        "[censored]",
	"slut":         "[censored]",
	"motherfucker": "mother-trucker",
	"goddamn":      "gosh-dang",
	"asshole":      "jerk",
	"dumbass":      "dummy",
	"jackass":      "jerk",
	"bullshit":     "baloney",
	"horseshit":    "nonsense",
	"shithead":     "jerk",
	"prick":        "jerk",
	"douchebag":    "jerk",
}

// ProfanityFilter replaces profanity with milder words.
type ProfanityFilter struct {
	re    *regexp.Regexp
	title cases.Caser
}

// NewProfanityFilter compiles every filtered word into one alternation,
// longest first so compound words win over their prefixes.
func NewProfanityFilter() *ProfanityFilter {
	words := make([]string, 0, len(replacements))
	for w := range replacements {
		words = append(words, regexp.QuoteMeta(w))
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	return &ProfanityFilter{
		re:    regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)\b`),
		title: cases.Title(language.English),
	}
}

// FilterText replaces each filtered word, keeping the original's casing.
func (pf *ProfanityFilter) FilterText(text string) string {
	return pf.re.ReplaceAllStringFunc(text, func(match string) string {
		replacement, ok := replacements[strings.ToLower(match)]
		if !ok {
			return match
		}
		return pf.preserveCase(match, replacement)
	})
}

// ContainsProfanity reports whether text has any filtered word.
func (pf *ProfanityFilter) ContainsProfanity(text string) bool {
	return pf.re.MatchString(text)
}

func (pf *ProfanityFilter) preserveCase(original, replacement string) string {
	switch {
	case original == "":
		return replacement
	case strings.ToUpper(original) == original:
		return strings.ToUpper(replacement)
	case strings.ToLower(original) == original:
		return strings.ToLower(replacement)
	case pf.title.String(strings.ToLower(original)) == original:
		return pf.title.String(replacement)
	}

	// Mixed case: copy casing rune by rune.
	orig := []rune(original)
	out := []rune(replacement)
	for i, r := range out {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out[i] = unicode.ToUpper(r)
		} else {
			out[i] = unicode.ToLower(r)
		}
	}
	return string(out)
}

// ShouldFilterContent determines if content should be filtered based on rating.
func ShouldFilterContent(rating string) bool {
	switch strings.ToUpper(strings.TrimSpace(rating)) {
	case "G", "PG", "PG13", "PG-13":
		return true
	default:
		return false
	}
}
