package world

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Alignment steers how a player's narratives are framed.
type Alignment string

const (
	AlignmentUnset             Alignment = ""
	AlignmentMerciful          Alignment = "merciful"
	AlignmentTyrannical        Alignment = "tyrannical"
	AlignmentCorruptChancellor Alignment = "corrupt_chancellor"
)

var folder = cases.Fold()

// ParseAlignment accepts any case, surrounding whitespace, and "-" or " " in
// place of "_". Blank input yields AlignmentUnset.
func ParseAlignment(s string) (Alignment, error) {
	normalized := strings.TrimSpace(folder.String(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch Alignment(normalized) {
	case AlignmentUnset:
		return AlignmentUnset, nil
	case AlignmentMerciful, AlignmentTyrannical, AlignmentCorruptChancellor:
		return Alignment(normalized), nil
	}
	return AlignmentUnset, fmt.Errorf("%w: unknown alignment %q", ErrInvalidRequest, s)
}

// Stance is the narrative framing attached to an alignment.
type Stance struct {
	// Instruction steers the generation engine.
	Instruction string
	// Clause is appended to the event description when generation fails.
	Clause string
}

var stances = map[Alignment]Stance{
	AlignmentMerciful: {
		Instruction: "Frame events with empathy; emphasize impacts on common folk and mercy.",
		Clause:      "A burden on the poor; seek relief.",
	},
	AlignmentTyrannical: {
		Instruction: "Frame events as demonstrations of order and strength. Downplay suffering.",
		Clause:      "A show of strength; dissent will fade.",
	},
	AlignmentCorruptChancellor: {
		Instruction: "Frame events as opportunities for personal gain and political leverage.",
		Clause:      "An opportunity; coffers swell for those in favor.",
	},
}

// Stance returns the stance for a, treating unset as merciful.
func (a Alignment) Stance() Stance {
	if s, ok := stances[a]; ok {
		return s
	}
	return stances[AlignmentMerciful]
}

// FallbackNarrative is the templated narrative used when generation fails.
func (a Alignment) FallbackNarrative(description string) string {
	return description + " — " + a.Stance().Clause
}
