package shape

import (
	"unicode"

	"github.com/go-text/typesetting/language"
	"golang.org/x/text/unicode/bidi"
)

// bidiRun is a contiguous span of a paragraph sharing one embedding level,
// in logical order.
type bidiRun struct {
	runes []rune
	// start is the rune offset of the run within the paragraph.
	start int
	rtl   bool
}

// splitRuns splits a paragraph into logical-order bidi runs using the
// Unicode bidirectional algorithm. A purely one-directional paragraph
// yields a single run.
func splitRuns(para []rune, base Direction) []bidiRun {
	if len(para) == 0 {
		return nil
	}

	levels := embeddingLevels(para, base)

	runs := make([]bidiRun, 0, 1)
	start := 0
	for i := 1; i <= len(para); i++ {
		if i < len(para) && levels[i] == levels[start] {
			continue
		}
		runs = append(runs, bidiRun{
			runes: para[start:i],
			start: start,
			rtl:   levels[start]%2 == 1,
		})
		start = i
	}
	return runs
}

// embeddingLevels computes a per-rune bidi embedding level for the
// paragraph. Levels collapse to 0 (LTR) and 1 (RTL); that is enough to
// order runs and pick a shaping direction.
func embeddingLevels(para []rune, base Direction) []int {
	levels := make([]int, len(para))

	defaultDir := bidi.Neutral
	if base == DirectionRTL {
		defaultDir = bidi.RightToLeft
	}

	var p bidi.Paragraph
	if _, err := p.SetString(string(para), bidi.DefaultDirection(defaultDir)); err != nil {
		return levels
	}
	ordering, err := p.Order()
	if err != nil {
		return levels
	}

	// Run.Pos returns rune indices, end inclusive.
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		level := 0
		if run.Direction() == bidi.RightToLeft {
			level = 1
		}
		startRune, endRune := run.Pos()
		for j := startRune; j <= endRune && j < len(levels); j++ {
			levels[j] = level
		}
	}
	return levels
}

// runScript returns the script of the run's first strongly scripted rune,
// defaulting to Latin for runs of digits, punctuation, and spaces.
func runScript(runes []rune) language.Script {
	for _, r := range runes {
		if unicode.IsSpace(r) || unicode.IsDigit(r) || unicode.IsPunct(r) {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}
