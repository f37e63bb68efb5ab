// Package chunker turns permit records into bounded-size passages.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/district-tools/permitnav/internal/domain/passage"
	"github.com/district-tools/permitnav/internal/domain/record"
)

// DefaultMaxWords bounds a single passage. Records under the bound produce
// exactly one passage covering every searchable field.
const DefaultMaxWords = 200

var sentenceSplitter = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// Chunker renders a record's fields as labeled text and packs them into
// passages of at most maxWords words. Chunking is deterministic: an
// unchanged record always yields the same passages.
type Chunker struct {
	maxWords int
}

// New creates a Chunker. maxWords <= 0 falls back to DefaultMaxWords.
func New(maxWords int) *Chunker {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	return &Chunker{maxWords: maxWords}
}

// Chunk produces the ordered passages for one record. The concatenation of
// the returned texts reconstructs the labeled rendering of the record,
// modulo whitespace between sections.
func (c *Chunker) Chunk(r record.Record, agency record.Agency) []passage.Passage {
	sections := renderSections(r, agency)

	// Greedy packing: sections stay whole unless a single section exceeds
	// the budget, in which case it is split at sentence boundaries.
	var chunks []string
	var current []string
	currentWords := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = nil
			currentWords = 0
		}
	}

	for _, section := range sections {
		for _, piece := range splitSection(section, c.maxWords) {
			w := wordCount(piece)
			if currentWords > 0 && currentWords+w > c.maxWords {
				flush()
			}
			current = append(current, piece)
			currentWords += w
		}
	}
	flush()

	passages := make([]passage.Passage, len(chunks))
	for i, text := range chunks {
		passages[i] = passage.New(
			fmt.Sprintf("%s:%03d", r.ID(), i),
			r.ID(), r.Name(), agency.Name(), r.Category(), text,
		)
	}
	return passages
}

// renderSections mirrors the original labeled layout of the permit database.
func renderSections(r record.Record, agency record.Agency) []string {
	sections := []string{
		"Permit: " + r.Name(),
	}
	if r.Category() != "" {
		sections = append(sections, "Category: "+r.Category())
	}
	sections = append(sections, "Agency: "+agency.Name())
	if agency.Formerly() != "" {
		sections = append(sections, "(Formerly: "+agency.Formerly()+")")
	}
	sections = append(sections, "Description: "+r.Description())

	if r.Requirements() != "" {
		sections = append(sections, "Requirements: "+r.Requirements())
	}
	if r.Fees() != "" {
		sections = append(sections, "Fees: "+r.Fees())
	}
	if r.ProcessingTime() != "" {
		sections = append(sections, "Processing Time: "+r.ProcessingTime())
	}
	if r.HowToApply() != "" {
		sections = append(sections, "How to Apply: "+r.HowToApply())
	}
	if r.ApplyURL() != "" {
		sections = append(sections, "Application URL: "+r.ApplyURL())
	}
	if r.Notes() != "" {
		sections = append(sections, "Notes: "+r.Notes())
	}
	if len(r.RelatedPermits()) > 0 {
		sections = append(sections, "Related Permits: "+strings.Join(r.RelatedPermits(), ", "))
	}
	return sections
}

// splitSection returns the section whole when it fits, otherwise sentence
// groups each within the budget. A single over-budget sentence is kept
// intact: splitting never happens mid-word.
func splitSection(section string, maxWords int) []string {
	if wordCount(section) <= maxWords {
		return []string{section}
	}

	sentences := sentenceSplitter.FindAllString(section, -1)
	if len(sentences) == 0 {
		return []string{section}
	}
	// Re-attach any trailing text the splitter left behind (no final punctuation).
	joined := strings.Join(sentences, "")
	if rest := strings.TrimSpace(strings.TrimPrefix(section, joined)); rest != "" {
		sentences = append(sentences, rest)
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}

	var pieces []string
	var current []string
	currentWords := 0
	for _, s := range sentences {
		w := wordCount(s)
		if currentWords > 0 && currentWords+w > maxWords {
			pieces = append(pieces, strings.Join(current, " "))
			current = nil
			currentWords = 0
		}
		current = append(current, s)
		currentWords += w
	}
	if len(current) > 0 {
		pieces = append(pieces, strings.Join(current, " "))
	}
	return pieces
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
