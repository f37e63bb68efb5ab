// Package answer holds the generated answer value object.
package answer

// Source is one permit referenced by an answer. Deduplicated by record.
type Source struct {
	recordID string
	name     string
	agency   string
	score    float64
}

// NewSource creates a source reference.
func NewSource(recordID, name, agency string, score float64) Source {
	return Source{recordID: recordID, name: name, agency: agency, score: score}
}

// RecordID returns the source record identifier.
func (s *Source) RecordID() string { return s.recordID }

// Name returns the source record display name.
func (s *Source) Name() string { return s.name }

// Agency returns the full issuing agency name.
func (s *Source) Agency() string { return s.agency }

// Score returns the best similarity score among the record's passages
// that made it into the generation context.
func (s *Source) Score() float64 { return s.score }

// Answer is generated text plus the sources actually supplied as context.
type Answer struct {
	text    string
	sources []Source
}

// New creates an Answer.
func New(text string, sources []Source) Answer {
	return Answer{text: text, sources: sources}
}

// Text returns the generated answer text.
func (a *Answer) Text() string { return a.text }

// Sources returns the ordered, record-deduplicated source references.
func (a *Answer) Sources() []Source { return a.sources }
