// Package passage holds the retrieval unit derived from a permit record.
package passage

// Passage is a bounded chunk of text derived from exactly one record.
// The record reference is a back-reference, not ownership.
type Passage struct {
	id         string
	recordID   string
	recordName string
	agency     string
	category   string
	text       string
}

// New creates a Passage.
func New(id, recordID, recordName, agency, category, text string) Passage {
	return Passage{
		id:         id,
		recordID:   recordID,
		recordName: recordName,
		agency:     agency,
		category:   category,
		text:       text,
	}
}

// ID returns the passage identifier, unique within one index build.
func (p *Passage) ID() string { return p.id }

// RecordID returns the source record identifier.
func (p *Passage) RecordID() string { return p.recordID }

// RecordName returns the source record display name.
func (p *Passage) RecordName() string { return p.recordName }

// Agency returns the full name of the issuing agency.
func (p *Passage) Agency() string { return p.agency }

// Category returns the source record category.
func (p *Passage) Category() string { return p.category }

// Text returns the chunk text.
func (p *Passage) Text() string { return p.text }
