// Package record holds the permit record value object.
package record

import (
	"fmt"
	"strings"

	"github.com/district-tools/permitnav/internal/domain"
)

// Record is one permit as published in a corpus version. Immutable after load.
type Record struct {
	id             string
	name           string
	category       string
	agencyID       string
	description    string
	requirements   string
	fees           string
	processingTime string
	howToApply     string
	notes          string
	applyURL       string
	relatedPermits []string
}

// New creates a Record, validating the required fields.
func New(id, name, category, agencyID, description string) (Record, error) {
	if strings.TrimSpace(id) == "" {
		return Record{}, fmt.Errorf("%w: record id is required", domain.ErrCorpusInvalid)
	}
	if strings.TrimSpace(name) == "" {
		return Record{}, fmt.Errorf("%w: record %q: name is required", domain.ErrCorpusInvalid, id)
	}
	if strings.TrimSpace(agencyID) == "" {
		return Record{}, fmt.Errorf("%w: record %q: agency is required", domain.ErrCorpusInvalid, id)
	}
	if strings.TrimSpace(description) == "" {
		return Record{}, fmt.Errorf("%w: record %q: description is required", domain.ErrCorpusInvalid, id)
	}
	return Record{
		id:          id,
		name:        name,
		category:    category,
		agencyID:    agencyID,
		description: description,
	}, nil
}

// WithOptional attaches the optional permit fields and returns the updated record.
func (r Record) WithOptional(
	requirements, fees, processingTime, howToApply, notes, applyURL string,
	relatedPermits []string,
) Record {
	r.requirements = requirements
	r.fees = fees
	r.processingTime = processingTime
	r.howToApply = howToApply
	r.notes = notes
	r.applyURL = applyURL
	r.relatedPermits = relatedPermits
	return r
}

// ID returns the stable permit identifier.
func (r *Record) ID() string { return r.id }

// Name returns the permit display name.
func (r *Record) Name() string { return r.name }

// Category returns the permit category.
func (r *Record) Category() string { return r.category }

// AgencyID returns the issuing agency reference.
func (r *Record) AgencyID() string { return r.agencyID }

// Description returns the free-text permit description.
func (r *Record) Description() string { return r.description }

// Requirements returns the optional requirements text.
func (r *Record) Requirements() string { return r.requirements }

// Fees returns the optional fee schedule text.
func (r *Record) Fees() string { return r.fees }

// ProcessingTime returns the optional processing time text.
func (r *Record) ProcessingTime() string { return r.processingTime }

// HowToApply returns the optional application instructions.
func (r *Record) HowToApply() string { return r.howToApply }

// Notes returns the optional notes text.
func (r *Record) Notes() string { return r.notes }

// ApplyURL returns the optional application URL.
func (r *Record) ApplyURL() string { return r.applyURL }

// RelatedPermits returns identifiers of related permits.
func (r *Record) RelatedPermits() []string { return r.relatedPermits }

// Agency describes an issuing agency referenced by records.
type Agency struct {
	id       string
	name     string
	formerly string
}

// NewAgency creates an Agency.
func NewAgency(id, name, formerly string) (Agency, error) {
	if strings.TrimSpace(id) == "" {
		return Agency{}, fmt.Errorf("%w: agency id is required", domain.ErrCorpusInvalid)
	}
	if strings.TrimSpace(name) == "" {
		return Agency{}, fmt.Errorf("%w: agency %q: name is required", domain.ErrCorpusInvalid, id)
	}
	return Agency{id: id, name: name, formerly: formerly}, nil
}

// ID returns the agency identifier.
func (a *Agency) ID() string { return a.id }

// Name returns the full agency name.
func (a *Agency) Name() string { return a.name }

// Formerly returns the agency's previous name, if any.
func (a *Agency) Formerly() string { return a.formerly }
