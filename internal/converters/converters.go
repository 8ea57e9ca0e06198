// Package converters holds the field converters, one per eForms business
// term. Each converter reads a parsed notice and returns a small OCDS
// fragment built through merge.NewFragment, or nil when the term is absent.
package converters

import (
	"context"

	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/notice"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/orchestrator"
)

// DefaultOCIDPrefix is used when Options.OCIDPrefix is empty.
const DefaultOCIDPrefix = "ocds-prefix"

// Compile-time interface check.
var _ orchestrator.Converter = Term{}

// Term converts one business term.
type Term struct {
	id          string
	description string
	convert     orchestrator.ConvertFunc
}

// ID returns the business term identifier, e.g. "BT-27-Lot".
func (t Term) ID() string { return t.id }

// Description says what the term maps to.
func (t Term) Description() string { return t.description }

// Convert extracts the term from src.
func (t Term) Convert(ctx context.Context, src *notice.Notice) (merge.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.convert(ctx, src)
}

// Options tunes the registered set.
type Options struct {
	// OCIDPrefix is the publisher prefix of generated ocids.
	OCIDPrefix string
}

// Registry returns every term in registration order. Later terms win
// scalar conflicts, so the order is part of the output contract.
func Registry(opts Options) []Term {
	prefix := opts.OCIDPrefix
	if prefix == "" {
		prefix = DefaultOCIDPrefix
	}

	var terms []Term
	terms = append(terms, procedureTerms(prefix)...)
	terms = append(terms, lotTerms()...)
	terms = append(terms, groupTerms()...)
	terms = append(terms, partyTerms()...)
	terms = append(terms, resultTerms()...)
	return terms
}

// Converters returns Registry(opts) as orchestrator converters.
func Converters(opts Options) []orchestrator.Converter {
	terms := Registry(opts)
	out := make([]orchestrator.Converter, len(terms))
	for i, t := range terms {
		out[i] = t
	}
	return out
}

func term(id, description string, fn orchestrator.ConvertFunc) Term {
	return Term{id: id, description: description, convert: fn}
}
