// Package filter evaluates user criteria against the normalized record set
// to produce the working view driving every report.
package filter

import (
	"strings"
	"time"

	"github.com/exportlens/exportlens/internal/frame"
	"github.com/exportlens/exportlens/internal/ingest"
)

// Criteria is one immutable filter evaluation request. A nil set slice means
// "default to the full candidate set", which makes that predicate a no-op;
// an empty non-nil slice matches nothing. The date filter applies only when
// both bounds are present.
type Criteria struct {
	ProductSubstring string     `yaml:"product"`
	Destinations     []string   `yaml:"destinations"`
	Exporters        []string   `yaml:"exporters"`
	Importers        []string   `yaml:"importers"`
	DateFrom         *time.Time `yaml:"from"`
	DateTo           *time.Time `yaml:"to"`
}

// Candidates are the selectable values offered for the set filters, derived
// from the substring-filtered data, not the full dataset. Narrowing the
// product search therefore shrinks these sets before the set filters apply.
// Values appear in first-observed row order.
type Candidates struct {
	Destinations []string   `json:"destinations"`
	Exporters    []string   `json:"exporters"`
	Importers    []string   `json:"importers"`
	MinDate      *time.Time `json:"min_date,omitempty"`
	MaxDate      *time.Time `json:"max_date,omitempty"`
}

// Apply evaluates the criteria in two phases: the case-insensitive PRODUCT
// substring filter runs first, candidates are computed from its result, nil
// criteria sets resolve to those candidates, and only then do the set and
// date predicates run. Row order is preserved throughout.
func Apply(f *frame.Frame, c Criteria) (*frame.Frame, Candidates) {
	needle := strings.ToLower(c.ProductSubstring)
	view := f.Filter(func(i int) bool {
		if needle == "" {
			return true
		}
		s, ok := f.String(i, ingest.ColProduct)
		return ok && strings.Contains(strings.ToLower(s), needle)
	})

	cands := collectCandidates(view)

	destinations := resolve(c.Destinations, cands.Destinations)
	exporters := resolve(c.Exporters, cands.Exporters)
	importers := resolve(c.Importers, cands.Importers)

	view = view.Filter(func(i int) bool {
		return memberOf(view, i, ingest.ColDestination, destinations) &&
			memberOf(view, i, ingest.ColExporter, exporters) &&
			memberOf(view, i, ingest.ColImporter, importers)
	})

	if c.DateFrom != nil && c.DateTo != nil {
		from, to := *c.DateFrom, *c.DateTo
		view = view.Filter(func(i int) bool {
			t, ok := view.Time(i, ingest.ColDate)
			return ok && !t.Before(from) && !t.After(to)
		})
	}

	return view, cands
}

func collectCandidates(f *frame.Frame) Candidates {
	c := Candidates{
		Destinations: f.Distinct(ingest.ColDestination),
		Exporters:    f.Distinct(ingest.ColExporter),
		Importers:    f.Distinct(ingest.ColImporter),
	}
	for i := 0; i < f.NumRows(); i++ {
		t, ok := f.Time(i, ingest.ColDate)
		if !ok {
			continue
		}
		if c.MinDate == nil || t.Before(*c.MinDate) {
			tc := t
			c.MinDate = &tc
		}
		if c.MaxDate == nil || t.After(*c.MaxDate) {
			tc := t
			c.MaxDate = &tc
		}
	}
	return c
}

// resolve substitutes the candidate default for an unspecified (nil) set.
func resolve(selected, candidates []string) map[string]bool {
	if selected == nil {
		selected = candidates
	}
	set := make(map[string]bool, len(selected))
	for _, v := range selected {
		set[v] = true
	}
	return set
}

// memberOf reports whether the row's cell value is in the set. A nil cell
// never matches.
func memberOf(f *frame.Frame, i int, col string, set map[string]bool) bool {
	s, ok := f.String(i, col)
	return ok && set[s]
}
