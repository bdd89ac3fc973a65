package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exportlens/exportlens/internal/frame"
	"github.com/exportlens/exportlens/internal/ingest"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// testFrame builds a normalized-shaped frame:
// product, destination, exporter, importer, date.
func testFrame(rows ...[]any) *frame.Frame {
	f := frame.New(ingest.ColProduct, ingest.ColDestination, ingest.ColExporter, ingest.ColImporter, ingest.ColDate)
	for _, row := range rows {
		f.AppendRow(row)
	}
	return f
}

func products(f *frame.Frame) []string {
	var out []string
	for i := 0; i < f.NumRows(); i++ {
		s, _ := f.String(i, ingest.ColProduct)
		out = append(out, s)
	}
	return out
}

func TestApply_EmptyCriteriaIsIdentity(t *testing.T) {
	f := testFrame(
		[]any{"widgets", "US", "Acme", "Globex", date(2024, 1, 1)},
		[]any{"gears", "DE", "Initech", "Hooli", date(2024, 2, 1)},
	)

	view, cands := Apply(f, Criteria{})

	assert.Equal(t, f.NumRows(), view.NumRows())
	assert.Equal(t, []string{"US", "DE"}, cands.Destinations)
	assert.Equal(t, []string{"Acme", "Initech"}, cands.Exporters)
	assert.Equal(t, []string{"Globex", "Hooli"}, cands.Importers)
	require.NotNil(t, cands.MinDate)
	assert.Equal(t, date(2024, 1, 1), *cands.MinDate)
	assert.Equal(t, date(2024, 2, 1), *cands.MaxDate)
}

func TestApply_SubstringCaseInsensitive(t *testing.T) {
	f := testFrame(
		[]any{"Steel Widgets", "US", "Acme", "Globex", nil},
		[]any{"gears", "DE", "Initech", "Hooli", nil},
		[]any{nil, "FR", "Umbrella", "Wonka", nil},
	)

	view, _ := Apply(f, Criteria{ProductSubstring: "WIDGET"})

	assert.Equal(t, []string{"Steel Widgets"}, products(view))
}

func TestApply_EmptySubstringMatchesNilProduct(t *testing.T) {
	f := testFrame([]any{nil, "US", "Acme", "Globex", nil})

	view, _ := Apply(f, Criteria{})
	assert.Equal(t, 1, view.NumRows())
}

func TestApply_CandidatesComputedAfterSubstring(t *testing.T) {
	f := testFrame(
		[]any{"widgets", "US", "Acme", "Globex", date(2024, 1, 1)},
		[]any{"gears", "DE", "Initech", "Hooli", date(2024, 6, 1)},
	)

	// Narrowing the product search shrinks the candidate sets offered for
	// the set filters: the observable two-phase coupling.
	_, cands := Apply(f, Criteria{ProductSubstring: "widget"})

	assert.Equal(t, []string{"US"}, cands.Destinations)
	assert.Equal(t, []string{"Acme"}, cands.Exporters)
	assert.Equal(t, []string{"Globex"}, cands.Importers)
	assert.Equal(t, date(2024, 1, 1), *cands.MaxDate)
}

func TestApply_SetMembership(t *testing.T) {
	f := testFrame(
		[]any{"a", "US", "Acme", "Globex", nil},
		[]any{"b", "DE", "Acme", "Globex", nil},
		[]any{"c", "FR", "Acme", "Globex", nil},
	)

	view, _ := Apply(f, Criteria{Destinations: []string{"US", "FR"}})
	assert.Equal(t, []string{"a", "c"}, products(view))
}

func TestApply_EmptyNonNilSetMatchesNothing(t *testing.T) {
	f := testFrame([]any{"a", "US", "Acme", "Globex", nil})

	view, _ := Apply(f, Criteria{Destinations: []string{}})
	assert.Equal(t, 0, view.NumRows())
}

func TestApply_NilFieldNeverMatchesSet(t *testing.T) {
	f := testFrame(
		[]any{"a", nil, "Acme", "Globex", nil},
		[]any{"b", "US", "Acme", "Globex", nil},
	)

	// Default candidate sets contain only observed non-nil values, so the
	// nil-destination row is dropped even with no explicit selection.
	view, _ := Apply(f, Criteria{})
	assert.Equal(t, []string{"b"}, products(view))
}

func TestApply_DateRangeInclusive(t *testing.T) {
	f := testFrame(
		[]any{"kept-start", "US", "Acme", "Globex", date(2024, 1, 1)},
		[]any{"kept-mid", "US", "Acme", "Globex", date(2024, 1, 15)},
		[]any{"kept-end", "US", "Acme", "Globex", date(2024, 1, 31)},
		[]any{"dropped-after", "US", "Acme", "Globex", date(2024, 2, 1)},
		[]any{"dropped-nil", "US", "Acme", "Globex", nil},
	)

	from, to := date(2024, 1, 1), date(2024, 1, 31)
	view, _ := Apply(f, Criteria{DateFrom: &from, DateTo: &to})

	assert.Equal(t, []string{"kept-start", "kept-mid", "kept-end"}, products(view))
}

func TestApply_HalfOpenDateRangeIsSkipped(t *testing.T) {
	f := testFrame(
		[]any{"a", "US", "Acme", "Globex", date(2024, 1, 1)},
		[]any{"b", "US", "Acme", "Globex", nil},
	)

	// Only one bound resolvable: the date filter does not run at all, so
	// even nil-date rows survive.
	from := date(2024, 1, 1)
	view, _ := Apply(f, Criteria{DateFrom: &from})
	assert.Equal(t, 2, view.NumRows())
}

func TestApply_ConjunctionAndOrder(t *testing.T) {
	f := testFrame(
		[]any{"widget small", "US", "Acme", "Globex", date(2024, 1, 10)},
		[]any{"widget large", "DE", "Acme", "Globex", date(2024, 1, 20)},
		[]any{"widget huge", "US", "Initech", "Globex", date(2024, 3, 1)},
		[]any{"gear", "US", "Acme", "Globex", date(2024, 1, 5)},
	)

	from, to := date(2024, 1, 1), date(2024, 1, 31)
	view, _ := Apply(f, Criteria{
		ProductSubstring: "widget",
		Destinations:     []string{"US"},
		DateFrom:         &from,
		DateTo:           &to,
	})

	assert.Equal(t, []string{"widget small"}, products(view))
}

func TestApply_MissingSetColumnsYieldEmptyCandidates(t *testing.T) {
	f := frame.New(ingest.ColProduct)
	f.AppendRow([]any{"widget"})

	view, cands := Apply(f, Criteria{})

	assert.Empty(t, cands.Destinations)
	// With empty default sets nothing can pass membership.
	assert.Equal(t, 0, view.NumRows())
}
