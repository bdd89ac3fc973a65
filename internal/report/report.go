// Package report computes the summary metrics, grouped totals, and the
// product-by-exporter pivot consumed by the rendering layer.
package report

import (
	"sort"

	"github.com/exportlens/exportlens/internal/frame"
	"github.com/exportlens/exportlens/internal/ingest"
)

// Summary holds the headline metrics of the working view. Nil QUANTITY and
// TOTAL USD cells are ignored by the sums; MeanUnitRate averages only
// non-nil UNIT RATE cells and is 0 when none exist.
type Summary struct {
	TotalQuantity float64 `json:"total_quantity"`
	TotalRevenue  float64 `json:"total_revenue"`
	MeanUnitRate  float64 `json:"mean_unit_rate"`
}

// GroupTotal is one bar of a grouped-sum chart.
type GroupTotal struct {
	Key   string  `json:"key"`
	Total float64 `json:"total"`
}

// Pivot is the product-by-exporter sum of QUANTITY. Every observed
// (product, exporter) pair has a cell; unobserved pairs are exactly 0.
// Keys are sorted ascending; Cells[i][j] pairs Products[i] with Exporters[j].
type Pivot struct {
	Products  []string    `json:"products"`
	Exporters []string    `json:"exporters"`
	Cells     [][]float64 `json:"cells"`
}

// Report bundles every aggregate of one working view.
type Report struct {
	Summary               Summary      `json:"summary"`
	QuantityByDestination []GroupTotal `json:"quantity_by_destination"`
	QuantityByExporter    []GroupTotal `json:"quantity_by_exporter"`
	QuantityByProduct     []GroupTotal `json:"quantity_by_product"`
	Pivot                 Pivot        `json:"pivot"`
}

// Build recomputes every aggregate from the working view. Pure function, no
// caching: interactive-upload data sizes make recomputation cheap.
func Build(view *frame.Frame) *Report {
	return &Report{
		Summary:               Summarize(view),
		QuantityByDestination: GroupQuantity(view, ingest.ColDestination, false),
		QuantityByExporter:    GroupQuantity(view, ingest.ColExporter, false),
		QuantityByProduct:     GroupQuantity(view, ingest.ColProduct, true),
		Pivot:                 BuildPivot(view),
	}
}

// Summarize computes the headline metrics.
func Summarize(view *frame.Frame) Summary {
	var s Summary
	var rateSum float64
	var rateN int
	for i := 0; i < view.NumRows(); i++ {
		if q, ok := view.Float(i, ingest.ColQuantity); ok {
			s.TotalQuantity += q
		}
		if v, ok := view.Float(i, ingest.ColTotalUSD); ok {
			s.TotalRevenue += v
		}
		if r, ok := view.Float(i, ingest.ColUnitRate); ok {
			rateSum += r
			rateN++
		}
	}
	if rateN > 0 {
		s.MeanUnitRate = rateSum / float64(rateN)
	}
	return s
}

// GroupQuantity sums QUANTITY per distinct value of the given column, sorted
// by total (ascending for chart axes, descending when desc is true). Rows
// with a nil group key are dropped from the grouping. Ties keep
// first-observed order.
func GroupQuantity(view *frame.Frame, by string, desc bool) []GroupTotal {
	totals := make(map[string]float64)
	var order []string
	for i := 0; i < view.NumRows(); i++ {
		key, ok := view.String(i, by)
		if !ok {
			continue
		}
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		if q, qok := view.Float(i, ingest.ColQuantity); qok {
			totals[key] += q
		} else {
			totals[key] += 0
		}
	}

	out := make([]GroupTotal, 0, len(order))
	for _, key := range order {
		out = append(out, GroupTotal{Key: key, Total: totals[key]})
	}
	sort.SliceStable(out, func(a, b int) bool {
		if desc {
			return out[a].Total > out[b].Total
		}
		return out[a].Total < out[b].Total
	})
	return out
}

// BuildPivot sums QUANTITY per (product, exporter) pair, zero-filling pairs
// never observed together.
func BuildPivot(view *frame.Frame) Pivot {
	sums := make(map[[2]string]float64)
	products := make(map[string]bool)
	exporters := make(map[string]bool)

	for i := 0; i < view.NumRows(); i++ {
		p, pok := view.String(i, ingest.ColProduct)
		e, eok := view.String(i, ingest.ColExporter)
		if !pok || !eok {
			continue
		}
		products[p] = true
		exporters[e] = true
		if q, qok := view.Float(i, ingest.ColQuantity); qok {
			sums[[2]string{p, e}] += q
		} else {
			sums[[2]string{p, e}] += 0
		}
	}

	pv := Pivot{
		Products:  sortedKeys(products),
		Exporters: sortedKeys(exporters),
	}
	pv.Cells = make([][]float64, len(pv.Products))
	for i, p := range pv.Products {
		pv.Cells[i] = make([]float64, len(pv.Exporters))
		for j, e := range pv.Exporters {
			pv.Cells[i][j] = sums[[2]string{p, e}]
		}
	}
	return pv
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
