package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/exportlens/exportlens/internal/frame"
)

// DefaultDateLayouts are tried in order when coercing DATE cells.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"02-01-2006",
	time.RFC3339,
}

// Normalize turns a unified frame into the typed analytic record set:
// column labels are trimmed, DATE becomes time.Time, PRODUCT a trimmed
// string, QUANTITY / UNIT RATE / TOTAL USD float64, and rows without a
// PRODUCT are dropped. Coercion failures become nil cells and the row is
// retained; the PRODUCT drop is the only row filter. The function is pure
// and idempotent: normalizing its own output changes nothing.
func Normalize(f *frame.Frame, opts Options) *frame.Frame {
	layouts := opts.DateLayouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}

	f = f.RenameColumns(strings.TrimSpace)

	cols := f.Columns()
	f = f.MapRow(func(_ int, row []any) []any {
		for j, col := range cols {
			switch col {
			case ColDate:
				row[j] = coerceDate(row[j], layouts)
			case ColProduct:
				row[j] = coerceText(row[j])
			case ColQuantity, ColUnitRate, ColTotalUSD:
				row[j] = coerceNumber(row[j])
			}
		}
		return row
	})

	return f.Filter(func(i int) bool {
		s, ok := f.String(i, ColProduct)
		return ok && s != ""
	})
}

func coerceDate(v any, layouts []string) any {
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return nil
}

func coerceText(v any) any {
	switch x := v.(type) {
	case string:
		if s := strings.TrimSpace(x); s != "" {
			return s
		}
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return nil
}

func coerceNumber(v any) any {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return n
		}
	}
	return nil
}
