// Package source decodes uploaded tabular files (CSV, XLS, XLSX, or ZIP
// archives of those) into raw frames, one per physical source.
package source

import (
	"bytes"
	"encoding/csv"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/exportlens/exportlens/internal/frame"
)

// ErrUnsupportedFormat marks a source whose extension is not one of
// .csv, .xls, or .xlsx.
var ErrUnsupportedFormat = eris.New("unsupported file format")

// Source is one named binary blob: an uploaded file or a ZIP member.
type Source struct {
	Name string
	Data []byte
}

// Tag derives the provenance tag from a source name: base name, directory
// components stripped, cut at the first dot.
func Tag(name string) string {
	base := path.Base(filepath.ToSlash(name))
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}

// Read decodes one source into a raw frame, dispatching on the lowercased
// file extension. The first row of the source is the header; cells are raw
// strings with no type coercion applied.
func Read(name string, data []byte) (*frame.Frame, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return readCSV(data)
	case ".xlsx":
		return readXLSX(data)
	case ".xls":
		return readXLS(data)
	default:
		return nil, eris.Wrapf(ErrUnsupportedFormat, "source: %s", name)
	}
}

func readCSV(data []byte) (*frame.Frame, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // allow variable fields

	header, err := r.Read()
	if err == io.EOF {
		return nil, eris.New("csv: missing header row")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}

	f := frame.New(header...)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		f.AppendRow(toCells(record))
	}
	return f, nil
}

func readXLSX(data []byte) (*frame.Frame, error) {
	wb, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open workbook")
	}
	if len(wb.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	sheet := wb.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("xlsx: missing header row")
	}

	f := frame.New(rowStrings(sheet.Rows[0])...)
	for _, row := range sheet.Rows[1:] {
		f.AppendRow(toCells(rowStrings(row)))
	}
	return f, nil
}

func rowStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}

func readXLS(data []byte) (*frame.Frame, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, eris.Wrap(err, "xls: open workbook")
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, eris.New("xls: workbook has no sheets")
	}

	header := xlsRowStrings(sheet.Row(0))
	if len(header) == 0 {
		return nil, eris.New("xls: missing header row")
	}

	f := frame.New(header...)
	for i := 1; i <= int(sheet.MaxRow); i++ {
		f.AppendRow(toCells(xlsRowStrings(sheet.Row(i))))
	}
	return f, nil
}

func xlsRowStrings(row *xls.Row) []string {
	if row == nil {
		return nil
	}
	// xls rows are sparse: leading cells before FirstCol are absent.
	cells := make([]string, row.LastCol())
	for i := row.FirstCol(); i < row.LastCol(); i++ {
		cells[i] = row.Col(i)
	}
	return cells
}

// toCells converts raw string fields to cells, mapping empty fields to nil.
func toCells(record []string) []any {
	cells := make([]any, len(record))
	for i, s := range record {
		if s == "" {
			continue
		}
		cells[i] = s
	}
	return cells
}
