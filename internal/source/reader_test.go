package source

import (
	"bytes"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func xlsxBytes(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, c := range r {
			row.AddCell().SetString(c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestRead_CSV(t *testing.T) {
	data := []byte("PRODUCT,QUANTITY\nWidget,10\nGear,\n")

	f, err := Read("widgets.csv", data)
	require.NoError(t, err)

	assert.Equal(t, []string{"PRODUCT", "QUANTITY"}, f.Columns())
	require.Equal(t, 2, f.NumRows())
	assert.Equal(t, "Widget", f.Value(0, "PRODUCT"))
	assert.Equal(t, "10", f.Value(0, "QUANTITY"))
	// Empty fields decode as nil, not "".
	assert.Nil(t, f.Value(1, "QUANTITY"))
}

func TestRead_CSVShortRow(t *testing.T) {
	data := []byte("A,B,C\n1,2\n")

	f, err := Read("x.csv", data)
	require.NoError(t, err)
	require.Equal(t, 1, f.NumRows())
	assert.Equal(t, "2", f.Value(0, "B"))
	assert.Nil(t, f.Value(0, "C"))
}

func TestRead_CSVMissingHeader(t *testing.T) {
	_, err := Read("empty.csv", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing header")
}

func TestRead_CSVMalformed(t *testing.T) {
	_, err := Read("bad.csv", []byte("A,B\n\"unclosed,1\n"))
	require.Error(t, err)
}

func TestRead_XLSX(t *testing.T) {
	data := xlsxBytes(t, [][]string{
		{"PRODUCT", "QUANTITY"},
		{"Widget", "10"},
	})

	f, err := Read("widgets.xlsx", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"PRODUCT", "QUANTITY"}, f.Columns())
	require.Equal(t, 1, f.NumRows())
	assert.Equal(t, "Widget", f.Value(0, "PRODUCT"))
}

func TestRead_XLSXCorrupt(t *testing.T) {
	_, err := Read("corrupt.xlsx", []byte("not a zip container"))
	require.Error(t, err)
}

func TestRead_UnsupportedExtension(t *testing.T) {
	_, err := Read("notes.txt", []byte("hello"))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnsupportedFormat))
}

func TestRead_DispatchIsCaseInsensitive(t *testing.T) {
	f, err := Read("UPPER.CSV", []byte("A\n1\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.NumRows())
}

func TestTag(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"widgets.csv", "widgets"},
		{"dir/sub/gears.xlsx", "gears"},
		{"march.report.csv", "march"},
		{"noext", "noext"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Tag(tc.name), tc.name)
	}
}
