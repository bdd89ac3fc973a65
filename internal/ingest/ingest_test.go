package ingest

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exportlens/exportlens/internal/source"
)

func csvSource(name, body string) source.Source {
	return source.Source{Name: name, Data: []byte(body)}
}

func TestIngest_StampsProductFromFileName(t *testing.T) {
	src := csvSource("a.csv",
		"DATE,PRODUCT,QUANTITY,UNIT RATE,TOTAL USD,DESTINATION,EXPORTER,IMPORTER\n"+
			"2024-01-01,Widget,10,2,20,US,Acme,Globex\n")

	unified, warnings, err := Ingest([]source.Source{src}, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Equal(t, 1, unified.NumRows())

	// The file name replaces the content-derived product identity.
	assert.Equal(t, "a", unified.Value(0, ColProduct))
	assert.Equal(t, "10", unified.Value(0, ColQuantity))
}

func TestIngest_StampDisabledKeepsSourceProduct(t *testing.T) {
	src := csvSource("a.csv", "PRODUCT,QUANTITY\nWidget,10\n")

	unified, _, err := Ingest([]source.Source{src}, Options{StampProduct: false})
	require.NoError(t, err)
	assert.Equal(t, "Widget", unified.Value(0, ColProduct))
}

func TestIngest_FailureIsolation(t *testing.T) {
	sources := []source.Source{
		csvSource("one.csv", "PRODUCT,QUANTITY\nx,1\nx,2\n"),
		{Name: "two.xlsx", Data: []byte("not a workbook")},
		csvSource("three.csv", "PRODUCT,QUANTITY\ny,3\n"),
	}

	unified, warnings, err := Ingest(sources, DefaultOptions())
	require.NoError(t, err)

	// Rows only from sources one and three, in order.
	require.Equal(t, 3, unified.NumRows())
	assert.Equal(t, "one", unified.Value(0, ColProduct))
	assert.Equal(t, "one", unified.Value(1, ColProduct))
	assert.Equal(t, "three", unified.Value(2, ColProduct))

	// Exactly one warning, referencing the corrupt source.
	require.Len(t, warnings, 1)
	assert.Equal(t, "two.xlsx", warnings[0].File)
}

func TestIngest_UnsupportedExtensionWarns(t *testing.T) {
	sources := []source.Source{
		csvSource("ok.csv", "PRODUCT,QUANTITY\nx,1\nx,2\nx,3\nx,4\nx,5\n"),
		{Name: "notes.txt", Data: []byte("hello")},
	}

	unified, warnings, err := Ingest(sources, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 5, unified.NumRows())
	require.Len(t, warnings, 1)
	assert.Equal(t, "notes.txt", warnings[0].File)
	assert.Contains(t, warnings[0].Message, "unsupported")
}

func TestIngest_EmptyDataset(t *testing.T) {
	sources := []source.Source{
		{Name: "bad.xlsx", Data: []byte("garbage")},
		{Name: "notes.txt", Data: []byte("hello")},
	}

	_, warnings, err := Ingest(sources, DefaultOptions())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrEmptyDataset))
	assert.Len(t, warnings, 2)
}

func TestIngest_HeaderOnlySourcesAreEmpty(t *testing.T) {
	_, _, err := Ingest([]source.Source{csvSource("a.csv", "PRODUCT,QUANTITY\n")}, DefaultOptions())
	assert.True(t, eris.Is(err, ErrEmptyDataset))
}

func TestIngest_NoSources(t *testing.T) {
	_, _, err := Ingest(nil, DefaultOptions())
	assert.True(t, eris.Is(err, ErrEmptyDataset))
}

func TestIngest_ZIPMembersAreIndependentSources(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range []struct{ name, body string }{
		{"exports/widgets.csv", "PRODUCT,QUANTITY\nz,1\n"},
		{"gears.csv", "PRODUCT,QUANTITY\nz,2\n"},
		{"readme.txt", "not tabular"},
	} {
		w, err := zw.Create(m.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(m.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	unified, warnings, err := Ingest([]source.Source{{Name: "batch.zip", Data: buf.Bytes()}}, DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, 2, unified.NumRows())
	// Provenance comes from the member base name, not the archive name.
	assert.Equal(t, "widgets", unified.Value(0, ColProduct))
	assert.Equal(t, "gears", unified.Value(1, ColProduct))

	require.Len(t, warnings, 1)
	assert.Equal(t, "readme.txt", warnings[0].File)
}

func TestIngest_ColumnSupersetUnion(t *testing.T) {
	sources := []source.Source{
		csvSource("a.csv", "QUANTITY,DESTINATION\n1,US\n"),
		csvSource("b.csv", "QUANTITY,EXPORTER\n2,Acme\n"),
	}

	unified, _, err := Ingest(sources, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"QUANTITY", "DESTINATION", ColProduct, ColExporter}, unified.Columns())
	assert.Nil(t, unified.Value(0, ColExporter))
	assert.Nil(t, unified.Value(1, "DESTINATION"))
}
