package imports

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseTable_CSV(t *testing.T) {
	body := "\xEF\xBB\xBF Ejercicio ,Mercado,Instrumento,Fecha\n" +
		"2024,ACN,ABC,2024-01-01\n" +
		",,,\n" +
		"2025, ,XYZ\n"
	table, err := ParseTable("datos.CSV", bytes.NewReader([]byte(body)))
	require.NoError(t, err)

	assert.Equal(t, FormatCSV, table.Format)
	assert.NotEmpty(t, table.Encoding)
	assert.Equal(t, []string{"Ejercicio", "Mercado", "Instrumento", "Fecha"}, table.Headers)
	require.Len(t, table.Rows, 2, "blank lines are dropped")

	assert.Equal(t, 2, table.Rows[0].Number)
	assert.Equal(t, "ABC", table.Rows[0].Cells["Instrumento"])

	second := table.Rows[1]
	assert.Equal(t, 3, second.Number)
	assert.NotContains(t, second.Cells, "Mercado", "blank cells are absent")
	assert.NotContains(t, second.Cells, "Fecha", "missing cells are absent")
	assert.Equal(t, "XYZ", second.Cells["Instrumento"])
}

func TestParseTable_SemicolonDelimited(t *testing.T) {
	body := "ejercicio;mercado;factor_8\n2024;ACN;0,5\n"
	table, err := ParseTable("datos.csv", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "0,5", table.Rows[0].Cells["factor_8"])
}

func TestParseTable_DuplicateHeadersKept(t *testing.T) {
	table, err := ParseTable("datos.csv", bytes.NewReader([]byte("a,a,b\n1,2,3\n")))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "b"}, table.Headers)
	assert.Equal(t, "2", table.Rows[0].Cells["a.1"])
}

func TestParseTable_Empty(t *testing.T) {
	for _, body := range []string{"", "\n\n", "ejercicio,mercado\n", "ejercicio,mercado\n,\n"} {
		_, err := ParseTable("datos.csv", bytes.NewReader([]byte(body)))
		assert.ErrorIs(t, err, ErrEmptyFile, "body %q", body)
	}
}

func TestParseTable_UnsupportedExtension(t *testing.T) {
	_, err := ParseTable("datos.txt", bytes.NewReader([]byte("a\n1\n")))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseTable_Latin1CSV(t *testing.T) {
	// "Descripción" and body text encoded as ISO-8859-1
	body := []byte("ejercicio,mercado,instrumento,fecha,secuencia,descripci\xf3n\n" +
		"2024,ACN,ABC,2024-01-01,10001,Distribuci\xf3n de dividendos con retenci\xf3n y cr\xe9dito\n" +
		"2024,ACN,DEF,2024-01-01,10002,Dividendo provisorio a\xf1o comercial se\xf1alado\n")
	table, err := ParseTable("latin.csv", bytes.NewReader(body))
	require.NoError(t, err)
	assert.Contains(t, table.Headers, "descripción")
	assert.Equal(t, "Dividendo provisorio año comercial señalado", table.Rows[1].Cells["descripción"])
}

func TestParseTable_XLSXReadsRawText(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Ejercicio", "Mercado", "Instrumento", "Fecha", "Secuencia", "Factor 8"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{2024, "ACN", "ABC", "01/01/2024", 10001, 0.12345678}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{2024, "CFI", "XYZ", "2024-03-31", 10002}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := ParseTable("carga.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, table.Format)
	assert.Empty(t, table.Encoding)
	require.Len(t, table.Rows, 2)

	first := table.Rows[0].Cells
	assert.Equal(t, "2024", first["Ejercicio"])
	assert.Equal(t, "10001", first["Secuencia"])
	assert.Equal(t, "0.12345678", first["Factor 8"])
	assert.NotContains(t, table.Rows[1].Cells, "Factor 8")
}

func TestResolveEncoding(t *testing.T) {
	assert.Equal(t, "UTF-8", resolveEncoding([]byte("año"), "UTF-8", 100))
	// low confidence: first candidate that decodes wins, latin-1 takes anything
	assert.Equal(t, "latin-1", resolveEncoding([]byte("a\xf1o"), "UTF-8", 40))
	assert.Equal(t, "latin-1", resolveEncoding(nil, "", 0))
}

func TestDecodeWithRetry(t *testing.T) {
	text, used, err := decodeWithRetry([]byte("a\xf1o"), "utf-8")
	require.NoError(t, err)
	assert.Equal(t, "latin-1", used)
	assert.Equal(t, "año", text)

	text, used, err = decodeWithRetry([]byte("\xEF\xBB\xBFaño"), "UTF-8")
	require.NoError(t, err)
	assert.Equal(t, "UTF-8", used)
	assert.Equal(t, "año", text)

	_, used, err = decodeWithRetry([]byte("a\x80b"), "windows-1252")
	require.NoError(t, err)
	assert.Equal(t, "windows-1252", used)
}

func TestDetectEncoding_UTF8(t *testing.T) {
	sample := []byte("descripción,año,señal,acción,región\nDistribución,2024,sí,más,Ñuble\n")
	assert.Equal(t, "UTF-8", DetectEncoding(sample))
}

func TestParseTable_MissingMarkersAreAbsent(t *testing.T) {
	body := "ejercicio,mercado,instrumento,fecha,secuencia,descripcion\n" +
		"2024,NaN,ABC,2024-01-01,10001, N/A \n" +
		"NULL,nan,#N/A,None,<NA>,\n" +
		"2024,ACN,NA,2024-01-01,10002,Nan\n"
	table, err := ParseTable("datos.csv", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	require.Len(t, table.Rows, 2, "a row holding only markers is dropped")

	first := table.Rows[0].Cells
	assert.NotContains(t, first, "mercado")
	assert.NotContains(t, first, "descripcion")
	assert.Equal(t, "ABC", first["instrumento"])

	second := table.Rows[1]
	assert.Equal(t, 3, second.Number)
	assert.NotContains(t, second.Cells, "instrumento")
	assert.Equal(t, "Nan", second.Cells["descripcion"], "markers match case-sensitively")
}

func TestParseTable_XLSXMissingMarkers(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Ejercicio", "Mercado", "Descripcion"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{2024, "#N/A", "NULL"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := ParseTable("carga.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, map[string]string{"Ejercicio": "2024"}, table.Rows[0].Cells)
}
