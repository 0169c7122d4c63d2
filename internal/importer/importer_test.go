package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/TheOksigen/autopart-backend/internal/models"
)

func TestFormatFromFilename(t *testing.T) {
	tests := map[string]models.ImportFormat{
		"products.csv":  models.ImportFormatCSV,
		"Products.XLSX": models.ImportFormatXLSX,
		"batch.json":    models.ImportFormatJSON,
	}
	for name, want := range tests {
		got, err := FormatFromFilename(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := FormatFromFilename("products.xls")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseCSV(t *testing.T) {
	input := "\ufeffOemNo *,CODEOFPRODUCT *,image,priceWithOutKDV,priceWithKDV,manufacturer,stock,unknown\n" +
		"A1,C1,img1,49.99 TL,59.99 TL,Bosch,yok,ignored\n" +
		",,,,,,,\n" +
		"A2,C2,img2,10,12,,,\n"

	records, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, models.RawProductRecord{
		"OemNo":           "A1",
		"codeOfProduct":   "C1",
		"image":           "img1",
		"priceWithOutKDV": "49.99 TL",
		"priceWithKDV":    "59.99 TL",
		"manufacturer":    "Bosch",
		"stock":           "yok",
	}, records[0])

	_, hasManufacturer := records[1]["manufacturer"]
	assert.False(t, hasManufacturer)
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)

	records, err := ParseCSV(strings.NewReader("OemNo,image\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Products"))
	require.NoError(t, f.SetSheetRow("Products", "A1", &[]interface{}{"OemNo *", "codeOfProduct *", "image *", "priceWithOutKDV *", "priceWithKDV *", "iskonto"}))
	require.NoError(t, f.SetSheetRow("Products", "A2", &[]interface{}{"X-1", "K-1", "img", "100", "118", "A\nB"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	records, err := ParseXLSX(&buf)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "X-1", records[0]["OemNo"])
	assert.Equal(t, "118", records[0]["priceWithKDV"])
	assert.Equal(t, "A\nB", records[0]["iskonto"])
}

func TestReadRecords_JSON(t *testing.T) {
	records, err := ReadRecords(strings.NewReader(`[{"OemNo":123,"image":"i"}]`), models.ImportFormatJSON)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, json.Number("123"), records[0]["OemNo"])

	_, err = ReadRecords(strings.NewReader(`{"OemNo":1}`), models.ImportFormatJSON)
	assert.Error(t, err)
}

func TestWriteCSVTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSVTemplate(&buf))

	header, err := csv.NewReader(&buf).Read()
	require.NoError(t, err)
	assert.Len(t, header, len(models.ProductImportColumns()))
	assert.Equal(t, "OemNo", header[0])
}

func TestWriteXLSXTemplate_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSXTemplate(&buf))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Products", "Instructions"}, f.GetSheetList())
	first, err := f.GetCellValue("Products", "A1")
	require.NoError(t, err)
	assert.Equal(t, "OemNo *", first)

	records, err := ParseXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Empty(t, records)
}
