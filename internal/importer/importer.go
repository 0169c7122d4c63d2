// Package importer turns CSV, XLSX and JSON product files into raw records for
// the bulk ingestion pipeline and produces the matching import templates.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/TheOksigen/autopart-backend/internal/models"
	"github.com/TheOksigen/autopart-backend/internal/services"
)

const (
	requiredMarker = " *"
	productsSheet  = "Products"
)

var (
	ErrUnsupportedFormat = errors.New("only CSV, XLSX and JSON files are supported")
	ErrNoHeader          = errors.New("file has no header row")
)

// FormatFromFilename picks the import format from the file extension
func FormatFromFilename(name string) (models.ImportFormat, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return models.ImportFormatCSV, nil
	case ".xlsx":
		return models.ImportFormatXLSX, nil
	case ".json":
		return models.ImportFormatJSON, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// ReadRecords parses r according to format
func ReadRecords(r io.Reader, format models.ImportFormat) ([]models.RawProductRecord, error) {
	switch format {
	case models.ImportFormatCSV:
		return ParseCSV(r)
	case models.ImportFormatXLSX:
		return ParseXLSX(r)
	case models.ImportFormatJSON:
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON file: %w", err)
		}
		return services.DecodeRecords(body)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ParseCSV reads a header row followed by data rows
func ParseCSV(r io.Reader) ([]models.RawProductRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns := mapHeader(header)

	var records []models.RawProductRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", line, err)
		}
		if rec := buildRecord(columns, row); rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// ParseXLSX reads the "Products" sheet, or the first sheet when there is none
func ParseXLSX(r io.Reader) ([]models.RawProductRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}
	sheetName := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, productsSheet) {
			sheetName = name
			break
		}
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	columns := mapHeader(rows[0])
	var records []models.RawProductRecord
	for _, row := range rows[1:] {
		if rec := buildRecord(columns, row); rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// mapHeader resolves each header cell to a record field name, "" when unknown
func mapHeader(header []string) []string {
	known := make(map[string]string)
	for _, col := range models.ProductImportColumns() {
		known[strings.ToLower(col.Name)] = col.Name
	}

	columns := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		h = strings.TrimSuffix(strings.ToLower(h), requiredMarker)
		columns[i] = known[strings.TrimSpace(h)]
	}
	return columns
}

// buildRecord returns nil for rows with no values at all
func buildRecord(columns []string, row []string) models.RawProductRecord {
	rec := models.RawProductRecord{}
	for i, value := range row {
		if i >= len(columns) || columns[i] == "" {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			rec[columns[i]] = value
		}
	}
	if len(rec) == 0 {
		return nil
	}
	return rec
}

// WriteCSVTemplate writes the header row only
func WriteCSVTemplate(w io.Writer) error {
	writer := csv.NewWriter(w)
	columns := models.ProductImportColumns()
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Name
	}
	if err := writer.Write(headers); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSXTemplate writes a Products sheet with styled headers and an Instructions sheet
func WriteXLSXTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", productsSheet); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	template := models.ProductImportTemplate()
	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		text, style := col.Name, headerStyle
		if col.Required {
			text, style = col.Name+requiredMarker, requiredStyle
		}
		_ = f.SetCellValue(productsSheet, cell, text)
		_ = f.SetCellStyle(productsSheet, cell, cell, style)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(productsSheet, colName, colName, 20)
	}

	const instructions = "Instructions"
	if _, err := f.NewSheet(instructions); err != nil {
		return err
	}
	_ = f.SetCellValue(instructions, "A1", "Product Import Instructions")
	_ = f.SetCellValue(instructions, "A3", "Columns marked * are required. Manufacturers are matched by name ignoring case and created when missing.")
	_ = f.SetCellValue(instructions, "A4", "Prices may include currency text (\"49.99 TL\"). Stock accepts var / yok.")
	for i, h := range []string{"Column", "Description", "Required", "Type", "Example"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 6)
		_ = f.SetCellValue(instructions, cell, h)
	}
	for i, col := range template.Columns {
		row := i + 7
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		for j, v := range []string{col.Name, col.Description, required, col.Type, col.Example} {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			_ = f.SetCellValue(instructions, cell, v)
		}
	}
	_ = f.SetColWidth(instructions, "A", "A", 25)
	_ = f.SetColWidth(instructions, "B", "B", 60)

	if idx, err := f.GetSheetIndex(productsSheet); err == nil {
		f.SetActiveSheet(idx)
	}
	return f.Write(w)
}
