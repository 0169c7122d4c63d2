package models

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
	ImportFormatJSON ImportFormat = "json"
)

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // string, number, boolean
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity  string                 `json:"entity"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// ProductImportColumns returns the column definitions for product import
func ProductImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: FieldOemNo, Description: "OEM part number", Required: true, Type: "string", Example: "04465-33450"},
		{Name: FieldCodeOfProduct, Description: "Internal product code", Required: true, Type: "string", Example: "BRK-001"},
		{Name: FieldImage, Description: "Image URL", Required: true, Type: "string", Example: "https://cdn.example.com/brk-001.jpg"},
		{Name: FieldPriceWithOutKDV, Description: "Price excluding KDV (currency text is ignored)", Required: true, Type: "number", Example: "49.99 TL"},
		{Name: FieldPriceWithKDV, Description: "Price including KDV", Required: true, Type: "number", Example: "58.99 TL"},
		{Name: FieldName, Description: "Product name (defaults to \"no name\")", Required: false, Type: "string", Example: "Front brake pad set"},
		{Name: FieldManufacturer, Description: "Manufacturer name - auto-creates if not exists", Required: false, Type: "string", Example: "Bosch"},
		{Name: FieldDiscouisnt, Description: "Discount amount (defaults to 0)", Required: false, Type: "number", Example: "0"},
		{Name: FieldIskonto, Description: "Discount codes, one per line", Required: false, Type: "string", Example: ""},
		{Name: FieldStock, Description: "Stock status (var / yok)", Required: false, Type: "boolean", Example: "var"},
	}
}

// ProductImportTemplate returns the template definition for products
func ProductImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "products",
		Version: "1.0",
		Columns: ProductImportColumns(),
	}
}
