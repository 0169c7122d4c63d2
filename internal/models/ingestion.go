package models

// RawProductRecord is one untyped element of a bulk payload. Values are whatever the
// JSON decoder (with UseNumber) or a spreadsheet reader produced: nil, bool,
// json.Number, float64 or string.
type RawProductRecord map[string]interface{}

// Wire names of the bulk record fields
const (
	FieldOemNo           = "OemNo"
	FieldCodeOfProduct   = "codeOfProduct"
	FieldImage           = "image"
	FieldName            = "name"
	FieldPriceWithOutKDV = "priceWithOutKDV"
	FieldPriceWithKDV    = "priceWithKDV"
	FieldDiscouisnt      = "discouisnt"
	FieldIskonto         = "iskonto"
	FieldManufacturer    = "manufacturer"
	FieldStock           = "stock"
)

// RequiredProductFields must be present and non-empty on every bulk record
var RequiredProductFields = []string{
	FieldOemNo,
	FieldCodeOfProduct,
	FieldImage,
	FieldPriceWithOutKDV,
	FieldPriceWithKDV,
}

// ErrorKind classifies a per-record failure
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "ValidationError"
	ErrorKindDependency ErrorKind = "DependencyError"
)

// IngestionError describes why a single record was not stored
type IngestionError struct {
	OemNo  string    `json:"OemNo"`
	Error  string    `json:"error"`
	Kind   ErrorKind `json:"kind"`
	Fields []string  `json:"fields,omitempty"`
}

// IngestionReport summarizes one bulk ingestion call
type IngestionReport struct {
	Message            string           `json:"message"`
	TotalProcessed     int              `json:"totalProcessed"`
	SuccessCount       int              `json:"successCount"`
	ErrorCount         int              `json:"errorCount"`
	SuccessfulProducts []*Product       `json:"successfulProducts"`
	Errors             []IngestionError `json:"errors"`
}

// BulkFailureResponse is returned when the batch could not be processed at all
type BulkFailureResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
