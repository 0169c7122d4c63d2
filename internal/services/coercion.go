package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/TheOksigen/autopart-backend/internal/config"
	"github.com/TheOksigen/autopart-backend/internal/models"
)

var (
	ErrNotANumber       = errors.New("is not a valid number")
	ErrUnsupportedValue = errors.New("has an unsupported type")
)

// FieldError is a single coercion failure
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors collects every coercion failure of one record
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fmt.Sprintf("invalid %s: %s", fe.Field, fe.Message)
	}
	return strings.Join(parts, "; ")
}

// Fields lists the offending field names in order
func (e FieldErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, fe := range e {
		fields[i] = fe.Field
	}
	return fields
}

// MissingFieldsError reports required fields that are absent or empty
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "Missing required fields"
}

// ProductInput is a bulk record that passed validation and coercion
type ProductInput struct {
	OemNo           string
	CodeOfProduct   string
	Image           string
	Name            string
	PriceWithOutKDV float64
	PriceWithKDV    float64
	Discouisnt      float64
	Iskonto         *string
	Stock           bool
	Manufacturer    string
}

// ToProduct builds the persistable product
func (in *ProductInput) ToProduct(manufacturerID *uuid.UUID) *models.Product {
	return &models.Product{
		OemNo:           in.OemNo,
		CodeOfProduct:   in.CodeOfProduct,
		Image:           in.Image,
		Name:            in.Name,
		PriceWithOutKDV: in.PriceWithOutKDV,
		PriceWithKDV:    in.PriceWithKDV,
		Discouisnt:      in.Discouisnt,
		Iskonto:         in.Iskonto,
		Stock:           in.Stock,
		ManufacturerID:  manufacturerID,
	}
}

// RecordParser turns raw bulk records into ProductInput using configurable token rules
type RecordParser struct {
	inStock      map[string]struct{}
	outOfStock   map[string]struct{}
	unknownStock bool
	defaultName  string
}

// NewRecordParser builds a parser. Nil rules select config.DefaultCoercionRules.
func NewRecordParser(rules *config.CoercionRules) *RecordParser {
	if rules == nil {
		rules = config.DefaultCoercionRules()
	}
	p := &RecordParser{
		inStock:      make(map[string]struct{}, len(rules.Stock.InStockTokens)),
		outOfStock:   make(map[string]struct{}, len(rules.Stock.OutOfStockTokens)),
		unknownStock: rules.Stock.UnknownToken != "out_of_stock",
		defaultName:  rules.Name.Default,
	}
	for _, t := range rules.Stock.InStockTokens {
		p.inStock[config.NormalizeToken(t)] = struct{}{}
	}
	for _, t := range rules.Stock.OutOfStockTokens {
		p.outOfStock[config.NormalizeToken(t)] = struct{}{}
	}
	if strings.TrimSpace(p.defaultName) == "" {
		p.defaultName = models.DefaultProductName
	}
	return p
}

// Parse validates and coerces a raw record. The error is either
// *MissingFieldsError or FieldErrors.
func (p *RecordParser) Parse(raw models.RawProductRecord) (*ProductInput, error) {
	if missing := MissingRequiredFields(raw); len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	in := &ProductInput{
		OemNo:         Stringify(raw[models.FieldOemNo]),
		CodeOfProduct: Stringify(raw[models.FieldCodeOfProduct]),
		Image:         Stringify(raw[models.FieldImage]),
		Name:          p.ParseName(raw[models.FieldName]),
		Iskonto:       ParseIskonto(raw[models.FieldIskonto]),
		Manufacturer:  ManufacturerName(raw),
	}

	var errs FieldErrors
	var err error
	if in.PriceWithOutKDV, err = ParsePrice(raw[models.FieldPriceWithOutKDV]); err != nil {
		errs = append(errs, FieldError{Field: models.FieldPriceWithOutKDV, Message: err.Error()})
	}
	if in.PriceWithKDV, err = ParsePrice(raw[models.FieldPriceWithKDV]); err != nil {
		errs = append(errs, FieldError{Field: models.FieldPriceWithKDV, Message: err.Error()})
	}
	if in.Discouisnt, err = ParseDiscount(raw[models.FieldDiscouisnt]); err != nil {
		errs = append(errs, FieldError{Field: models.FieldDiscouisnt, Message: err.Error()})
	}
	if in.Stock, err = p.ParseStock(raw[models.FieldStock]); err != nil {
		errs = append(errs, FieldError{Field: models.FieldStock, Message: err.Error()})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return in, nil
}

// MissingRequiredFields returns the required fields that are absent or empty, in declaration order
func MissingRequiredFields(raw models.RawProductRecord) []string {
	var missing []string
	for _, field := range models.RequiredProductFields {
		if IsMissing(raw[field]) {
			missing = append(missing, field)
		}
	}
	return missing
}

// IsMissing treats nil, false, zero, NaN and blank strings as absent
func IsMissing(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case string:
		return strings.TrimSpace(val) == ""
	case float64:
		return val == 0 || math.IsNaN(val)
	case int:
		return val == 0
	case int64:
		return val == 0
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 0
	default:
		return false
	}
}

// Stringify renders a scalar without exponent notation. Strings are trimmed at their outer edges.
func Stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// ParsePrice accepts a number, or a string from which every character other than
// digits and '.' is dropped ("49.99 TL" -> 49.99). Parsing stops at a second '.'.
func ParsePrice(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, ErrNotANumber
		}
		return val, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil || math.IsInf(f, 0) {
			return 0, ErrNotANumber
		}
		return f, nil
	case string:
		cleaned := stripToNumeric(val)
		if cleaned == "" || cleaned == "." {
			return 0, fmt.Errorf("%q %w", val, ErrNotANumber)
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return 0, fmt.Errorf("%q %w", val, ErrNotANumber)
		}
		f, _ := d.Float64()
		if math.IsInf(f, 0) {
			return 0, fmt.Errorf("%q %w", val, ErrNotANumber)
		}
		return f, nil
	default:
		return 0, ErrUnsupportedValue
	}
}

// stripToNumeric keeps digits and the first '.', truncating at any later '.'
func stripToNumeric(s string) string {
	var b strings.Builder
	seenDot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			if seenDot {
				return b.String()
			}
			seenDot = true
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseDiscount defaults to 0 and otherwise follows ParsePrice
func ParseDiscount(v interface{}) (float64, error) {
	if IsMissing(v) {
		return 0, nil
	}
	return ParsePrice(v)
}

// ParseIskonto keeps the raw (possibly multi-line) text; absent -> nil
func ParseIskonto(v interface{}) *string {
	if IsMissing(v) {
		return nil
	}
	s := Stringify(v)
	return &s
}

// ParseName falls back to the configured default
func (p *RecordParser) ParseName(v interface{}) string {
	if IsMissing(v) {
		return p.defaultName
	}
	return Stringify(v)
}

// ParseStock defaults to in stock. Strings and numbers are matched against the token sets.
func (p *RecordParser) ParseStock(v interface{}) (bool, error) {
	switch val := v.(type) {
	case nil:
		return true, nil
	case bool:
		return val, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return true, nil
		}
		return p.matchStockToken(val), nil
	case float64, int, int64, json.Number:
		return p.matchStockToken(Stringify(val)), nil
	default:
		return false, ErrUnsupportedValue
	}
}

func (p *RecordParser) matchStockToken(token string) bool {
	t := config.NormalizeToken(token)
	if _, ok := p.outOfStock[t]; ok {
		return false
	}
	if _, ok := p.inStock[t]; ok {
		return true
	}
	return p.unknownStock
}

// ManufacturerName returns the trimmed manufacturer name, or "" when none was given
func ManufacturerName(raw models.RawProductRecord) string {
	if IsMissing(raw[models.FieldManufacturer]) {
		return ""
	}
	return Stringify(raw[models.FieldManufacturer])
}
