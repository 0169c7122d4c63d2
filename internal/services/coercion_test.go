package services

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheOksigen/autopart-backend/internal/config"
	"github.com/TheOksigen/autopart-backend/internal/models"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    float64
		wantErr bool
	}{
		{name: "currency suffix", input: "49.99 TL", want: 49.99},
		{name: "currency prefix", input: "₺120.50", want: 120.5},
		{name: "thousands separator dropped", input: "1,250", want: 1250},
		{name: "second dot truncates", input: "1.234.56", want: 1.234},
		{name: "leading dot", input: ".5", want: 0.5},
		{name: "plain float", input: 12.5, want: 12.5},
		{name: "json number", input: json.Number("19.90"), want: 19.9},
		{name: "int", input: 7, want: 7},
		{name: "no digits", input: "abc", wantErr: true},
		{name: "only dot", input: "TL.", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
		{name: "NaN", input: math.NaN(), wantErr: true},
		{name: "overflows float64", input: strings.Repeat("9", 400) + " TL", wantErr: true},
		{name: "bool", input: true, wantErr: true},
		{name: "nil", input: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseDiscount(t *testing.T) {
	got, err := ParseDiscount(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = ParseDiscount("")
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = ParseDiscount("%15")
	require.NoError(t, err)
	assert.Equal(t, 15.0, got)

	got, err = ParseDiscount(json.Number("2.5"))
	require.NoError(t, err)
	assert.Equal(t, 2.5, got)

	_, err = ParseDiscount("none")
	assert.ErrorIs(t, err, ErrNotANumber)
}

func TestParseStock_DefaultRules(t *testing.T) {
	p := NewRecordParser(nil)

	tests := []struct {
		name  string
		input interface{}
		want  bool
	}{
		{name: "absent", input: nil, want: true},
		{name: "blank", input: "  ", want: true},
		{name: "true", input: true, want: true},
		{name: "false", input: false, want: false},
		{name: "var", input: "var", want: true},
		{name: "yok", input: "yok", want: false},
		{name: "mixed case yok", input: " YOK ", want: false},
		{name: "zero number", input: json.Number("0"), want: false},
		{name: "one number", input: 1.0, want: true},
		{name: "unknown token defaults in stock", input: "belki", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseStock(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := p.ParseStock([]interface{}{"var"})
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestParseStock_CustomRules(t *testing.T) {
	rules := config.DefaultCoercionRules()
	rules.Stock.InStockTokens = []string{"available"}
	rules.Stock.OutOfStockTokens = []string{"sold out"}
	rules.Stock.UnknownToken = "out_of_stock"
	p := NewRecordParser(rules)

	got, _ := p.ParseStock("Available")
	assert.True(t, got)
	got, _ = p.ParseStock("sold out")
	assert.False(t, got)
	got, _ = p.ParseStock("var")
	assert.False(t, got)
	got, _ = p.ParseStock(nil)
	assert.True(t, got)
}

func TestParseIskontoAndName(t *testing.T) {
	p := NewRecordParser(nil)

	assert.Nil(t, ParseIskonto(nil))
	assert.Nil(t, ParseIskonto(""))
	codes := ParseIskonto("A10\nB20\n")
	require.NotNil(t, codes)
	assert.Equal(t, "A10\nB20", *codes)

	assert.Equal(t, "no name", p.ParseName(nil))
	assert.Equal(t, "no name", p.ParseName(""))
	assert.Equal(t, "Brake pad", p.ParseName(" Brake pad "))
	assert.Equal(t, "1234", p.ParseName(json.Number("1234")))
}

func TestIsMissing(t *testing.T) {
	assert.True(t, IsMissing(nil))
	assert.True(t, IsMissing(""))
	assert.True(t, IsMissing("   "))
	assert.True(t, IsMissing(false))
	assert.True(t, IsMissing(0.0))
	assert.True(t, IsMissing(json.Number("0")))
	assert.True(t, IsMissing(math.NaN()))

	assert.False(t, IsMissing("0"))
	assert.False(t, IsMissing(json.Number("12")))
	assert.False(t, IsMissing(true))
	assert.False(t, IsMissing("img"))
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "123456789", Stringify(123456789.0))
	assert.Equal(t, "0.5", Stringify(0.5))
	assert.Equal(t, "98765432101", Stringify(json.Number("98765432101")))
	assert.Equal(t, "A1", Stringify(" A1 "))
	assert.Equal(t, "", Stringify(nil))
}

func TestRecordParser_Parse(t *testing.T) {
	p := NewRecordParser(nil)

	in, err := p.Parse(models.RawProductRecord{
		"OemNo":           json.Number("1234"),
		"codeOfProduct":   "C1",
		"image":           "img1",
		"priceWithOutKDV": "49.99 TL",
		"priceWithKDV":    json.Number("58.99"),
		"iskonto":         "X\nY",
		"manufacturer":    " Bosch ",
		"stock":           "yok",
	})
	require.NoError(t, err)
	assert.Equal(t, "1234", in.OemNo)
	assert.Equal(t, "no name", in.Name)
	assert.Equal(t, 49.99, in.PriceWithOutKDV)
	assert.Equal(t, 58.99, in.PriceWithKDV)
	assert.Equal(t, 0.0, in.Discouisnt)
	require.NotNil(t, in.Iskonto)
	assert.Equal(t, "X\nY", *in.Iskonto)
	assert.False(t, in.Stock)
	assert.Equal(t, "Bosch", in.Manufacturer)

	product := in.ToProduct(nil)
	assert.Equal(t, "C1", product.CodeOfProduct)
	assert.Nil(t, product.ManufacturerID)
}

func TestRecordParser_Parse_Errors(t *testing.T) {
	p := NewRecordParser(nil)

	_, err := p.Parse(models.RawProductRecord{"codeOfProduct": "C2"})
	var missing *MissingFieldsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"OemNo", "image", "priceWithOutKDV", "priceWithKDV"}, missing.Fields)
	assert.Equal(t, "Missing required fields", err.Error())

	_, err = p.Parse(models.RawProductRecord{
		"OemNo":           "A1",
		"codeOfProduct":   "C1",
		"image":           "img",
		"priceWithOutKDV": "free",
		"priceWithKDV":    "12",
		"discouisnt":      "n/a",
	})
	var fieldErrs FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, []string{"priceWithOutKDV", "discouisnt"}, fieldErrs.Fields())
	assert.Contains(t, err.Error(), `invalid priceWithOutKDV: "free" is not a valid number`)
}

func TestRecordParser_TrimsRequiredStrings(t *testing.T) {
	p := NewRecordParser(nil)

	in, err := p.Parse(models.RawProductRecord{
		"OemNo":           " A1 ",
		"codeOfProduct":   "\tC1\n",
		"image":           "  a.jpg",
		"priceWithOutKDV": 1,
		"priceWithKDV":    2,
	})
	require.NoError(t, err)
	assert.Equal(t, "A1", in.OemNo)
	assert.Equal(t, "C1", in.CodeOfProduct)
	assert.Equal(t, "a.jpg", in.Image)
}
