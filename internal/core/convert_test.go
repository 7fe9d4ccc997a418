package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		want   string
	}{
		{"positive integer", "123", true, "123"},
		{"zero", "0", true, "0"},
		{"negative integer", "-456", true, "-456"},
		{"decimal number", "123.45", true, "123.45"},
		{"leading decimal point", ".99", true, "0.99"},
		{"trailing decimal point", "99.", true, "99"},
		{"dollar sign", "$100.00", true, "100"},
		{"euro sign", "€50", true, "50"},
		{"pound sign", "£75.50", true, "75.5"},
		{"thousand separators", "1,234,567.89", true, "1234567.89"},
		{"accounting negative", "(123.45)", true, "-123.45"},
		{"accounting negative with currency", "($1,000)", true, "-1000"},
		{"scientific notation", "1.5e3", true, "1500"},
		{"surrounding whitespace", "  42  ", true, "42"},
		{"explicit plus", "+7", true, "7"},

		{"empty", "", false, "0"},
		{"whitespace only", "   ", false, "0"},
		{"letters", "abc", false, "0"},
		{"mixed", "12abc", false, "0"},
		{"two decimal points", "1.2.3", false, "0"},
		{"bare currency", "$", false, "0"},
		{"empty parentheses", "()", false, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumber(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "ParseNumber(%q) = %s, want %s", tt.input, got, tt.want)
		})
	}
}

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     string
		wantWarn bool
		empty    bool
	}{
		{"number", "12.5", "12.5", false, false},
		{"blank", "", "0", false, true},
		{"whitespace", " \t", "0", false, true},
		{"garbage", "twelve", "0", true, false},
		{"typed zero", "0", "0", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, warn := CoerceNumber("sale_price", tt.raw)

			assert.Equal(t, FieldNumeric, v.Type)
			assert.Equal(t, tt.raw, v.Raw)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(v.Number))
			assert.Equal(t, tt.empty, v.IsEmpty())
			if tt.wantWarn {
				if assert.NotNil(t, warn) {
					assert.Equal(t, "invalid number for sale_price", warn.Error())
					assert.Equal(t, tt.raw, warn.Value)
				}
			} else {
				assert.Nil(t, warn)
			}
		})
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  hello  ", "hello"},
		{`="00123"`, "00123"},
		{`  ="007"  `, "007"},
		{`"quoted"`, `"quoted"`},
		{"'single'", "'single'"},
		{`'Quoted' and 'kept'`, `'Quoted' and 'kept'`},
		{`=SUM(A1)`, `=SUM(A1)`},
		{`"`, `"`},
		{"", ""},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanCell(tt.input), "CleanCell(%q)", tt.input)
	}
}

func TestValueJSON(t *testing.T) {
	b, err := NumberValue("1,200", decimal.RequireFromString("1200")).MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, "1200", string(b))

	b, err = TextValue(`Lamp "XL"`).MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, `"Lamp \"XL\""`, string(b))
}
