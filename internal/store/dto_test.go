package store

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
)

func textRow(kv ...string) core.CanonicalRow {
	row := make(core.CanonicalRow, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		row[kv[i]] = core.TextValue(kv[i+1])
	}
	return row
}

func TestContactValidation(t *testing.T) {
	tests := []struct {
		name    string
		row     core.CanonicalRow
		wantErr string
	}{
		{
			name: "valid customer",
			row:  textRow("name", "John Doe", "type", "Customer", "email", "john@example.com"),
		},
		{
			name:    "unknown type",
			row:     textRow("name", "John Doe", "type", "partner"),
			wantErr: "type must be one of: customer, vendor, supplier, both",
		},
		{
			name:    "bad email",
			row:     textRow("name", "John Doe", "type", "vendor", "email", "not-an-email"),
			wantErr: "email must be a valid email address",
		},
		{
			name:    "blank name after trim",
			row:     textRow("name", "   ", "type", "vendor"),
			wantErr: "name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := check(ContactFromRow(tt.row))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Error(), tt.wantErr)
		})
	}
}

func TestContactFromRowNormalizes(t *testing.T) {
	d := ContactFromRow(textRow("name", "  ABC Company ", "type", " VENDOR "))
	assert.Equal(t, "ABC Company", d.Name)
	assert.Equal(t, "vendor", d.Type)
	assert.Empty(t, d.Email)
}

func TestItemFromRow(t *testing.T) {
	row := textRow("name", "Widget A", "type", "product", "unit", "pcs")
	row["sale_price"] = core.NumberValue("29.99", decimal.RequireFromString("29.99"))
	row["quantity"] = core.NumberValue("", decimal.Zero)

	d := ItemFromRow(row)
	require.NoError(t, check(d))
	assert.Equal(t, "29.99", d.SalePrice.String())
	assert.True(t, d.PurchasePrice.IsZero(), "unmapped number is zero")
	assert.True(t, d.Quantity.IsZero())
	assert.Equal(t, "pcs", d.Unit)
}

func TestItemValidation(t *testing.T) {
	err := check(ItemFromRow(textRow("name", "Widget", "type", "gadget")))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"type must be one of: product, service, inventory"}, verr.Problems)
}

func TestAccountValidation(t *testing.T) {
	tests := []struct {
		name     string
		row      core.CanonicalRow
		problems []string
	}{
		{
			name: "valid asset",
			row:  textRow("code", "1100", "name", "Cash", "account_type", "Asset"),
		},
		{
			name:     "bad type",
			row:      textRow("code", "1100", "name", "Cash", "account_type", "cash"),
			problems: []string{"account_type must be one of: asset, liability, equity, revenue, expense"},
		},
		{
			name:     "several problems",
			row:      textRow("account_type", "asset"),
			problems: []string{"code is required", "name is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := check(AccountFromRow(tt.row))
			if tt.problems == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.problems, verr.Problems)
		})
	}
}
