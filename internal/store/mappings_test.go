package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
	_ "github.com/edrees2022/log-and-ledger-sub006/internal/core/targets"
)

func TestMatchHeaders(t *testing.T) {
	tests := []struct {
		name   string
		upload []string
		saved  []string
		want   float64
	}{
		{name: "no saved headers", upload: []string{"a"}, saved: nil, want: 0},
		{name: "all present", upload: []string{"Name", "Type"}, saved: []string{"name", "type"}, want: 1},
		{name: "normalized", upload: []string{"Sale_Price"}, saved: []string{"sale price"}, want: 1},
		{name: "half", upload: []string{"Name", "Other"}, saved: []string{"Name", "Type"}, want: 0.5},
		{name: "none", upload: []string{"x"}, saved: []string{"y", "z"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, matchHeaders(tt.upload, tt.saved), 1e-9)
		})
	}
}

func TestRankMappings(t *testing.T) {
	saved := []SavedMapping{
		{ID: "low", Headers: []string{"a", "b", "c", "d"}},
		{ID: "best", Headers: []string{"a", "b"}},
		{ID: "third", Headers: []string{"a", "x", "y"}},
	}

	matches := RankMappings(saved, []string{"A", "B"})

	require.Len(t, matches, 2)
	assert.Equal(t, "best", matches[0].ID)
	assert.Equal(t, 1.0, matches[0].Score)
	assert.Equal(t, "low", matches[1].ID)
	assert.Equal(t, 0.5, matches[1].Score)
}

func TestEncodeMapping(t *testing.T) {
	t.Run("requires name", func(t *testing.T) {
		_, _, err := encodeMapping("items", " ", core.ColumnMapping{}, nil)
		assert.EqualError(t, err, "mapping name is required")
	})

	t.Run("unknown target", func(t *testing.T) {
		_, _, err := encodeMapping("invoices", "x", core.ColumnMapping{}, nil)
		var ute *core.UnknownTargetError
		assert.True(t, errors.As(err, &ute))
	})

	t.Run("unknown field", func(t *testing.T) {
		_, _, err := encodeMapping("items", "x", core.ColumnMapping{"colour": "Colour"}, nil)
		var ufe *core.UnknownFieldError
		assert.True(t, errors.As(err, &ufe))
	})

	t.Run("encodes", func(t *testing.T) {
		m, h, err := encodeMapping("items", "supplier sheet", core.ColumnMapping{"name": "Product"}, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"Product"}`, string(m))
		assert.JSONEq(t, `[]`, string(h))
	})
}

func TestDBError(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:    "23505",
		Message: `duplicate key value violates unique constraint "items_company_sku_unique"`,
		Detail:  "Key (company_id, sku)=(default, WGT-001) already exists.",
	}

	err := dbError("create item", pgErr)

	var dbe *DBError
	require.True(t, errors.As(err, &dbe))
	assert.Equal(t, "23505", dbe.Code)
	assert.Contains(t, err.Error(), "WGT-001")
	assert.True(t, errors.Is(err, pgErr))
	assert.Equal(t, "DB001", core.MapError(err).Code)

	plain := dbError("create item", errors.New("conn closed"))
	assert.EqualError(t, plain, "create item: conn closed")
}
