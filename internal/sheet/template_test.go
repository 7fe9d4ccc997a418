package sheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
	_ "github.com/edrees2022/log-and-ledger-sub006/internal/core/targets"
)

func TestTemplateRoundTrip(t *testing.T) {
	formats := []struct {
		format Format
		file   string
	}{
		{format: FormatXLSX, file: "template.xlsx"},
		{format: FormatCSV, file: "template.csv"},
	}

	for _, cfg := range core.All() {
		for _, ff := range formats {
			t.Run(cfg.ID+"/"+string(ff.format), func(t *testing.T) {
				tpl, err := core.GenerateTemplate(cfg.ID)
				require.NoError(t, err)

				var buf bytes.Buffer
				require.NoError(t, WriteTemplate(&buf, tpl, ff.format))

				s, err := NewParser(0).Parse(ff.file, buf.Bytes())
				require.NoError(t, err)
				require.Len(t, s.Rows, len(cfg.TemplateRows))

				mapping := core.AutoMap(s.Headers, cfg)
				assert.Empty(t, mapping.Unmapped(cfg))
				for _, key := range cfg.RequiredFields() {
					assert.Contains(t, mapping, key)
				}

				counts := core.CountRows(core.Validate(s.Rows, mapping, cfg))
				assert.Zero(t, counts.Error)
				assert.Zero(t, counts.Warning)
				assert.Equal(t, len(cfg.TemplateRows), counts.Valid)
			})
		}
	}
}

func TestItemsTemplateScenario(t *testing.T) {
	tpl, err := core.GenerateTemplate("items")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTemplateXLSX(&buf, tpl))

	s, err := NewParser(0).Parse("items-template.xlsx", buf.Bytes())
	require.NoError(t, err)

	cfg, _ := core.GetConfig("items")
	rows := core.Validate(s.Rows, core.AutoMap(s.Headers, cfg), cfg)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, core.StatusValid, r.Status)
		assert.Empty(t, r.Errors)
	}

	price, ok := rows[0].Data.Number("sale_price")
	require.True(t, ok)
	assert.Equal(t, "29.99", price.String())
	assert.Equal(t, "WGT-001", rows[0].Data.Text("sku"))
}

func TestWriteTemplateXLSXLayout(t *testing.T) {
	tpl, err := core.GenerateTemplate("accounts")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTemplateXLSX(&buf, tpl))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"accounts"}, f.GetSheetList())

	header, err := f.GetCellValue("accounts", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Account Code", header)

	// Opening balance is numeric
	typ, err := f.GetCellType("accounts", "G2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
	assert.NotEqual(t, excelize.CellTypeInlineString, typ)
}

func TestWriteTemplateCSV(t *testing.T) {
	tpl, err := core.GenerateTemplate("contacts")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTemplateCSV(&buf, tpl))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Name,Email,Phone,Type,Address,City,Country,Tax Number", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "John Doe,john@example.com"))
}

func TestWriteTemplateUnknownFormat(t *testing.T) {
	err := WriteTemplate(&bytes.Buffer{}, core.Template{}, Format("pdf"))
	assert.Error(t, err)
}
