package targets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
)

func TestBuiltinTargetsRegistered(t *testing.T) {
	for _, id := range []string{Contacts, Items, Accounts} {
		cfg, err := core.GetConfig(id)
		require.NoError(t, err, id)
		assert.NotEmpty(t, cfg.Fields, id)
		assert.NotEmpty(t, cfg.RequiredFields(), id)
		assert.Len(t, cfg.TemplateRows, 2, id)
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	for _, id := range []string{Contacts, Items, Accounts} {
		t.Run(id, func(t *testing.T) {
			tpl, err := core.GenerateTemplate(id)
			require.NoError(t, err)

			rows := make([]core.RawRow, len(tpl.Rows))
			for i, cells := range tpl.Rows {
				raw := make(core.RawRow, len(cells))
				for j, h := range tpl.Headers {
					raw[h] = cells[j]
				}
				rows[i] = raw
			}

			cfg, _ := core.GetConfig(id)
			mapping := core.AutoMap(tpl.Headers, cfg)
			for _, f := range cfg.Fields {
				assert.Equal(t, f.Label, mapping[f.Key], "field %s", f.Key)
			}

			parsed := core.Validate(rows, mapping, cfg)
			counts := core.CountRows(parsed)
			assert.Equal(t, len(rows), counts.Valid)
			assert.Zero(t, counts.Error)
			assert.Zero(t, counts.Warning)
		})
	}
}

func TestAccountsContainmentTakesFirstHeader(t *testing.T) {
	cfg, err := core.GetConfig(Accounts)
	require.NoError(t, err)

	mapping := core.AutoMap([]string{"Parent Code", "Account Code", "Account Name", "Account Type"}, cfg)
	assert.Equal(t, "Parent Code", mapping["parent_code"])
	// "Parent Code" comes first and contains "code"
	assert.Equal(t, "Parent Code", mapping["code"])
	assert.Equal(t, "Account Name", mapping["name"])
}
