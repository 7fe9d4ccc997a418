package targets

import "github.com/edrees2022/log-and-ledger-sub006/internal/core"

func init() {
	registerAccounts()
}

// Chart of accounts. "Account Code" and "Account Name" bind to code and name
// through the mapper's containment pass.
func registerAccounts() {
	core.Register(core.ImportTypeConfig{
		ID:    Accounts,
		Label: "Chart of Accounts",
		Fields: []core.FieldSpec{
			{Key: "code", Label: "Account Code", Required: true, Type: core.FieldText},
			{Key: "name", Label: "Account Name", Required: true, Type: core.FieldText},
			{Key: "account_type", Label: "Account Type", Required: true, Type: core.FieldText},
			{Key: "account_subtype", Label: "Account Subtype", Type: core.FieldText},
			{Key: "parent_code", Label: "Parent Code", Type: core.FieldText},
			{Key: "description", Label: "Description", Type: core.FieldText},
			{Key: "opening_balance", Label: "Opening Balance", Type: core.FieldNumeric},
		},
		TemplateRows: []map[string]any{
			{
				"code":            "1100",
				"name":            "Cash",
				"account_type":    "asset",
				"account_subtype": "current_asset",
				"parent_code":     "",
				"description":     "Cash in hand",
				"opening_balance": 10000,
			},
			{
				"code":            "4000",
				"name":            "Sales Revenue",
				"account_type":    "revenue",
				"account_subtype": "",
				"parent_code":     "",
				"description":     "Revenue from sales",
				"opening_balance": 0,
			},
		},
	})
}
