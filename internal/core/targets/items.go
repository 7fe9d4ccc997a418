package targets

import "github.com/edrees2022/log-and-ledger-sub006/internal/core"

func init() {
	registerItems()
}

func registerItems() {
	core.Register(core.ImportTypeConfig{
		ID:    Items,
		Label: "Products & Services",
		Fields: []core.FieldSpec{
			{Key: "name", Label: "Name", Required: true, Type: core.FieldText},
			{Key: "sku", Label: "SKU", Type: core.FieldText},
			{Key: "description", Label: "Description", Type: core.FieldText},
			{Key: "type", Label: "Type", Required: true, Type: core.FieldText},
			{Key: "unit", Label: "Unit", Type: core.FieldText},
			{Key: "sale_price", Label: "Sale Price", Type: core.FieldNumeric},
			{Key: "purchase_price", Label: "Purchase Price", Type: core.FieldNumeric},
			{Key: "quantity", Label: "Quantity", Type: core.FieldNumeric},
		},
		TemplateRows: []map[string]any{
			{
				"name":           "Widget A",
				"sku":            "WGT-001",
				"description":    "Standard widget",
				"type":           "product",
				"unit":           "pcs",
				"sale_price":     29.99,
				"purchase_price": 15.00,
				"quantity":       100,
			},
			{
				"name":           "Consulting Hour",
				"sku":            "SRV-001",
				"description":    "Consulting service",
				"type":           "service",
				"unit":           "hour",
				"sale_price":     150.00,
				"purchase_price": 0,
				"quantity":       0,
			},
		},
	})
}
