package targets

import "github.com/edrees2022/log-and-ledger-sub006/internal/core"

func init() {
	registerContacts()
}

func registerContacts() {
	core.Register(core.ImportTypeConfig{
		ID:    Contacts,
		Label: "Contacts",
		Fields: []core.FieldSpec{
			{Key: "name", Label: "Name", Required: true, Type: core.FieldText},
			{Key: "email", Label: "Email", Type: core.FieldText},
			{Key: "phone", Label: "Phone", Type: core.FieldText},
			{Key: "type", Label: "Type", Required: true, Type: core.FieldText},
			{Key: "address", Label: "Address", Type: core.FieldText},
			{Key: "city", Label: "City", Type: core.FieldText},
			{Key: "country", Label: "Country", Type: core.FieldText},
			{Key: "tax_number", Label: "Tax Number", Type: core.FieldText},
		},
		TemplateRows: []map[string]any{
			{
				"name":       "John Doe",
				"email":      "john@example.com",
				"phone":      "+1234567890",
				"type":       "customer",
				"address":    "123 Main St",
				"city":       "New York",
				"country":    "USA",
				"tax_number": "",
			},
			{
				"name":       "ABC Company",
				"email":      "info@abc.com",
				"phone":      "+0987654321",
				"type":       "vendor",
				"address":    "456 Oak Ave",
				"city":       "Los Angeles",
				"country":    "USA",
				"tax_number": "123456789",
			},
		},
	})
}
