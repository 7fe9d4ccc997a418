package store

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
)

// ContactDTO is a contacts row before insert.
type ContactDTO struct {
	Name      string `json:"name" validate:"required,max=255"`
	Email     string `json:"email" validate:"omitempty,email,max=255"`
	Phone     string `json:"phone" validate:"max=50"`
	Type      string `json:"type" validate:"required,oneof=customer vendor supplier both"`
	Address   string `json:"address"`
	City      string `json:"city" validate:"max=100"`
	Country   string `json:"country" validate:"max=100"`
	TaxNumber string `json:"tax_number" validate:"max=50"`
}

// Normalize trims text and lower-cases the contact type.
func (d *ContactDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Type = strings.ToLower(strings.TrimSpace(d.Type))
	d.Address = strings.TrimSpace(d.Address)
	d.City = strings.TrimSpace(d.City)
	d.Country = strings.TrimSpace(d.Country)
	d.TaxNumber = strings.TrimSpace(d.TaxNumber)
}

// ContactFromRow binds a canonical contacts row.
func ContactFromRow(row core.CanonicalRow) ContactDTO {
	d := ContactDTO{
		Name:      row.Text("name"),
		Email:     row.Text("email"),
		Phone:     row.Text("phone"),
		Type:      row.Text("type"),
		Address:   row.Text("address"),
		City:      row.Text("city"),
		Country:   row.Text("country"),
		TaxNumber: row.Text("tax_number"),
	}
	d.Normalize()
	return d
}

// ItemDTO is an items row before insert. Unit maps to unit_of_measure,
// SalePrice to sales_price, PurchasePrice to cost_price and Quantity to
// stock_quantity.
type ItemDTO struct {
	Name          string          `json:"name" validate:"required,max=255"`
	SKU           string          `json:"sku" validate:"max=100"`
	Description   string          `json:"description"`
	Type          string          `json:"type" validate:"required,oneof=product service inventory"`
	Unit          string          `json:"unit" validate:"max=50"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Quantity      decimal.Decimal `json:"quantity"`
}

// Normalize trims text and lower-cases the item type.
func (d *ItemDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.SKU = strings.TrimSpace(d.SKU)
	d.Description = strings.TrimSpace(d.Description)
	d.Type = strings.ToLower(strings.TrimSpace(d.Type))
	d.Unit = strings.TrimSpace(d.Unit)
}

// ItemFromRow binds a canonical items row. Unmapped numbers are zero.
func ItemFromRow(row core.CanonicalRow) ItemDTO {
	d := ItemDTO{
		Name:          row.Text("name"),
		SKU:           row.Text("sku"),
		Description:   row.Text("description"),
		Type:          row.Text("type"),
		Unit:          row.Text("unit"),
		SalePrice:     number(row, "sale_price"),
		PurchasePrice: number(row, "purchase_price"),
		Quantity:      number(row, "quantity"),
	}
	d.Normalize()
	return d
}

// AccountDTO is an accounts row before insert. ParentCode is resolved to
// parent_id at insert time.
type AccountDTO struct {
	Code           string          `json:"code" validate:"required,max=50"`
	Name           string          `json:"name" validate:"required,max=255"`
	AccountType    string          `json:"account_type" validate:"required,oneof=asset liability equity revenue expense"`
	AccountSubtype string          `json:"account_subtype" validate:"max=100"`
	ParentCode     string          `json:"parent_code" validate:"max=50"`
	Description    string          `json:"description"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// Normalize trims text and lower-cases the account type.
func (d *AccountDTO) Normalize() {
	d.Code = strings.TrimSpace(d.Code)
	d.Name = strings.TrimSpace(d.Name)
	d.AccountType = strings.ToLower(strings.TrimSpace(d.AccountType))
	d.AccountSubtype = strings.TrimSpace(d.AccountSubtype)
	d.ParentCode = strings.TrimSpace(d.ParentCode)
	d.Description = strings.TrimSpace(d.Description)
}

// AccountFromRow binds a canonical accounts row.
func AccountFromRow(row core.CanonicalRow) AccountDTO {
	d := AccountDTO{
		Code:           row.Text("code"),
		Name:           row.Text("name"),
		AccountType:    row.Text("account_type"),
		AccountSubtype: row.Text("account_subtype"),
		ParentCode:     row.Text("parent_code"),
		Description:    row.Text("description"),
		OpeningBalance: number(row, "opening_balance"),
	}
	d.Normalize()
	return d
}

func number(row core.CanonicalRow, key string) decimal.Decimal {
	n, _ := row.Number(key)
	return n
}
