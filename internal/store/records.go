package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
	"github.com/edrees2022/log-and-ledger-sub006/internal/core/targets"
)

// Create inserts one canonical row into the table for target and returns the
// new record ID. Rule violations come back as *ValidationError and database
// rejections as *DBError; both end up as row failures in the import result.
func (s *Store) Create(ctx context.Context, target string, row core.CanonicalRow) (string, error) {
	switch target {
	case targets.Contacts:
		return s.createContact(ctx, ContactFromRow(row))
	case targets.Items:
		return s.createItem(ctx, ItemFromRow(row))
	case targets.Accounts:
		return s.createAccount(ctx, AccountFromRow(row))
	default:
		return "", &core.UnknownTargetError{Target: target}
	}
}

func (s *Store) createContact(ctx context.Context, d ContactDTO) (string, error) {
	if err := check(d); err != nil {
		return "", err
	}

	var id pgtype.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO contacts (company_id, type, name, email, phone, address, city, country, tax_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		s.companyID, d.Type, d.Name,
		toPgText(d.Email), toPgText(d.Phone), toPgText(d.Address),
		toPgText(d.City), toPgText(d.Country), toPgText(d.TaxNumber),
	).Scan(&id)
	if err != nil {
		return "", dbError("create contact", err)
	}
	return uuidString(id), nil
}

func (s *Store) createItem(ctx context.Context, d ItemDTO) (string, error) {
	if err := check(d); err != nil {
		return "", err
	}

	var id pgtype.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO items (company_id, type, sku, name, description, unit_of_measure,
		                   sales_price, cost_price, stock_quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9::numeric)
		RETURNING id`,
		s.companyID, d.Type, toPgText(d.SKU), d.Name,
		toPgText(d.Description), toPgText(d.Unit),
		numeric(d.SalePrice), numeric(d.PurchasePrice), numeric(d.Quantity),
	).Scan(&id)
	if err != nil {
		return "", dbError("create item", err)
	}
	return uuidString(id), nil
}

func (s *Store) createAccount(ctx context.Context, d AccountDTO) (string, error) {
	if err := check(d); err != nil {
		return "", err
	}

	parent := pgtype.UUID{}
	if d.ParentCode != "" {
		err := s.pool.QueryRow(ctx,
			`SELECT id FROM accounts WHERE company_id = $1 AND code = $2`,
			s.companyID, d.ParentCode,
		).Scan(&parent)
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("parent account %s not found", d.ParentCode)
		}
		if err != nil {
			return "", dbError("resolve parent account", err)
		}
	}

	var id pgtype.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (company_id, code, name, account_type, account_subtype,
		                      parent_id, description, opening_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric)
		RETURNING id`,
		s.companyID, d.Code, d.Name, d.AccountType, toPgText(d.AccountSubtype),
		parent, toPgText(d.Description), numeric(d.OpeningBalance),
	).Scan(&id)
	if err != nil {
		return "", dbError("create account", err)
	}
	return uuidString(id), nil
}

// DBError is a PostgreSQL rejection reduced to its message.
type DBError struct {
	Op      string
	Code    string // SQLSTATE
	Message string
	Detail  string
	Err     error
}

func (e *DBError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *DBError) Unwrap() error {
	return e.Err
}

// dbError keeps PostgreSQL messages readable in row failures and wraps
// everything else with the operation.
func dbError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &DBError{
			Op:      op,
			Code:    pgErr.Code,
			Message: pgErr.Message,
			Detail:  pgErr.Detail,
			Err:     err,
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func numeric(d decimal.Decimal) string {
	return d.String()
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}
