// Package postgres provides a pgx-backed storage implementation that satisfies
// the repo and writer interfaces used by the invoicing service.
//
// The expected schema lives under db/migrations. This package maps between
// the domain entities and SQL rows and runs the statements/transactions.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/invoices/internal/errs"
	"github.com/tinoosan/invoices/internal/invoice"
)

// Store holds a pgx connection pool and implements the read/write interfaces
// used by the service layer. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

const invoiceColumns = `id, price::text, location, date_created, invoice_notes`
const itemColumns = `id, invoice_id, item_name, item_price::text, item_qty::text, item_notes`

// --- Invoice reads ---

// ListInvoices returns every invoice, newest date first.
func (s *Store) ListInvoices(ctx context.Context) ([]invoice.Invoice, error) {
	return s.queryInvoices(ctx, `
        select `+invoiceColumns+`
        from invoice
        order by date_created desc, id desc
    `)
}

// GetInvoice fetches a single invoice by id.
func (s *Store) GetInvoice(ctx context.Context, id int64) (invoice.Invoice, error) {
	row := s.pool.QueryRow(ctx, `select `+invoiceColumns+` from invoice where id = $1`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return invoice.Invoice{}, errs.ErrNotFound
	}
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("get invoice %d: %w", id, err)
	}
	return inv, nil
}

// InvoicesOn returns the invoices dated on day.
func (s *Store) InvoicesOn(ctx context.Context, day time.Time) ([]invoice.Invoice, error) {
	return s.queryInvoices(ctx, `
        select `+invoiceColumns+`
        from invoice
        where date_created = $1
        order by id desc
    `, day)
}

// InvoicesBetween returns invoices with begin <= date_created <= end.
func (s *Store) InvoicesBetween(ctx context.Context, begin, end time.Time) ([]invoice.Invoice, error) {
	return s.queryInvoices(ctx, `
        select `+invoiceColumns+`
        from invoice
        where date_created between $1 and $2
        order by date_created desc, id desc
    `, begin, end)
}

// --- Item reads ---

// ListItems returns every invoice_item row.
func (s *Store) ListItems(ctx context.Context) ([]invoice.Item, error) {
	return s.queryItems(ctx, `select `+itemColumns+` from invoice_item order by id`)
}

// ItemsByInvoice returns the items belonging to one invoice.
func (s *Store) ItemsByInvoice(ctx context.Context, invoiceID int64) ([]invoice.Item, error) {
	return s.queryItems(ctx, `
        select `+itemColumns+`
        from invoice_item
        where invoice_id = $1
        order by id
    `, invoiceID)
}

// --- Writes ---

// CreateInvoice inserts the invoice and its items in one transaction.
func (s *Store) CreateInvoice(ctx context.Context, inv invoice.Invoice, items []invoice.Item) (invoice.Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return invoice.Invoice{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var price string
	err = tx.QueryRow(ctx, `
        insert into invoice (price, location, date_created, invoice_notes)
        values (round($1::numeric, 2), $2, $3, $4)
        returning id, price::text
    `, toNumeric(inv.Price), inv.Location, inv.DateCreated, inv.Notes).Scan(&inv.ID, &price)
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("insert invoice: %w", err)
	}
	if inv.Price, err = decimal.Parse(price); err != nil {
		return invoice.Invoice{}, err
	}
	if err := insertItems(ctx, tx, inv.ID, items); err != nil {
		return invoice.Invoice{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return invoice.Invoice{}, err
	}
	return inv, nil
}

// ReplaceInvoice updates the invoice row and recreates its items from scratch.
func (s *Store) ReplaceInvoice(ctx context.Context, inv invoice.Invoice, items []invoice.Item) (invoice.Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return invoice.Invoice{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
        update invoice
        set price = round($1::numeric, 2), location = $2, date_created = $3, invoice_notes = $4
        where id = $5
    `, toNumeric(inv.Price), inv.Location, inv.DateCreated, inv.Notes, inv.ID)
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("update invoice %d: %w", inv.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return invoice.Invoice{}, errs.ErrNotFound
	}
	if _, err := tx.Exec(ctx, `delete from invoice_item where invoice_id = $1`, inv.ID); err != nil {
		return invoice.Invoice{}, fmt.Errorf("clear items for invoice %d: %w", inv.ID, err)
	}
	if err := insertItems(ctx, tx, inv.ID, items); err != nil {
		return invoice.Invoice{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return invoice.Invoice{}, err
	}
	return inv, nil
}

// DeleteInvoice removes the items of an invoice and then the invoice itself.
// Deleting a missing id is not an error.
func (s *Store) DeleteInvoice(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `delete from invoice_item where invoice_id = $1`, id); err != nil {
		return fmt.Errorf("delete items for invoice %d: %w", id, err)
	}
	if _, err := tx.Exec(ctx, `delete from invoice where id = $1`, id); err != nil {
		return fmt.Errorf("delete invoice %d: %w", id, err)
	}
	return tx.Commit(ctx)
}

// insertItems queues one insert per item in a single batch and waits for all of them.
func insertItems(ctx context.Context, tx pgx.Tx, invoiceID int64, items []invoice.Item) error {
	if len(items) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, it := range items {
		b.Queue(`
            insert into invoice_item (invoice_id, item_name, item_price, item_qty, item_notes)
            values ($1, $2, $3, $4, $5)
        `, invoiceID, it.Name, toNumeric(it.Price), toNumeric(it.Qty), it.Notes)
	}
	br := tx.SendBatch(ctx, b)
	for i := range items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert detail %d: %w", i, err)
		}
	}
	return br.Close()
}

// --- row mapping ---

func (s *Store) queryInvoices(ctx context.Context, sql string, args ...any) ([]invoice.Invoice, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]invoice.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) queryItems(ctx context.Context, sql string, args ...any) ([]invoice.Item, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]invoice.Item, 0)
	for rows.Next() {
		var it invoice.Item
		var price, qty string
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Name, &price, &qty, &it.Notes); err != nil {
			return nil, err
		}
		if it.Price, err = decimal.Parse(price); err != nil {
			return nil, fmt.Errorf("item %d price: %w", it.ID, err)
		}
		if it.Qty, err = decimal.Parse(qty); err != nil {
			return nil, fmt.Errorf("item %d qty: %w", it.ID, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func scanInvoice(row pgx.Row) (invoice.Invoice, error) {
	var inv invoice.Invoice
	var price string
	if err := row.Scan(&inv.ID, &price, &inv.Location, &inv.DateCreated, &inv.Notes); err != nil {
		return invoice.Invoice{}, err
	}
	p, err := decimal.Parse(price)
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("invoice %d price: %w", inv.ID, err)
	}
	inv.Price = p
	inv.DateCreated = invoice.Day(inv.DateCreated)
	return inv, nil
}

// toNumeric converts a decimal into the pgx numeric representation.
func toNumeric(d decimal.Decimal) pgtype.Numeric {
	coef := new(big.Int).SetUint64(d.Coef())
	if d.IsNeg() {
		coef.Neg(coef)
	}
	return pgtype.Numeric{Int: coef, Exp: int32(-d.Scale()), Valid: true}
}
