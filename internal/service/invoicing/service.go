package invoicing

import (
	"context"
	"fmt"
	"time"

	"github.com/govalues/money"

	"github.com/tinoosan/invoices/internal/errs"
	"github.com/tinoosan/invoices/internal/invoice"
)

// DefaultCurrency is used for summaries when no currency is configured.
const DefaultCurrency = "USD"

// Repo defines read operations needed by the service.
type Repo interface {
	ListInvoices(ctx context.Context) ([]invoice.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (invoice.Invoice, error)
	InvoicesOn(ctx context.Context, day time.Time) ([]invoice.Invoice, error)
	InvoicesBetween(ctx context.Context, begin, end time.Time) ([]invoice.Invoice, error)
	ListItems(ctx context.Context) ([]invoice.Item, error)
	ItemsByInvoice(ctx context.Context, invoiceID int64) ([]invoice.Item, error)
}

// Writer defines write operations needed by the service. Each call is
// expected to be atomic.
type Writer interface {
	// CreateInvoice inserts the invoice and its items, returning the invoice
	// with its generated id.
	CreateInvoice(ctx context.Context, inv invoice.Invoice, items []invoice.Item) (invoice.Invoice, error)
	// ReplaceInvoice overwrites the invoice fields and swaps its item set.
	// Returns errs.ErrNotFound when the invoice does not exist.
	ReplaceInvoice(ctx context.Context, inv invoice.Invoice, items []invoice.Item) (invoice.Invoice, error)
	// DeleteInvoice removes the invoice items and then the invoice.
	DeleteInvoice(ctx context.Context, id int64) error
}

// Summary is an invoice with its details and the sum of the line totals.
type Summary struct {
	Invoice    invoice.Invoice
	Items      []invoice.Item
	ItemsTotal money.Amount
}

// Service exposes invoice validation, persistence and reporting helpers.
type Service interface {
	Validate(inv invoice.Invoice, items []invoice.Item) error
	CreateInvoice(ctx context.Context, inv invoice.Invoice, items []invoice.Item) (invoice.Invoice, error)
	UpdateInvoice(ctx context.Context, inv invoice.Invoice, items []invoice.Item) (invoice.Invoice, error)
	DeleteInvoice(ctx context.Context, id int64) error
	ListInvoices(ctx context.Context) ([]invoice.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (invoice.Invoice, error)
	InvoicesToday(ctx context.Context) ([]invoice.Invoice, error)
	InvoicesBetween(ctx context.Context, begin, end time.Time) ([]invoice.Invoice, error)
	ListItems(ctx context.Context) ([]invoice.Item, error)
	ItemsByInvoice(ctx context.Context, invoiceID int64) ([]invoice.Item, error)
	Summary(ctx context.Context, id int64) (Summary, error)
}

// Option customises the service.
type Option func(*service)

// WithCurrency sets the ISO 4217 code used for summary amounts.
func WithCurrency(code string) Option {
	return func(s *service) {
		if code != "" {
			s.currency = code
		}
	}
}

// WithClock overrides the clock used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	repo     Repo
	writer   Writer
	currency string
	now      func() time.Time
}

func New(repo Repo, writer Writer, opts ...Option) Service {
	s := &service{repo: repo, writer: writer, currency: DefaultCurrency, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Validate(inv invoice.Invoice, items []invoice.Item) error {
	if inv.DateCreated.IsZero() {
		return fmt.Errorf("%w: date is required", errs.ErrUnprocessable)
	}
	for i, it := range items {
		if it.Name == "" {
			return fieldErr(i, "name is required")
		}
		if _, err := it.Total(); err != nil {
			return fieldErr(i, "total out of range")
		}
	}
	return nil
}

func (s *service) CreateInvoice(ctx context.Context, inv invoice.Invoice, items []invoice.Item) (invoice.Invoice, error) {
	// Assume Validate has been called; round and persist atomically.
	inv, err := normalise(inv)
	if err != nil {
		return invoice.Invoice{}, err
	}
	inv.ID = 0
	return s.writer.CreateInvoice(ctx, inv, items)
}

// UpdateInvoice replaces the general information and all detail lines.
func (s *service) UpdateInvoice(ctx context.Context, inv invoice.Invoice, items []invoice.Item) (invoice.Invoice, error) {
	if inv.ID <= 0 {
		return invoice.Invoice{}, errs.ErrInvalid
	}
	inv, err := normalise(inv)
	if err != nil {
		return invoice.Invoice{}, err
	}
	return s.writer.ReplaceInvoice(ctx, inv, items)
}

func (s *service) DeleteInvoice(ctx context.Context, id int64) error {
	if id <= 0 {
		return errs.ErrInvalid
	}
	return s.writer.DeleteInvoice(ctx, id)
}

func (s *service) ListInvoices(ctx context.Context) ([]invoice.Invoice, error) {
	return s.repo.ListInvoices(ctx)
}

func (s *service) GetInvoice(ctx context.Context, id int64) (invoice.Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// InvoicesToday returns invoices dated on the server's current local date.
func (s *service) InvoicesToday(ctx context.Context) ([]invoice.Invoice, error) {
	return s.repo.InvoicesOn(ctx, invoice.Day(s.now()))
}

func (s *service) InvoicesBetween(ctx context.Context, begin, end time.Time) ([]invoice.Invoice, error) {
	if begin.After(end) {
		return []invoice.Invoice{}, nil
	}
	return s.repo.InvoicesBetween(ctx, invoice.Day(begin), invoice.Day(end))
}

func (s *service) ListItems(ctx context.Context) ([]invoice.Item, error) {
	return s.repo.ListItems(ctx)
}

func (s *service) ItemsByInvoice(ctx context.Context, invoiceID int64) ([]invoice.Item, error) {
	return s.repo.ItemsByInvoice(ctx, invoiceID)
}

// Summary loads an invoice with its lines and sums the line totals in the
// configured currency.
func (s *service) Summary(ctx context.Context, id int64) (Summary, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	items, err := s.repo.ItemsByInvoice(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	total, err := money.ParseAmount(s.currency, "0.00")
	if err != nil {
		return Summary{}, err
	}
	for _, it := range items {
		lt, err := it.Total()
		if err != nil {
			return Summary{}, err
		}
		amt, err := money.ParseAmount(s.currency, lt.String())
		if err != nil {
			return Summary{}, err
		}
		if total, err = total.Add(amt); err != nil {
			return Summary{}, err
		}
	}
	return Summary{Invoice: inv, Items: items, ItemsTotal: total}, nil
}

// normalise rounds the price to the money scale and pins the date to a
// calendar day.
func normalise(inv invoice.Invoice) (invoice.Invoice, error) {
	p, err := invoice.RoundHalfUp(inv.Price, invoice.MoneyScale)
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("%w: price out of range", errs.ErrUnprocessable)
	}
	inv.Price = p
	inv.DateCreated = invoice.Day(inv.DateCreated)
	return inv, nil
}

func fieldErr(i int, msg string) error {
	return fmt.Errorf("%w: details[%d]: %s", errs.ErrUnprocessable, i, msg)
}
