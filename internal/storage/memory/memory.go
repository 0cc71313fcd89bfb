// Package memory provides a simple in-memory implementation used for development and tests.
// It mirrors the Postgres store closely enough that handler tests exercise the same contract.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tinoosan/invoices/internal/errs"
	"github.com/tinoosan/invoices/internal/invoice"
)

// invoiceKey tracks ordering of invoices: sorted asc by (Date, ID)
type invoiceKey struct {
	Date time.Time
	ID   int64
}

func (k invoiceKey) less(o invoiceKey) bool {
	if k.Date.Equal(o.Date) {
		return k.ID < o.ID
	}
	return k.Date.Before(o.Date)
}

// Store is an in-memory implementation of the invoicing repo+writer.
// It is guarded by an RWMutex for concurrent reads/writes.
type Store struct {
	mu       sync.RWMutex
	invoices map[int64]invoice.Invoice
	items    map[int64]invoice.Item
	keys     []invoiceKey
	nextInv  int64
	nextItem int64
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		invoices: make(map[int64]invoice.Invoice),
		items:    make(map[int64]invoice.Item),
	}
}

// Reset drops all rows and restarts id sequences.
func (s *Store) Reset() {
	s.mu.Lock()
	s.invoices = map[int64]invoice.Invoice{}
	s.items = map[int64]invoice.Item{}
	s.keys = nil
	s.nextInv, s.nextItem = 0, 0
	s.mu.Unlock()
}

// Ready always succeeds for the in-memory store.
func (s *Store) Ready(context.Context) error { return nil }

// --- Invoice reads ---

// ListInvoices returns all invoices, newest date first.
func (s *Store) ListInvoices(_ context.Context) ([]invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLocked(s.keys), nil
}

// GetInvoice returns a single invoice by id.
func (s *Store) GetInvoice(_ context.Context, id int64) (invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return invoice.Invoice{}, errs.ErrNotFound
	}
	return inv, nil
}

// InvoicesOn returns invoices dated on day.
func (s *Store) InvoicesOn(ctx context.Context, day time.Time) ([]invoice.Invoice, error) {
	return s.InvoicesBetween(ctx, day, day)
}

// InvoicesBetween returns invoices with begin <= date <= end, newest first.
func (s *Store) InvoicesBetween(_ context.Context, begin, end time.Time) ([]invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLocked(s.rangeLocked(begin, end)), nil
}

// --- Item reads ---

// ListItems returns every item ordered by id.
func (s *Store) ListItems(_ context.Context) ([]invoice.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.itemsLocked(func(invoice.Item) bool { return true }), nil
}

// ItemsByInvoice returns the items of one invoice ordered by id.
func (s *Store) ItemsByInvoice(_ context.Context, invoiceID int64) ([]invoice.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.itemsLocked(func(it invoice.Item) bool { return it.InvoiceID == invoiceID }), nil
}

// --- Writes ---

// CreateInvoice stores the invoice and its items under fresh ids.
func (s *Store) CreateInvoice(_ context.Context, inv invoice.Invoice, items []invoice.Item) (invoice.Invoice, error) {
	inv, err := rounded(inv)
	if err != nil {
		return invoice.Invoice{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextInv++
	inv.ID = s.nextInv
	s.invoices[inv.ID] = inv
	s.insertKeyLocked(invoiceKey{Date: inv.DateCreated, ID: inv.ID})
	s.insertItemsLocked(inv.ID, items)
	return inv, nil
}

// ReplaceInvoice overwrites an invoice and swaps its items.
func (s *Store) ReplaceInvoice(_ context.Context, inv invoice.Invoice, items []invoice.Item) (invoice.Invoice, error) {
	inv, err := rounded(inv)
	if err != nil {
		return invoice.Invoice{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.invoices[inv.ID]
	if !ok {
		return invoice.Invoice{}, errs.ErrNotFound
	}
	s.removeKeyLocked(invoiceKey{Date: prev.DateCreated, ID: prev.ID})
	s.invoices[inv.ID] = inv
	s.insertKeyLocked(invoiceKey{Date: inv.DateCreated, ID: inv.ID})
	s.deleteItemsLocked(inv.ID)
	s.insertItemsLocked(inv.ID, items)
	return inv, nil
}

// DeleteInvoice removes the items of an invoice and then the invoice. Missing ids are not an error.
func (s *Store) DeleteInvoice(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteItemsLocked(id)
	if prev, ok := s.invoices[id]; ok {
		s.removeKeyLocked(invoiceKey{Date: prev.DateCreated, ID: prev.ID})
		delete(s.invoices, id)
	}
	return nil
}

// --- helpers; callers must hold s.mu ---

func rounded(inv invoice.Invoice) (invoice.Invoice, error) {
	p, err := invoice.RoundHalfUp(inv.Price, invoice.MoneyScale)
	if err != nil {
		return invoice.Invoice{}, err
	}
	inv.Price = p
	inv.DateCreated = invoice.Day(inv.DateCreated)
	return inv, nil
}

// collectLocked resolves keys to invoices in reverse (newest first) order.
func (s *Store) collectLocked(keys []invoiceKey) []invoice.Invoice {
	out := make([]invoice.Invoice, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if inv, ok := s.invoices[keys[i].ID]; ok {
			out = append(out, inv)
		}
	}
	return out
}

func (s *Store) itemsLocked(keep func(invoice.Item) bool) []invoice.Item {
	out := make([]invoice.Item, 0)
	for _, it := range s.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) insertItemsLocked(invoiceID int64, items []invoice.Item) {
	for _, it := range items {
		s.nextItem++
		it.ID = s.nextItem
		it.InvoiceID = invoiceID
		s.items[it.ID] = it
	}
}

func (s *Store) deleteItemsLocked(invoiceID int64) {
	for id, it := range s.items {
		if it.InvoiceID == invoiceID {
			delete(s.items, id)
		}
	}
}

// insertKeyLocked inserts k keeping s.keys sorted asc by (Date, ID).
func (s *Store) insertKeyLocked(k invoiceKey) {
	i := sort.Search(len(s.keys), func(i int) bool { return k.less(s.keys[i]) })
	s.keys = append(s.keys, invoiceKey{})
	copy(s.keys[i+1:], s.keys[i:])
	s.keys[i] = k
}

func (s *Store) removeKeyLocked(k invoiceKey) {
	i := sort.Search(len(s.keys), func(i int) bool { return !s.keys[i].less(k) })
	if i < len(s.keys) && s.keys[i].ID == k.ID {
		s.keys = append(s.keys[:i], s.keys[i+1:]...)
	}
}

// rangeLocked returns the keys with from <= Date <= to.
func (s *Store) rangeLocked(from, to time.Time) []invoiceKey {
	if from.After(to) {
		return nil
	}
	start := sort.Search(len(s.keys), func(i int) bool { return !s.keys[i].Date.Before(from) })
	end := sort.Search(len(s.keys), func(i int) bool { return s.keys[i].Date.After(to) })
	if start >= end {
		return nil
	}
	return s.keys[start:end]
}
