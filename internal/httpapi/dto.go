package httpapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/govalues/decimal"

	"github.com/tinoosan/invoices/internal/invoice"
	"github.com/tinoosan/invoices/internal/service/invoicing"
)

// jsonDecimal accepts either a JSON number or a numeric string.
type jsonDecimal struct {
	decimal.Decimal
}

func (d *jsonDecimal) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	v, err := decimal.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid decimal %q", s)
	}
	d.Decimal = v
	return nil
}

// POST /AddInvoice

type addInvoiceRequest struct {
	Invoice struct {
		InvoiceInfo invoiceInfo `json:"invoiceInfo"`
	} `json:"invoice"`
	Details struct {
		Rows []detailLine `json:"rows"`
	} `json:"details"`
}

type invoiceInfo struct {
	Location     string       `json:"location"`
	InvoiceNotes *string      `json:"invoiceNotes"`
	Date         string       `json:"date"`
	Total        *jsonDecimal `json:"total"`
}

type detailLine struct {
	Name     string       `json:"name"`
	Cost     *jsonDecimal `json:"cost"`
	Quantity *jsonDecimal `json:"quantity"`
	Notes    *string      `json:"notes"`
}

// PUT /Update

type updateInvoiceRequest struct {
	General struct {
		ID           *int64       `json:"id"`
		Price        *jsonDecimal `json:"price"`
		Location     string       `json:"location"`
		Date         string       `json:"date"`
		InvoiceNotes *string      `json:"invoiceNotes"`
	} `json:"general"`
	Details []detailLine `json:"details"`
}

// invoiceInput is the validated body of a create or update request.
type invoiceInput struct {
	Invoice invoice.Invoice
	Items   []invoice.Item
}

// Responses. Keys follow the table columns.

type invoiceRow struct {
	ID           int64   `json:"id"`
	Price        string  `json:"price"`
	Location     string  `json:"location"`
	DateCreated  string  `json:"date_created"`
	InvoiceNotes *string `json:"invoice_notes"`
}

type itemRow struct {
	ID        int64   `json:"id"`
	InvoiceID int64   `json:"invoice_id"`
	ItemName  string  `json:"item_name"`
	ItemPrice string  `json:"item_price"`
	ItemQty   string  `json:"item_qty"`
	ItemNotes *string `json:"item_notes"`
	Total     string  `json:"total"`
}

type summaryResponse struct {
	Invoice    invoiceRow `json:"invoice"`
	Details    []itemRow  `json:"details"`
	ItemsTotal string     `json:"items_total"`
	Currency   string     `json:"currency"`
}

func toInvoiceRow(inv invoice.Invoice) invoiceRow {
	return invoiceRow{
		ID:           inv.ID,
		Price:        invoice.FormatMoney(inv.Price),
		Location:     inv.Location,
		DateCreated:  invoice.FormatDate(inv.DateCreated),
		InvoiceNotes: inv.Notes,
	}
}

func toInvoiceRows(list []invoice.Invoice) []invoiceRow {
	out := make([]invoiceRow, 0, len(list))
	for _, inv := range list {
		out = append(out, toInvoiceRow(inv))
	}
	return out
}

func toItemRows(items []invoice.Item) ([]itemRow, error) {
	out := make([]itemRow, 0, len(items))
	for _, it := range items {
		total, err := it.Total()
		if err != nil {
			return nil, fmt.Errorf("total of item %d: %w", it.ID, err)
		}
		out = append(out, itemRow{
			ID:        it.ID,
			InvoiceID: it.InvoiceID,
			ItemName:  it.Name,
			ItemPrice: it.Price.String(),
			ItemQty:   it.Qty.String(),
			ItemNotes: it.Notes,
			Total:     invoice.FormatMoney(total),
		})
	}
	return out, nil
}

func toSummaryResponse(sum invoicing.Summary) (summaryResponse, error) {
	details, err := toItemRows(sum.Items)
	if err != nil {
		return summaryResponse{}, err
	}
	return summaryResponse{
		Invoice:    toInvoiceRow(sum.Invoice),
		Details:    details,
		ItemsTotal: invoice.FormatMoney(sum.ItemsTotal.Decimal()),
		Currency:   sum.ItemsTotal.Curr().Code(),
	}, nil
}

// --- request -> domain ---

func (req addInvoiceRequest) toInput() (invoiceInput, error) {
	info := req.Invoice.InvoiceInfo
	date, err := dateField("invoice.invoiceInfo.date", info.Date)
	if err != nil {
		return invoiceInput{}, err
	}
	if info.Total == nil {
		return invoiceInput{}, missingField("invoice.invoiceInfo.total")
	}
	items, err := toItems("details.rows", req.Details.Rows)
	if err != nil {
		return invoiceInput{}, err
	}
	return invoiceInput{
		Invoice: invoice.Invoice{Price: info.Total.Decimal, Location: info.Location, DateCreated: date, Notes: info.InvoiceNotes},
		Items:   items,
	}, nil
}

func (req updateInvoiceRequest) toInput() (invoiceInput, error) {
	g := req.General
	if g.ID == nil {
		return invoiceInput{}, missingField("general.id")
	}
	if *g.ID <= 0 {
		return invoiceInput{}, &fieldError{code: "invalid_id", msg: "general.id must be positive"}
	}
	date, err := dateField("general.date", g.Date)
	if err != nil {
		return invoiceInput{}, err
	}
	if g.Price == nil {
		return invoiceInput{}, missingField("general.price")
	}
	items, err := toItems("details", req.Details)
	if err != nil {
		return invoiceInput{}, err
	}
	return invoiceInput{
		Invoice: invoice.Invoice{ID: *g.ID, Price: g.Price.Decimal, Location: g.Location, DateCreated: date, Notes: g.InvoiceNotes},
		Items:   items,
	}, nil
}

func toItems(field string, lines []detailLine) ([]invoice.Item, error) {
	items := make([]invoice.Item, 0, len(lines))
	for i, ln := range lines {
		prefix := fmt.Sprintf("%s[%d].", field, i)
		name := strings.TrimSpace(ln.Name)
		if name == "" {
			return nil, missingField(prefix + "name")
		}
		if ln.Cost == nil {
			return nil, missingField(prefix + "cost")
		}
		if ln.Quantity == nil {
			return nil, missingField(prefix + "quantity")
		}
		items = append(items, invoice.Item{Name: name, Price: ln.Cost.Decimal, Qty: ln.Quantity.Decimal, Notes: ln.Notes})
	}
	return items, nil
}
