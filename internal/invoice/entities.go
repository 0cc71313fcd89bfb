// Package invoice holds the domain types shared by the service, storage and
// HTTP layers.
package invoice

import (
	"time"

	"github.com/govalues/decimal"
)

// Invoice is the general information of a billable record, without its lines.
type Invoice struct {
	ID       int64
	Price    decimal.Decimal
	Location string
	// DateCreated is a calendar date, normalised to midnight UTC.
	DateCreated time.Time
	Notes       *string
}

// Item is one detail line of an invoice.
type Item struct {
	ID        int64
	InvoiceID int64
	Name      string
	// Price is the unit cost.
	Price decimal.Decimal
	Qty   decimal.Decimal
	Notes *string
}

// Total returns quantity * unit cost rounded to two places.
func (it Item) Total() (decimal.Decimal, error) {
	t, err := it.Qty.Mul(it.Price)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return RoundHalfUp(t, MoneyScale)
}
