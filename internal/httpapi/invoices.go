package httpapi

import (
	"errors"
	"net/http"

	"github.com/tinoosan/invoices/internal/errs"
)

// listInvoices handles GET /GetAllInvoiceGeneral, newest date first.
func (s *Server) listInvoices(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListInvoices(r.Context())
	if err != nil {
		s.internalError(w, r, "list invoices", err)
		return
	}
	toJSON(w, http.StatusOK, toInvoiceRows(list))
}

// getInvoice handles GET /GetInvoiceGeneral?id=. The response is always an
// array holding zero or one invoice.
func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	inv, err := s.svc.GetInvoice(r.Context(), id)
	if errors.Is(err, errs.ErrNotFound) {
		toJSON(w, http.StatusOK, []invoiceRow{})
		return
	}
	if err != nil {
		s.internalError(w, r, "get invoice", err)
		return
	}
	toJSON(w, http.StatusOK, []invoiceRow{toInvoiceRow(inv)})
}

// invoicesToday handles GET /GetInvoicesFromDate.
func (s *Server) invoicesToday(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.InvoicesToday(r.Context())
	if err != nil {
		s.internalError(w, r, "invoices for today", err)
		return
	}
	toJSON(w, http.StatusOK, toInvoiceRows(list))
}

// invoicesInRange handles GET /InvoicesDateRange?begin=&end= (inclusive).
func (s *Server) invoicesInRange(w http.ResponseWriter, r *http.Request) {
	begin, ok := queryDate(w, r, "begin")
	if !ok {
		return
	}
	end, ok := queryDate(w, r, "end")
	if !ok {
		return
	}
	list, err := s.svc.InvoicesBetween(r.Context(), begin, end)
	if err != nil {
		s.internalError(w, r, "invoices in range", err)
		return
	}
	toJSON(w, http.StatusOK, toInvoiceRows(list))
}

// invoiceSummary handles GET /GetInvoiceSummary?id=.
func (s *Server) invoiceSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	sum, err := s.svc.Summary(r.Context(), id)
	if errors.Is(err, errs.ErrNotFound) {
		notFound(w)
		return
	}
	if err != nil {
		s.internalError(w, r, "invoice summary", err)
		return
	}
	resp, err := toSummaryResponse(sum)
	if err != nil {
		s.internalError(w, r, "invoice summary", err)
		return
	}
	toJSON(w, http.StatusOK, resp)
}
