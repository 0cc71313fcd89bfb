package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/tinoosan/invoices/internal/errs"
)

// invoiceIDHeader carries the id generated by POST /AddInvoice.
const invoiceIDHeader = "X-Invoice-Id"

// addInvoice handles POST /AddInvoice. The invoice and all detail rows are
// committed together before the 200 is written.
func (s *Server) addInvoice(w http.ResponseWriter, r *http.Request) {
	in, _ := r.Context().Value(ctxKeyAddInvoice).(invoiceInput)
	created, err := s.svc.CreateInvoice(r.Context(), in.Invoice, in.Items)
	if errors.Is(err, errs.ErrUnprocessable) {
		code, msg := mapValidationError(err)
		unprocessable(w, msg, code)
		return
	}
	if err != nil {
		s.internalError(w, r, "add invoice", err)
		return
	}
	s.log.Info("invoice created", "req_id", reqID(r), "invoice_id", created.ID, "details", len(in.Items))
	w.Header().Set(invoiceIDHeader, strconv.FormatInt(created.ID, 10))
	w.WriteHeader(http.StatusOK)
}

// updateInvoice handles PUT /Update: full replace of the general information
// and of the detail list. An unknown invoice id changes nothing and still
// answers 200.
func (s *Server) updateInvoice(w http.ResponseWriter, r *http.Request) {
	in, _ := r.Context().Value(ctxKeyUpdateInvoice).(invoiceInput)
	_, err := s.svc.UpdateInvoice(r.Context(), in.Invoice, in.Items)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, errs.ErrNotFound):
		s.log.Info("update of unknown invoice ignored", "req_id", reqID(r), "invoice_id", in.Invoice.ID)
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, errs.ErrInvalid):
		badRequest(w, "invalid")
	case errors.Is(err, errs.ErrUnprocessable):
		code, msg := mapValidationError(err)
		unprocessable(w, msg, code)
	default:
		s.internalError(w, r, "update invoice", err)
	}
}

// deleteInvoice handles DELETE /DeleteInvoice?id=. Removing an id that does
// not exist still answers 200.
func (s *Server) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.DeleteInvoice(r.Context(), id); err != nil {
		s.internalError(w, r, "delete invoice", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
