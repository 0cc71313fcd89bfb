package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
)

type ctxKey string

const (
	ctxKeyAddInvoice    ctxKey = "validatedAddInvoice"
	ctxKeyUpdateInvoice ctxKey = "validatedUpdateInvoice"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// validateAddInvoice decodes and checks the POST /AddInvoice body and stores
// the resulting invoiceInput in the request context for the handler to use.
func (s *Server) validateAddInvoice() func(http.Handler) http.Handler {
	return s.validateBody(ctxKeyAddInvoice, func(dec *json.Decoder) (invoiceInput, error) {
		var req addInvoiceRequest
		if err := dec.Decode(&req); err != nil {
			return invoiceInput{}, errDecode{err}
		}
		return req.toInput()
	})
}

// validateUpdateInvoice does the same for PUT /Update.
func (s *Server) validateUpdateInvoice() func(http.Handler) http.Handler {
	return s.validateBody(ctxKeyUpdateInvoice, func(dec *json.Decoder) (invoiceInput, error) {
		var req updateInvoiceRequest
		if err := dec.Decode(&req); err != nil {
			return invoiceInput{}, errDecode{err}
		}
		return req.toInput()
	})
}

type errDecode struct{ err error }

func (e errDecode) Error() string { return "invalid JSON: " + e.err.Error() }

func (s *Server) validateBody(key ctxKey, decode func(*json.Decoder) (invoiceInput, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			// Unknown keys are ignored.
			dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			in, err := decode(dec)
			if err != nil {
				if de, ok := err.(errDecode); ok {
					toJSON(w, http.StatusBadRequest, errorResponse{Error: de.Error()})
					return
				}
				code, msg := mapValidationError(err)
				unprocessable(w, msg, code)
				return
			}
			if err := s.svc.Validate(in.Invoice, in.Items); err != nil {
				code, msg := mapValidationError(err)
				unprocessable(w, msg, code)
				return
			}
			ctx := context.WithValue(r.Context(), key, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
