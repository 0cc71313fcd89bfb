package httpapi

import "net/http"

// listDetails handles GET /GetAllDetails.
func (s *Server) listDetails(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.ListItems(r.Context())
	if err != nil {
		s.internalError(w, r, "list details", err)
		return
	}
	rows, err := toItemRows(items)
	if err != nil {
		s.internalError(w, r, "list details", err)
		return
	}
	toJSON(w, http.StatusOK, rows)
}

// getDetails handles GET /GetDetails?id=. Unknown invoices yield an empty array.
func (s *Server) getDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	items, err := s.svc.ItemsByInvoice(r.Context(), id)
	if err != nil {
		s.internalError(w, r, "get details", err)
		return
	}
	rows, err := toItemRows(items)
	if err != nil {
		s.internalError(w, r, "get details", err)
		return
	}
	toJSON(w, http.StatusOK, rows)
}
