package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tinoosan/invoices/internal/invoice"
)

// queryID parses a required positive integer query parameter.
// Writes 400 and returns false when it is missing or malformed.
func queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		badRequest(w, name+" is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid "+name)
		return 0, false
	}
	return id, true
}

// queryDate parses a required date query parameter.
func queryDate(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		badRequest(w, name+" is required")
		return time.Time{}, false
	}
	d, err := invoice.ParseDate(raw)
	if err != nil {
		badRequest(w, "invalid "+name)
		return time.Time{}, false
	}
	return d, true
}

func dateField(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, missingField(name)
	}
	d, err := invoice.ParseDate(raw)
	if err != nil {
		return time.Time{}, &fieldError{code: "invalid_date", msg: "invalid " + name}
	}
	return d, nil
}
