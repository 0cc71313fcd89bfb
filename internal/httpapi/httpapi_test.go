package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/govalues/decimal"

	"github.com/tinoosan/invoices/internal/invoice"
	"github.com/tinoosan/invoices/internal/service/invoicing"
	"github.com/tinoosan/invoices/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var fixedNow = time.Date(2024, time.May, 20, 9, 30, 0, 0, time.Local)

func setup(t *testing.T) (*memory.Store, http.Handler) {
	t.Helper()
	store := memory.New()
	h := New(store, store, testLogger(), invoicing.WithClock(func() time.Time { return fixedNow })).Handler()
	return store, h
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func addBody(date string, total any, rows ...map[string]any) map[string]any {
	if rows == nil {
		rows = []map[string]any{}
	}
	return map[string]any{
		"invoice": map[string]any{"invoiceInfo": map[string]any{
			"location": "Main St", "invoiceNotes": "note", "date": date, "total": total,
		}},
		"details": map[string]any{"rows": rows},
	}
}

func row(name string, cost, qty any) map[string]any {
	return map[string]any{"name": name, "cost": cost, "quantity": qty, "notes": nil}
}

func mustCreate(t *testing.T, h http.Handler, body map[string]any) int64 {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/AddInvoice", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("add invoice expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	id, err := strconv.ParseInt(rec.Header().Get(invoiceIDHeader), 10, 64)
	if err != nil {
		t.Fatalf("missing %s header: %v", invoiceIDHeader, err)
	}
	return id
}

func decodeInvoices(t *testing.T, rec *httptest.ResponseRecorder) []invoiceRow {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out []invoiceRow
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out == nil {
		t.Fatalf("expected a JSON array, got %s", rec.Body.String())
	}
	return out
}

func decodeItems(t *testing.T, rec *httptest.ResponseRecorder) []itemRow {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out []itemRow
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out == nil {
		t.Fatalf("expected a JSON array, got %s", rec.Body.String())
	}
	return out
}

func TestAddInvoice_RoundsPriceAndComputesTotals(t *testing.T) {
	_, h := setup(t)
	id := mustCreate(t, h, addBody("05-20-2024", 12.345, row("bolts", 2.00, 3), row("paint", "5.50", 1)))

	invs := decodeInvoices(t, do(t, h, http.MethodGet, "/GetInvoiceGeneral?id="+strconv.FormatInt(id, 10), nil))
	note := "note"
	want := []invoiceRow{{ID: id, Price: "12.35", Location: "Main St", DateCreated: "2024-05-20", InvoiceNotes: &note}}
	if diff := cmp.Diff(want, invs); diff != "" {
		t.Fatalf("invoice mismatch (-want +got):\n%s", diff)
	}

	items := decodeItems(t, do(t, h, http.MethodGet, "/GetDetails?id="+strconv.FormatInt(id, 10), nil))
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Total != "6.00" || items[1].Total != "5.50" {
		t.Fatalf("unexpected totals: %s, %s", items[0].Total, items[1].Total)
	}
	if items[0].InvoiceID != id || items[0].ItemName != "bolts" || items[0].ItemNotes != nil {
		t.Fatalf("unexpected item: %+v", items[0])
	}
}

func TestListInvoices_NewestFirst(t *testing.T) {
	_, h := setup(t)
	a := mustCreate(t, h, addBody("2024-01-01", 1))
	b := mustCreate(t, h, addBody("2024-03-01", 2))
	c := mustCreate(t, h, addBody("2024-02-01", 3))

	invs := decodeInvoices(t, do(t, h, http.MethodGet, "/GetAllInvoiceGeneral", nil))
	var ids []int64
	for _, inv := range invs {
		ids = append(ids, inv.ID)
	}
	if diff := cmp.Diff([]int64{b, c, a}, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestGetEndpoints_EmptyArraysForUnknownIDs(t *testing.T) {
	_, h := setup(t)
	for _, target := range []string{"/GetInvoiceGeneral?id=404", "/GetDetails?id=404", "/GetAllInvoiceGeneral", "/GetAllDetails", "/GetInvoicesFromDate"} {
		rec := do(t, h, http.MethodGet, target, nil)
		if rec.Code != http.StatusOK || bytes.TrimSpace(rec.Body.Bytes())[0] != '[' {
			t.Fatalf("%s: expected 200 with array, got %d: %s", target, rec.Code, rec.Body.String())
		}
		if got := string(bytes.TrimSpace(rec.Body.Bytes())); got != "[]" {
			t.Fatalf("%s: expected empty array, got %s", target, got)
		}
	}
}

func TestInvoicesFromDate_Today(t *testing.T) {
	_, h := setup(t)
	today := mustCreate(t, h, addBody(fixedNow.Format("01/02/2006"), 10))
	_ = mustCreate(t, h, addBody("2024-05-19", 10))

	invs := decodeInvoices(t, do(t, h, http.MethodGet, "/GetInvoicesFromDate", nil))
	if len(invs) != 1 || invs[0].ID != today {
		t.Fatalf("expected only today's invoice, got %+v", invs)
	}
}

func TestInvoicesDateRange(t *testing.T) {
	_, h := setup(t)
	jan := mustCreate(t, h, addBody("2024-01-10", 1))
	feb := mustCreate(t, h, addBody("2024-02-10", 1))
	_ = mustCreate(t, h, addBody("2024-03-10", 1))

	invs := decodeInvoices(t, do(t, h, http.MethodGet, "/InvoicesDateRange?begin=2024-01-10&end=02-10-2024", nil))
	if len(invs) != 2 || invs[0].ID != feb || invs[1].ID != jan {
		t.Fatalf("unexpected range result: %+v", invs)
	}

	invs = decodeInvoices(t, do(t, h, http.MethodGet, "/InvoicesDateRange?begin=2024-03-01&end=2024-01-01", nil))
	if len(invs) != 0 {
		t.Fatalf("expected empty result for begin > end, got %+v", invs)
	}

	if rec := do(t, h, http.MethodGet, "/InvoicesDateRange?begin=2024-01-01", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing end expected 400, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/InvoicesDateRange?begin=soon&end=2024-01-01", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad begin expected 400, got %d", rec.Code)
	}
}

func TestDeleteInvoice_RemovesItems(t *testing.T) {
	_, h := setup(t)
	id := mustCreate(t, h, addBody("2024-01-01", 9, row("a", 1, 1), row("b", 2, 2)))
	keep := mustCreate(t, h, addBody("2024-01-02", 9, row("c", 1, 1)))
	sid := strconv.FormatInt(id, 10)

	if rec := do(t, h, http.MethodDelete, "/DeleteInvoice?id="+sid, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete expected 200, got %d", rec.Code)
	}
	if items := decodeItems(t, do(t, h, http.MethodGet, "/GetDetails?id="+sid, nil)); len(items) != 0 {
		t.Fatalf("expected no items after delete, got %+v", items)
	}
	if invs := decodeInvoices(t, do(t, h, http.MethodGet, "/GetInvoiceGeneral?id="+sid, nil)); len(invs) != 0 {
		t.Fatalf("expected invoice gone, got %+v", invs)
	}
	all := decodeItems(t, do(t, h, http.MethodGet, "/GetAllDetails", nil))
	if len(all) != 1 || all[0].InvoiceID != keep {
		t.Fatalf("delete touched another invoice: %+v", all)
	}
	// deleting again is still a success
	if rec := do(t, h, http.MethodDelete, "/DeleteInvoice?id="+sid, nil); rec.Code != http.StatusOK {
		t.Fatalf("repeat delete expected 200, got %d", rec.Code)
	}
}

func TestUpdate_FullReplace(t *testing.T) {
	_, h := setup(t)
	id := mustCreate(t, h, addBody("2024-01-01", 9, row("a", 1, 1), row("b", 2, 2), row("c", 3, 3)))

	body := map[string]any{
		"general": map[string]any{"id": id, "price": "20.005", "location": "Depot", "date": "2024-04-01", "invoiceNotes": nil},
		"details": []map[string]any{row("x", 4, 2), row("y", "0.5", "3")},
	}
	if rec := do(t, h, http.MethodPut, "/Update", body); rec.Code != http.StatusOK {
		t.Fatalf("update expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	sid := strconv.FormatInt(id, 10)
	invs := decodeInvoices(t, do(t, h, http.MethodGet, "/GetInvoiceGeneral?id="+sid, nil))
	want := []invoiceRow{{ID: id, Price: "20.01", Location: "Depot", DateCreated: "2024-04-01"}}
	if diff := cmp.Diff(want, invs); diff != "" {
		t.Fatalf("invoice mismatch (-want +got):\n%s", diff)
	}
	items := decodeItems(t, do(t, h, http.MethodGet, "/GetDetails?id="+sid, nil))
	var names []string
	for _, it := range items {
		names = append(names, it.ItemName+"="+it.Total)
	}
	if diff := cmp.Diff([]string{"x=8.00", "y=1.50"}, names); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}

	missing := id + 1000
	body["general"].(map[string]any)["id"] = missing
	if rec := do(t, h, http.MethodPut, "/Update", body); rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("update of unknown invoice expected bare 200, got %d: %q", rec.Code, rec.Body.String())
	}
	smissing := strconv.FormatInt(missing, 10)
	if got := decodeInvoices(t, do(t, h, http.MethodGet, "/GetInvoiceGeneral?id="+smissing, nil)); len(got) != 0 {
		t.Fatalf("update of unknown invoice created %v", got)
	}
	if got := decodeItems(t, do(t, h, http.MethodGet, "/GetDetails?id="+smissing, nil)); len(got) != 0 {
		t.Fatalf("update of unknown invoice created items %v", got)
	}
	if got := decodeInvoices(t, do(t, h, http.MethodGet, "/GetAllInvoiceGeneral", nil)); len(got) != 1 {
		t.Fatalf("expected 1 invoice after ignored update, got %d", len(got))
	}
	if rec := do(t, h, http.MethodPatch, "/Update", body); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PATCH /Update expected 405, got %d", rec.Code)
	}
}

func TestWriteValidation(t *testing.T) {
	_, h := setup(t)
	tests := []struct {
		name   string
		method string
		target string
		body   any
		status int
		code   string
	}{
		{"missing date", http.MethodPost, "/AddInvoice", addBody("", 1), http.StatusUnprocessableEntity, "missing_field"},
		{"bad date", http.MethodPost, "/AddInvoice", addBody("31/31/2024", 1), http.StatusUnprocessableEntity, "invalid_date"},
		{"missing total", http.MethodPost, "/AddInvoice", addBody("2024-01-01", nil), http.StatusUnprocessableEntity, "missing_field"},
		{"non numeric total", http.MethodPost, "/AddInvoice", addBody("2024-01-01", "lots"), http.StatusBadRequest, ""},
		{"row without cost", http.MethodPost, "/AddInvoice", addBody("2024-01-01", 1, row("a", nil, 1)), http.StatusUnprocessableEntity, "missing_field"},
		{"row without name", http.MethodPost, "/AddInvoice", addBody("2024-01-01", 1, row(" ", 1, 1)), http.StatusUnprocessableEntity, "missing_field"},
		{"only unknown fields", http.MethodPost, "/AddInvoice", map[string]any{"bogus": true}, http.StatusUnprocessableEntity, "missing_field"},
		{"update without id", http.MethodPut, "/Update", map[string]any{"general": map[string]any{"price": 1, "date": "2024-01-01"}, "details": []any{}}, http.StatusUnprocessableEntity, "missing_field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.code != "" {
				var er errorResponse
				_ = json.Unmarshal(rec.Body.Bytes(), &er)
				if er.Code != tt.code {
					t.Fatalf("expected code %q, got %+v", tt.code, er)
				}
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/AddInvoice", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}
	if invs := decodeInvoices(t, do(t, h, http.MethodGet, "/GetAllInvoiceGeneral", nil)); len(invs) != 0 {
		t.Fatalf("rejected requests must not persist anything, got %+v", invs)
	}
}

func TestWriteBodies_IgnoreExtraKeys(t *testing.T) {
	_, h := setup(t)
	body := addBody("2024-01-01", 3, row("a", 1, 3))
	body["details"].(map[string]any)["count"] = 1
	body["invoice"].(map[string]any)["invoiceInfo"].(map[string]any)["customer"] = "ACME"
	id := mustCreate(t, h, body)

	update := map[string]any{
		"general": map[string]any{"id": id, "price": 4, "location": "Depot", "date": "2024-01-02", "invoiceNotes": nil, "status": "open"},
		"details": []map[string]any{{"name": "b", "cost": 2, "quantity": 2, "notes": nil, "sku": "B-1"}},
		"version": 2,
	}
	if rec := do(t, h, http.MethodPut, "/Update", update); rec.Code != http.StatusOK {
		t.Fatalf("update with extra keys expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	items := decodeItems(t, do(t, h, http.MethodGet, "/GetDetails?id="+strconv.FormatInt(id, 10), nil))
	if len(items) != 1 || items[0].Total != "4.00" {
		t.Fatalf("unexpected items after update: %+v", items)
	}
}

func TestItemTotalOverflowIs500(t *testing.T) {
	store, h := setup(t)
	big := decimal.MustParse("999999999999999999")
	inv, err := store.CreateInvoice(context.Background(),
		invoice.Invoice{Price: decimal.MustParse("1"), DateCreated: invoice.Day(fixedNow)},
		[]invoice.Item{{Name: "huge", Price: big, Qty: big}})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	sid := strconv.FormatInt(inv.ID, 10)
	for _, target := range []string{"/GetDetails?id=" + sid, "/GetAllDetails", "/GetInvoiceSummary?id=" + sid} {
		rec := do(t, h, http.MethodGet, target, nil)
		if rec.Code != http.StatusInternalServerError || rec.Body.Len() != 0 {
			t.Fatalf("%s: expected bare 500, got %d: %q", target, rec.Code, rec.Body.String())
		}
	}
}

func TestQueryIDValidation(t *testing.T) {
	_, h := setup(t)
	for _, target := range []string{"/GetInvoiceGeneral", "/GetInvoiceGeneral?id=abc", "/GetDetails?id=-1", "/DeleteInvoice?id=1.5"} {
		method := http.MethodGet
		if target[:7] == "/Delete" {
			method = http.MethodDelete
		}
		if rec := do(t, h, method, target, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestInvoiceSummary(t *testing.T) {
	_, h := setup(t)
	id := mustCreate(t, h, addBody("2024-01-01", 11.5, row("a", 2.00, 3), row("b", 5.50, 1)))
	rec := do(t, h, http.MethodGet, "/GetInvoiceSummary?id="+strconv.FormatInt(id, 10), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var sum summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.ItemsTotal != "11.50" || sum.Currency != "USD" || len(sum.Details) != 2 || sum.Invoice.Price != "11.50" {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if rec := do(t, h, http.MethodGet, "/GetInvoiceSummary?id=9999", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing invoice summary expected 404, got %d", rec.Code)
	}
}

func TestConcurrentCreates_DistinctIDs(t *testing.T) {
	_, h := setup(t)
	const n = 32
	var mu sync.Mutex
	seen := map[string]bool{}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, _ := json.Marshal(addBody("2024-01-01", 1, row("a", 1, 1)))
			req := httptest.NewRequest(http.MethodPost, "/AddInvoice", bytes.NewReader(b))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rec.Code)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			seen[rec.Header().Get(invoiceIDHeader)] = true
		}()
	}
	wg.Wait()
	if len(seen) != n {
		t.Fatalf("expected %d distinct ids, got %d", n, len(seen))
	}
}

// failingStore fails every write so handler error mapping can be checked.
type failingStore struct{ *memory.Store }

var errBoom = errors.New("connection reset")

func (failingStore) CreateInvoice(context.Context, invoice.Invoice, []invoice.Item) (invoice.Invoice, error) {
	return invoice.Invoice{}, errBoom
}

func (failingStore) ListInvoices(context.Context) ([]invoice.Invoice, error) { return nil, errBoom }

func (failingStore) Ready(context.Context) error { return errBoom }

func TestDatabaseErrorsMapTo500(t *testing.T) {
	fs := failingStore{memory.New()}
	h := New(fs, fs, testLogger()).Handler()

	for _, tc := range []struct {
		method, target string
		body           any
	}{
		{http.MethodPost, "/AddInvoice", addBody("2024-01-01", 1)},
		{http.MethodGet, "/GetAllInvoiceGeneral", nil},
	} {
		rec := do(t, h, tc.method, tc.target, tc.body)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s %s: expected 500, got %d", tc.method, tc.target, rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Fatalf("%s %s: expected empty 500 body, got %q", tc.method, tc.target, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct == "application/json" {
			t.Fatalf("%s %s: 500 must not carry a JSON payload", tc.method, tc.target)
		}
	}
	if rec := do(t, h, http.MethodGet, "/readyz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHealthMetricsAndRequestID(t *testing.T) {
	_, h := setup(t)
	if rec := do(t, h, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz expected 200, got %d", rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "abc-123" {
		t.Fatalf("expected propagated request id, got %q", got)
	}

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("invoices_http_requests_total")) {
		t.Fatalf("metrics missing request counter: %d", rec.Code)
	}
}
