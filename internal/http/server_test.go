package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"tally/internal/config"
	"tally/internal/ledger"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		IdleTimeout:        60 * time.Second,
		CurrencySymbol:     "€",
		LogLevel:           "info",
		RateLimitPerMinute: 1000,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(testConfig(), ledger.New())
	if srv.templates == nil {
		t.Fatal("embedded templates must parse")
	}
	return srv
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "expense-form") {
		t.Fatalf("index body missing form: %s", body)
	}
	if !strings.Contains(body, "€0.00") {
		t.Fatalf("empty ledger must render zero total: %s", body)
	}
	if !strings.Contains(body, "No expenses yet") {
		t.Fatalf("empty ledger must render placeholder: %s", body)
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestCreateExpenseValidationAndSuccess(t *testing.T) {
	srv := newTestServer(t)

	// Wrong method
	rr := do(srv, http.MethodGet, "/expenses", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	// Invalid amount
	rr = do(srv, http.MethodPost, "/expenses", "name=Lunch&amount=abc")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `class="error"`) {
		t.Fatalf("expected error fragment, got %s", rr.Body.String())
	}

	// Missing name
	rr = do(srv, http.MethodPost, "/expenses", "name=&amount=1.23")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	// Nothing committed so far
	if srv.ledger.Len() != 0 {
		t.Fatalf("failed submits must not touch the ledger, got %d entries", srv.ledger.Len())
	}

	// Success
	rr = do(srv, http.MethodPost, "/expenses", "name=Lunch&amount=12.50")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.Contains(body, `id="ledger"`) {
		t.Fatalf("expected refreshed ledger partial, got %s", body)
	}
	if !strings.Contains(body, "Lunch") || !strings.Contains(body, "€12.50") {
		t.Fatalf("expected entry in partial, got %s", body)
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, "form:reset") || !strings.Contains(trigger, "expense:created") {
		t.Fatalf("expected triggers, got %q", trigger)
	}

	// Index reflects the committed entry and the cleared draft.
	rr = do(srv, http.MethodGet, "/", "")
	if !strings.Contains(rr.Body.String(), "€12.50") {
		t.Fatalf("index missing total: %s", rr.Body.String())
	}
}

func TestValidationErrorShownOnIndexUntilSuccess(t *testing.T) {
	srv := newTestServer(t)

	rr := do(srv, http.MethodPost, "/expenses", "name=Lunch&amount=-5")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	// Error and draft survive a reload.
	rr = do(srv, http.MethodGet, "/", "")
	body := rr.Body.String()
	if !strings.Contains(body, "Amount must be a positive number") {
		t.Fatalf("expected pending error on index, got %s", body)
	}
	if !strings.Contains(body, `value="Lunch"`) {
		t.Fatalf("expected preserved draft on index, got %s", body)
	}

	// Successful submit clears both.
	rr = do(srv, http.MethodPost, "/expenses", "name=Lunch&amount=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	rr = do(srv, http.MethodGet, "/", "")
	if strings.Contains(rr.Body.String(), "Amount must be a positive number") {
		t.Fatal("error must clear after successful submit")
	}
}

func TestDeleteExpense(t *testing.T) {
	srv := newTestServer(t)

	for _, e := range []string{"name=A&amount=1", "name=B&amount=2", "name=C&amount=3"} {
		if rr := do(srv, http.MethodPost, "/expenses", e); rr.Code != http.StatusOK {
			t.Fatalf("seed submit failed: %d", rr.Code)
		}
	}
	entries := srv.ledger.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	middle := entries[1]

	// Wrong method
	rr := do(srv, http.MethodGet, "/expenses/delete", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	// Missing and malformed ids
	rr = do(srv, http.MethodPost, "/expenses/delete", "id=")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing id, got %d", rr.Code)
	}
	rr = do(srv, http.MethodPost, "/expenses/delete", "id=abc")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rr.Code)
	}

	// Unknown id is a no-op, still 200 with the partial.
	rr = do(srv, http.MethodPost, "/expenses/delete", "id=9999")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown id, got %d", rr.Code)
	}
	if srv.ledger.Len() != 3 {
		t.Fatalf("unknown id must not change the ledger, got %d", srv.ledger.Len())
	}

	// Deleting the middle entry removes exactly it.
	rr = do(srv, http.MethodPost, "/expenses/delete", "id="+strconv.FormatInt(middle.ID, 10))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if srv.ledger.Len() != 2 {
		t.Fatalf("expected 2 entries after delete, got %d", srv.ledger.Len())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), "expense:deleted") {
		t.Fatalf("expected expense:deleted trigger, got %q", rr.Header().Get("HX-Trigger"))
	}
	rest := srv.ledger.Entries()
	if len(rest) != 2 || rest[0].Name != "C" || rest[1].Name != "A" {
		t.Fatalf("expected [C, A], got %v", rest)
	}

	// JSON body works too (htmx DELETE path).
	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/expenses/delete", strings.NewReader(`{"id": "`+strconv.FormatInt(rest[0].ID, 10)+`"}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for JSON delete, got %d", rr.Code)
	}
	if srv.ledger.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", srv.ledger.Len())
	}
}

func TestLedgerPartial(t *testing.T) {
	srv := newTestServer(t)
	do(srv, http.MethodPost, "/expenses", "name=a&amount=10")
	do(srv, http.MethodPost, "/expenses", "name=b&amount=5.5")

	rr := do(srv, http.MethodGet, "/ui/ledger", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("partial status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "€15.50") {
		t.Fatalf("expected total €15.50, got %s", rr.Body.String())
	}
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	srv := NewServer(cfg, ledger.New())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := do(srv, http.MethodPost, "/expenses", "name=x&amount=1")
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("first requests should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third request, got %v", codes)
	}

	// Reads are never limited.
	rr := do(srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("GET must not be rate limited, got %d", rr.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)
	rr := do(srv, http.MethodGet, "/", "")
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Referrer-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Fatalf("missing security header %s", h)
		}
	}
}

func TestEntryNameIsEscaped(t *testing.T) {
	srv := newTestServer(t)
	rr := do(srv, http.MethodPost, "/expenses", "name="+url.QueryEscape("<script>alert(1)</script>")+"&amount=1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "<script>alert(1)</script>") {
		t.Fatal("entry name must be HTML-escaped")
	}
}

