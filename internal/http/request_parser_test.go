package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func parserFor(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/expenses/delete", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return p
}

func TestRequestBodyParserForm(t *testing.T) {
	p := parserFor(t, "application/x-www-form-urlencoded", "id=42&name=Lunch")

	if p.IsJSON() {
		t.Fatal("form body must not be detected as JSON")
	}
	if got := p.Get("id"); got != "42" {
		t.Fatalf("expected id 42, got %q", got)
	}
	if got := p.Get("name"); got != "Lunch" {
		t.Fatalf("expected name Lunch, got %q", got)
	}
	if got := p.Get("missing"); got != "" {
		t.Fatalf("expected empty for missing key, got %q", got)
	}
}

func TestRequestBodyParserJSON(t *testing.T) {
	p := parserFor(t, "application/json", `{"id": "7", "count": 3, "flag": true}`)

	if !p.IsJSON() {
		t.Fatal("expected JSON detection")
	}
	if got := p.Get("id"); got != "7" {
		t.Fatalf("expected id 7, got %q", got)
	}
	if got := p.Get("count"); got != "3" {
		t.Fatalf("expected count 3, got %q", got)
	}
	if got := p.Get("flag"); got != "true" {
		t.Fatalf("expected flag true, got %q", got)
	}
}

func TestRequestBodyParserMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/expenses/delete", strings.NewReader(`{"id": `))
	req.Header.Set("Content-Type", "application/json")
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
	// Parse is memoized; a second call returns the same error.
	if err := p.Parse(); err == nil {
		t.Fatal("expected memoized error")
	}
}

func TestRequestBodyParserEmptyBody(t *testing.T) {
	p := parserFor(t, "", "")
	if got := p.Get("id"); got != "" {
		t.Fatalf("expected empty value, got %q", got)
	}
}

func TestSanitizeInput(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  Lunch  ", "Lunch"},
		{"a\x00b\x1fc", "abc"},
		{"keep\ttabs\nand\rreturns", "keep\ttabs\nand\rreturns"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := sanitizeInput(tc.in); got != tc.want {
			t.Fatalf("sanitizeInput(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestRequireMethod(t *testing.T) {
	post := httptest.NewRequest(http.MethodPost, "/expenses", nil)
	if resp := RequirePOST(post); resp != nil {
		t.Fatal("POST must pass RequirePOST")
	}

	get := httptest.NewRequest(http.MethodGet, "/expenses", nil)
	resp := RequirePOST(get)
	if resp == nil {
		t.Fatal("GET must fail RequirePOST")
	}
	rr := httptest.NewRecorder()
	resp.Write(rr)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	del := httptest.NewRequest(http.MethodDelete, "/expenses/delete", nil)
	if resp := RequireDeleteOrPOST(del); resp != nil {
		t.Fatal("DELETE must pass RequireDeleteOrPOST")
	}
}
