package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/go-chi/chi/v5"
)

type addItemBody struct {
	VariantID int64 `json:"variantId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"variantId":7}`))
	var body addItemBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["quantity"] != "is required" {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"variantId":7,"quantity":1,"extra":true}`))
	var body addItemBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"variantId":7,"quantity":2}`))
	var body addItemBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.VariantID != 7 || body.Quantity != 2 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&size=x", nil)
	if v, err := ParseQueryInt(req, "page", 1, 1, 100); err != nil || v != 3 {
		t.Fatalf("expected 3, got %d %v", v, err)
	}
	if v, err := ParseQueryInt(req, "missing", 1, 1, 100); err != nil || v != 1 {
		t.Fatalf("expected default, got %d %v", v, err)
	}
	if _, err := ParseQueryInt(req, "size", 1, 1, 100); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}
}

func TestParsePathID(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("variantId", "42")
	rctx.URLParams.Add("bad", "-1")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	if id, err := ParsePathID(req, "variantId"); err != nil || id != 42 {
		t.Fatalf("expected 42, got %d %v", id, err)
	}
	if _, err := ParsePathID(req, "bad"); err == nil {
		t.Fatalf("expected error for negative id")
	}
}

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{name: "trims", input: "  Ana  ", max: 10, want: "Ana"},
		{name: "drops control characters", input: "An\x00a\x1b", max: 10, want: "Ana"},
		{name: "keeps newlines", input: "line one\nline two", max: 0, want: "line one\nline two"},
		{name: "caps by rune", input: "ñandú azul", max: 5, want: "ñandú"},
		{name: "no trailing space after cut", input: "abc def", max: 4, want: "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeString(tc.input, tc.max); got != tc.want {
				t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.input, tc.max, got, tc.want)
			}
		})
	}
}
