package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized},
		{code: CodeForbidden, status: http.StatusForbidden},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeConflict, status: http.StatusConflict},
		{code: CodePayloadTooLarge, status: http.StatusRequestEntityTooLarge, detailsOK: true},
		{code: CodeUnsupportedMedia, status: http.StatusUnsupportedMediaType, detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusBadGateway, retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s has no public message", tt.code)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("dial tcp: refused")
	err := fmt.Errorf("outer: %w", Wrap(CodeDependency, cause, "fetch order"))

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if !IsCode(err, CodeDependency) {
		t.Fatalf("expected dependency code in chain")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatalf("did not expect not found code")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(nil); got != "" {
		t.Fatalf("expected empty message for nil, got %q", got)
	}
	if got := UserMessage(New(CodeNotFound, "order not found")); got != "order not found" {
		t.Fatalf("unexpected not found message %q", got)
	}
	dep := Wrap(CodeDependency, stdErrors.New("connection reset"), "upload banner image")
	if got := UserMessage(dep); got != MetadataFor(CodeDependency).PublicMessage {
		t.Fatalf("dependency failures must not leak internals, got %q", got)
	}
	if got := UserMessage(stdErrors.New("raw")); got != MetadataFor(CodeInternal).PublicMessage {
		t.Fatalf("untyped errors should map to internal message, got %q", got)
	}
}
