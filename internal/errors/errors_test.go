package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestIsTypeSeesThroughWrapping(t *testing.T) {
	base := Newf(TypeNoTier, "no tier for %s", "shipping_cost")
	wrapped := fmt.Errorf("price quote line: %w", base)

	if !IsType(wrapped, TypeNoTier) {
		t.Fatalf("expected wrapped error to keep type %s", TypeNoTier)
	}
	if IsType(wrapped, TypeInput) {
		t.Error("wrapped error should not match TypeInput")
	}
	if got := TypeOf(fmt.Errorf("plain")); got != TypeInternal {
		t.Errorf("TypeOf(plain) = %s, want %s", got, TypeInternal)
	}
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(TypeParsing, "read tier table", fmt.Errorf("missing column min_volume"))
	want := "[PARSING_ERROR] read tier table: missing column min_volume"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	err = UnknownService("ايراد التغليف")
	if err.Context["label"] != "ايراد التغليف" {
		t.Errorf("expected label in context, got %v", err.Context)
	}

	err = NotFound("quote", "q-1")
	if err.Context["quote"] != "q-1" {
		t.Errorf("expected quote id in context, got %v", err.Context)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Input("quantity must not be negative"), http.StatusBadRequest},
		{Validation("overlapping tiers"), http.StatusBadRequest},
		{NotFound("quote", "q-1"), http.StatusNotFound},
		{New(TypeNoTier, "no tier"), http.StatusUnprocessableEntity},
		{UnknownService("x"), http.StatusUnprocessableEntity},
		{Storage("insert quote", nil), http.StatusServiceUnavailable},
		{NoTable(), http.StatusServiceUnavailable},
		{NotSupported("export .pdf"), http.StatusNotImplemented},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(TypeOf(tt.err)), func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
