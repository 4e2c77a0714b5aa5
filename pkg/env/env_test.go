package env

import "testing"

func TestGetTrimsAndFallsBack(t *testing.T) {
	t.Setenv("ORDERDESK_TEST_VALUE", "  ")
	if got := Get("ORDERDESK_TEST_VALUE", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for blank value, got %q", got)
	}
	t.Setenv("ORDERDESK_TEST_VALUE", " set ")
	if got := Get("ORDERDESK_TEST_VALUE", "fallback"); got != "set" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}

func TestOneOf(t *testing.T) {
	t.Setenv("ORDERDESK_TEST_FORMAT", "Console")
	if got := OneOf("ORDERDESK_TEST_FORMAT", "json", "json", "console"); got != "console" {
		t.Fatalf("expected console, got %q", got)
	}
	t.Setenv("ORDERDESK_TEST_FORMAT", "xml")
	if got := OneOf("ORDERDESK_TEST_FORMAT", "json", "json", "console"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
