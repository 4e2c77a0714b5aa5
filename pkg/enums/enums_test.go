package enums

import "testing"

func TestParseProductSource(t *testing.T) {
	got, err := ParseProductSource("external")
	if err != nil || got != ProductSourceExternal {
		t.Fatalf("expected external source, got %q err=%v", got, err)
	}
	if _, err := ParseProductSource("partner"); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestActivationStateHelpers(t *testing.T) {
	if !ActivationStateActivated.IsActivated() {
		t.Fatal("activated should report activated")
	}
	if ActivationStateActivating.IsActivated() {
		t.Fatal("activating must not freeze edits")
	}
	if _, err := ParseActivationState("paused"); err == nil {
		t.Fatal("expected error for unknown state")
	}
}

func TestModeFor(t *testing.T) {
	if ModeFor(ToastVariantError) != ToastModeSticky {
		t.Fatal("errors should be sticky")
	}
	for _, v := range []ToastVariant{ToastVariantSuccess, ToastVariantInfo, ToastVariantWarning} {
		if ModeFor(v) != ToastModeDismissable {
			t.Fatalf("%s should be dismissable", v)
		}
	}
}

func TestParseOrderEventKind(t *testing.T) {
	if k, err := ParseOrderEventKind("product_added"); err != nil || k != OrderEventProductAdded {
		t.Fatalf("unexpected parse result %q err=%v", k, err)
	}
	if OrderEventKind("bogus").IsValid() {
		t.Fatal("bogus kind should be invalid")
	}
}
