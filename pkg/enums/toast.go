package enums

// ToastVariant is the severity of a user-facing notification.
type ToastVariant string

const (
	ToastVariantSuccess ToastVariant = "success"
	ToastVariantInfo    ToastVariant = "info"
	ToastVariantWarning ToastVariant = "warning"
	ToastVariantError   ToastVariant = "error"
)

// String implements fmt.Stringer.
func (v ToastVariant) String() string {
	return string(v)
}

// ToastMode controls whether a notification closes on its own.
type ToastMode string

const (
	ToastModeDismissable ToastMode = "dismissable"
	ToastModeSticky      ToastMode = "sticky"
)

// ModeFor returns the display mode for a variant: errors stay until closed.
func ModeFor(variant ToastVariant) ToastMode {
	if variant == ToastVariantError {
		return ToastModeSticky
	}
	return ToastModeDismissable
}
