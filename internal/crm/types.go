package crm

import (
	"strings"

	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Product is one row of the combined catalog returned by listCombinedProducts.
type Product struct {
	ProductID   string          `json:"productId,omitempty"`
	ProductCode string          `json:"productCode,omitempty"`
	Name        string          `json:"name"`
	Category    string          `json:"category,omitempty"`
	Brand       string          `json:"brand,omitempty"`
	ListPrice   decimal.Decimal `json:"listPrice"`
	Source      string          `json:"source"`
	Added       bool            `json:"added,omitempty"`
}

// LineItem is one order line returned by listOrderLineItems. TotalPrice is
// optional; callers compute unit price times quantity when it is absent.
type LineItem struct {
	OrderItemID string              `json:"orderItemId"`
	ProductID   string              `json:"productId,omitempty"`
	ProductName string              `json:"productName"`
	ProductCode string              `json:"productCode,omitempty"`
	UnitPrice   decimal.Decimal     `json:"unitPrice"`
	Quantity    int64               `json:"quantity"`
	TotalPrice  decimal.NullDecimal `json:"totalPrice"`
}

// Result is the acknowledgement returned by mutating procedures.
type Result struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	RecordID string `json:"recordId,omitempty"`
}

// Err converts an unsuccessful result into a typed rejection.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = pkgerrors.FallbackMessage
	}
	return pkgerrors.New(pkgerrors.CodeRejected, msg)
}
