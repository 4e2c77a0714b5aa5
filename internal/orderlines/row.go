package orderlines

import (
	"github.com/angelmondragon/orderdesk-backend/internal/crm"
	"github.com/shopspring/decimal"
)

// Row is one order line as rendered.
type Row struct {
	OrderItemID    string          `json:"order_item_id"`
	ProductID      string          `json:"product_id,omitempty"`
	ProductName    string          `json:"product_name"`
	ProductCode    string          `json:"product_code,omitempty"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int64           `json:"quantity"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	RemoveDisabled bool            `json:"remove_disabled"`
}

func newRow(item crm.LineItem, activated bool) Row {
	total := item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
	if item.TotalPrice.Valid {
		total = item.TotalPrice.Decimal
	}
	return Row{
		OrderItemID:    item.OrderItemID,
		ProductID:      item.ProductID,
		ProductName:    item.ProductName,
		ProductCode:    item.ProductCode,
		UnitPrice:      item.UnitPrice,
		Quantity:       item.Quantity,
		TotalPrice:     total,
		RemoveDisabled: activated,
	}
}

func sumTotals(rows []Row) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.TotalPrice)
	}
	return total
}
