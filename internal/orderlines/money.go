package orderlines

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MoneyFormatter renders amounts as "<ISO> 1,234.50".
type MoneyFormatter struct {
	unit currency.Unit

	mu      sync.Mutex
	printer *message.Printer
}

func NewMoneyFormatter(iso string) (*MoneyFormatter, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(iso)))
	if err != nil {
		return nil, fmt.Errorf("invalid currency %q: %w", iso, err)
	}
	return &MoneyFormatter{unit: unit, printer: message.NewPrinter(language.English)}, nil
}

// Currency returns the ISO code.
func (m *MoneyFormatter) Currency() string {
	return m.unit.String()
}

// Format rounds half away from zero to cents and groups the whole part.
// Digits come from the decimal string so large amounts stay exact.
func (m *MoneyFormatter) Format(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	whole, frac, _ := strings.Cut(rounded.StringFixed(2), ".")
	return m.unit.String() + " " + sign + m.group(whole) + "." + frac
}

func (m *MoneyFormatter) group(whole string) string {
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.printer.Sprintf("%v", number.Decimal(n))
	}
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
