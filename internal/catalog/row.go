package catalog

import (
	"strings"

	"github.com/angelmondragon/orderdesk-backend/internal/crm"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

const (
	keyPrefixLocal    = "local:"
	keyPrefixExternal = "external:"
)

// Row is one catalog entry with its derived presentation.
type Row struct {
	Key         string              `json:"key"`
	ProductID   string              `json:"product_id,omitempty"`
	ProductCode string              `json:"product_code,omitempty"`
	Name        string              `json:"name"`
	Category    string              `json:"category,omitempty"`
	Brand       string              `json:"brand,omitempty"`
	ListPrice   decimal.Decimal     `json:"list_price"`
	Source      enums.ProductSource `json:"source"`
	SourceLabel string              `json:"source_label"`
	BadgeClass  string              `json:"badge_class"`
	Icon        string              `json:"icon"`
	Status      enums.AddStatus     `json:"status"`
	StatusLabel string              `json:"status_label"`
	RowClass    string              `json:"row_class,omitempty"`
	Disabled    bool                `json:"disabled"`
}

// Identity is the id sent to the platform: the product id for local rows and
// the product code for external rows.
func (r Row) Identity() string {
	if r.Source == enums.ProductSourceExternal {
		return r.ProductCode
	}
	return r.ProductID
}

// ResolveKey applies the identity rule to a remote product. ok is false when
// the field the rule needs is missing or the source is unknown.
func ResolveKey(p crm.Product) (key string, source enums.ProductSource, ok bool) {
	source, err := enums.ParseProductSource(strings.ToLower(strings.TrimSpace(p.Source)))
	if err != nil {
		return "", "", false
	}
	switch source {
	case enums.ProductSourceLocal:
		id := strings.TrimSpace(p.ProductID)
		if id == "" {
			return "", source, false
		}
		return keyPrefixLocal + id, source, true
	default:
		code := strings.TrimSpace(p.ProductCode)
		if code == "" {
			return "", source, false
		}
		return keyPrefixExternal + code, source, true
	}
}

func newRow(key string, source enums.ProductSource, p crm.Product) Row {
	return Row{
		Key:         key,
		ProductID:   strings.TrimSpace(p.ProductID),
		ProductCode: strings.TrimSpace(p.ProductCode),
		Name:        p.Name,
		Category:    p.Category,
		Brand:       p.Brand,
		ListPrice:   p.ListPrice,
		Source:      source,
	}
}

// present fills the derived fields from the add status and activation state.
func present(r Row, added, activated bool) Row {
	switch r.Source {
	case enums.ProductSourceExternal:
		r.SourceLabel = "External"
		r.BadgeClass = "badge-external"
		r.Icon = "utility:world"
	default:
		r.SourceLabel = "Local"
		r.BadgeClass = "badge-local"
		r.Icon = "standard:product"
	}

	r.RowClass = ""
	switch {
	case added:
		r.Status = enums.AddStatusAdded
		r.StatusLabel = "Added"
		r.RowClass = "row-added"
	case activated:
		r.Status = enums.AddStatusAvailable
		r.StatusLabel = "Locked"
		r.RowClass = "row-locked"
	default:
		r.Status = enums.AddStatusAvailable
		r.StatusLabel = "Add"
	}
	r.Disabled = added || activated
	return r
}

// matcher reports whether a row contains term in its name, code, category or brand.
type matcher struct {
	term   string
	folder cases.Caser
}

func newMatcher(term string) *matcher {
	m := &matcher{folder: cases.Fold()}
	m.term = m.folder.String(strings.TrimSpace(term))
	return m
}

func (m *matcher) match(r Row) bool {
	if m.term == "" {
		return true
	}
	for _, field := range []string{r.Name, r.ProductCode, r.Category, r.Brand} {
		if strings.Contains(m.folder.String(field), m.term) {
			return true
		}
	}
	return false
}

func filterRows(rows []Row, term string) []Row {
	m := newMatcher(term)
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if m.match(r) {
			out = append(out, r)
		}
	}
	return out
}
