package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/orderdesk-backend/internal/activation"
	"github.com/angelmondragon/orderdesk-backend/internal/crm"
	"github.com/angelmondragon/orderdesk-backend/internal/notifier"
	"github.com/angelmondragon/orderdesk-backend/internal/reload"
	"github.com/angelmondragon/orderdesk-backend/internal/settle"
	"github.com/angelmondragon/orderdesk-backend/internal/toast"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/metrics"
	"github.com/angelmondragon/orderdesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const reloadKey = "products"

// Remote is the slice of the CRM surface the catalog needs.
type Remote interface {
	ListCombinedProducts(ctx context.Context, orderID string, includeExternal bool) ([]crm.Product, error)
	AddLocalProduct(ctx context.Context, orderID, productID string) (crm.Result, error)
	AddExternalProduct(ctx context.Context, orderID, payload string) (crm.Result, error)
	ListOrderLineItems(ctx context.Context, orderID string) ([]crm.LineItem, error)
}

// Stats are the source counts shown in the banner above the list. Visible
// flips on one tick after each recompute.
type Stats struct {
	Local    int  `json:"local"`
	External int  `json:"external"`
	Added    int  `json:"added"`
	Total    int  `json:"total"`
	Visible  bool `json:"visible"`
}

// Snapshot is an immutable copy of the view for rendering.
type Snapshot struct {
	OrderID    string          `json:"order_id"`
	SearchTerm string          `json:"search_term"`
	Rows       []Row           `json:"rows"`
	Page       pagination.Page `json:"pagination"`
	Stats      Stats           `json:"stats"`
	Activated  bool            `json:"activated"`
	Loaded     bool            `json:"loaded"`
	Error      string          `json:"error,omitempty"`
}

type ViewParams struct {
	OrderID          string
	Remote           Remote
	Activation       *activation.Store
	Bus              *notifier.Bus
	Toasts           *toast.Feed
	Settle           *settle.Waiter
	ReloadMetrics    *metrics.ReloadMetrics
	Logger           *logger.Logger
	PageSize         int
	IncludeExternal  bool
	StatsRevealDelay time.Duration
}

// View is the product list for one order.
type View struct {
	id              string
	orderID         string
	remote          Remote
	activation      *activation.Store
	bus             *notifier.Bus
	toasts          *toast.Feed
	settle          *settle.Waiter
	reloads         *reload.Coalescer[[]crm.Product]
	logg            *logger.Logger
	pageSize        int
	includeExternal bool
	revealDelay     time.Duration

	mu         sync.Mutex
	all        []Row
	filtered   []Row
	term       string
	page       int
	stats      Stats
	statsGen   uint64
	statsTimer *time.Timer
	loaded     bool
	lastErr    string
	added      map[string]struct{}
	pending    map[string]struct{}

	mountMu sync.Mutex
	sub     *notifier.Subscription
	unwatch func()
}

func NewView(p ViewParams) (*View, error) {
	if strings.TrimSpace(p.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if p.Remote == nil {
		return nil, errors.New("crm remote required")
	}
	if p.Activation == nil {
		return nil, errors.New("activation store required")
	}
	if p.Toasts == nil {
		p.Toasts = toast.NewFeed(0)
	}
	return &View{
		id:              uuid.NewString(),
		orderID:         p.OrderID,
		remote:          p.Remote,
		activation:      p.Activation,
		bus:             p.Bus,
		toasts:          p.Toasts,
		settle:          p.Settle,
		reloads:         reload.New[[]crm.Product]("catalog", p.ReloadMetrics),
		logg:            p.Logger,
		pageSize:        pagination.NormalizeSize(p.PageSize),
		includeExternal: p.IncludeExternal,
		revealDelay:     p.StatsRevealDelay,
		page:            1,
		all:             []Row{},
		filtered:        []Row{},
		added:           make(map[string]struct{}),
		pending:         make(map[string]struct{}),
	}, nil
}

func (v *View) OrderID() string {
	return v.orderID
}

// Mount subscribes to order events, watches activation and runs the first load.
func (v *View) Mount(ctx context.Context) error {
	v.mountMu.Lock()
	defer v.mountMu.Unlock()
	if v.sub != nil {
		return nil
	}

	if v.bus != nil {
		sub, err := v.bus.Subscribe("catalog:"+v.orderID, v.handleEvent)
		if err != nil {
			return err
		}
		v.sub = sub
	}
	v.unwatch = v.activation.Watch(func(enums.ActivationState) { v.refreshPresentation() })

	if _, err := v.activation.Ensure(ctx); err != nil {
		v.logError(ctx, "catalog activation check failed", err)
	}
	if err := v.LoadProducts(ctx); err != nil {
		v.logError(ctx, "initial catalog load failed", err)
	}
	return nil
}

// Unmount stops event delivery. It is safe to call repeatedly.
func (v *View) Unmount() error {
	v.mountMu.Lock()
	sub := v.sub
	unwatch := v.unwatch
	v.sub = nil
	v.unwatch = nil
	v.mountMu.Unlock()

	if unwatch != nil {
		unwatch()
	}
	var err error
	if sub != nil {
		err = sub.Unsubscribe()
	}

	v.mu.Lock()
	if v.statsTimer != nil {
		v.statsTimer.Stop()
		v.statsTimer = nil
	}
	v.mu.Unlock()
	return err
}

// LoadProducts re-fetches the combined catalog. Concurrent calls share one fetch.
func (v *View) LoadProducts(ctx context.Context) error {
	return v.reloads.Do(ctx, reloadKey, func(ctx context.Context) ([]crm.Product, error) {
		return v.remote.ListCombinedProducts(ctx, v.orderID, v.includeExternal)
	}, func(products []crm.Product, err error) {
		v.applyLoad(ctx, products, err)
	})
}

func (v *View) applyLoad(ctx context.Context, products []crm.Product, err error) {
	if err != nil {
		msg := pkgerrors.Describe(err)
		v.mu.Lock()
		v.all = []Row{}
		v.filtered = []Row{}
		v.page = 1
		v.loaded = true
		v.lastErr = msg
		v.recomputeStatsLocked()
		v.mu.Unlock()

		v.toasts.Error("Error loading products", msg)
		v.logError(ctx, "load products failed", err)
		return
	}

	activated := v.activation.IsActivated()
	rows := make([]Row, 0, len(products))
	seen := make(map[string]struct{}, len(products))
	skipped := 0

	v.mu.Lock()
	defer v.mu.Unlock()
	// the remote flag is authoritative; only an add still in flight keeps its local mark
	inFlight := make(map[string]struct{}, len(v.pending))
	for key := range v.pending {
		if _, ok := v.added[key]; ok {
			inFlight[key] = struct{}{}
		}
	}
	v.added = inFlight
	for _, p := range products {
		key, source, ok := ResolveKey(p)
		if !ok {
			skipped++
			continue
		}
		if _, dup := seen[key]; dup {
			skipped++
			continue
		}
		seen[key] = struct{}{}
		if p.Added {
			v.added[key] = struct{}{}
		}
		_, added := v.added[key]
		rows = append(rows, present(newRow(key, source, p), added, activated))
	}

	v.all = rows
	v.filtered = filterRows(rows, v.term)
	v.page = 1
	v.loaded = true
	v.lastErr = ""
	v.recomputeStatsLocked()

	if skipped > 0 && v.logg != nil {
		fields := map[string]any{"skipped": skipped, "loaded": len(rows)}
		v.logg.Warn(v.logg.WithFields(v.logg.WithOrderID(ctx, v.orderID), fields), "catalog rows without a resolvable identity were dropped")
	}
}

// ApplyFilters narrows the list to rows matching term and returns to page 1.
func (v *View) ApplyFilters(term string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.term = strings.TrimSpace(term)
	v.filtered = filterRows(v.all, v.term)
	v.page = 1
}

// AddProduct adds the row identified by key to the order.
func (v *View) AddProduct(ctx context.Context, key string) (Row, error) {
	row, err := v.reserve(key)
	if err != nil {
		v.toasts.Error("Cannot add product", pkgerrors.Describe(err))
		return Row{}, err
	}
	defer v.release(key)

	res, err := v.submit(ctx, row)
	if err == nil {
		err = res.Err()
	}
	if err != nil {
		v.toasts.Error("Error adding product", pkgerrors.Describe(err))
		v.logError(ctx, "add product failed", err)
		return row, err
	}

	v.mu.Lock()
	v.added[key] = struct{}{}
	activated := v.activation.IsActivated()
	v.all = markAdded(v.all, key, activated)
	v.filtered = markAdded(v.filtered, key, activated)
	v.recomputeStatsLocked()
	updated, _ := findRow(v.all, key)
	v.mu.Unlock()

	v.toasts.Success("Product added", row.Name+" was added to the order")
	v.awaitVisible(ctx, res.RecordID)

	if v.bus != nil {
		evt := notifier.ProductAdded(v.orderID, row.Identity(), res.RecordID)
		evt.Sender = v.id
		if _, err := v.bus.Publish(ctx, evt); err != nil {
			v.logError(ctx, "publish product added failed", err)
		}
	}
	if err := v.LoadProducts(ctx); err != nil {
		v.logError(ctx, "reload after add failed", err)
	}
	return updated, nil
}

func (v *View) reserve(key string) (Row, error) {
	switch v.activation.State() {
	case enums.ActivationStateActivated:
		return Row{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order is activated; products can no longer be added")
	case enums.ActivationStateActivating:
		return Row{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order activation in progress; products cannot be added")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	row, ok := findRow(v.all, key)
	if !ok {
		return Row{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found in catalog")
	}
	if row.Status == enums.AddStatusAdded || row.Disabled {
		return Row{}, pkgerrors.New(pkgerrors.CodeStateConflict, "product is already added")
	}
	if _, busy := v.pending[key]; busy {
		return Row{}, pkgerrors.New(pkgerrors.CodeStateConflict, "product add already in progress")
	}
	v.pending[key] = struct{}{}
	return row, nil
}

func (v *View) release(key string) {
	v.mu.Lock()
	delete(v.pending, key)
	v.mu.Unlock()
}

type externalPayload struct {
	ProductCode string          `json:"productCode"`
	Name        string          `json:"name"`
	Category    string          `json:"category,omitempty"`
	Brand       string          `json:"brand,omitempty"`
	ListPrice   decimal.Decimal `json:"listPrice"`
	Source      string          `json:"source"`
}

func (v *View) submit(ctx context.Context, row Row) (crm.Result, error) {
	if row.Source == enums.ProductSourceLocal {
		return v.remote.AddLocalProduct(ctx, v.orderID, row.ProductID)
	}
	payload, err := json.Marshal(externalPayload{
		ProductCode: row.ProductCode,
		Name:        row.Name,
		Category:    row.Category,
		Brand:       row.Brand,
		ListPrice:   row.ListPrice,
		Source:      row.Source.String(),
	})
	if err != nil {
		return crm.Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serialize external product")
	}
	return v.remote.AddExternalProduct(ctx, v.orderID, string(payload))
}

// awaitVisible polls the order lines until the new record shows up. A timeout
// is logged and otherwise ignored.
func (v *View) awaitVisible(ctx context.Context, recordID string) {
	if v.settle == nil || recordID == "" {
		return
	}
	err := v.settle.Until(ctx, func(ctx context.Context) (bool, error) {
		items, err := v.remote.ListOrderLineItems(ctx, v.orderID)
		if err != nil {
			return false, err
		}
		for _, item := range items {
			if item.OrderItemID == recordID {
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil && v.logg != nil {
		v.logg.Warn(v.logg.WithField(v.logg.WithOrderID(ctx, v.orderID), "record_id", recordID), "added line not yet visible: "+err.Error())
	}
}

func (v *View) handleEvent(ctx context.Context, evt notifier.Event) {
	if evt.OrderID != v.orderID {
		return
	}
	ctx = v.logg.WithOrderID(ctx, v.orderID)
	switch evt.Kind {
	case enums.OrderEventLineRemoved:
		if err := v.LoadProducts(ctx); err != nil {
			v.logError(ctx, "reload after line removal failed", err)
		}
	case enums.OrderEventProductAdded:
		if evt.Sender == v.id {
			return
		}
		if err := v.LoadProducts(ctx); err != nil {
			v.logError(ctx, "reload after remote add failed", err)
		}
	case enums.OrderEventOrderActivated:
		v.activation.MarkActivated(ctx)
	}
}

// refreshPresentation re-derives disabled flags after an activation change.
func (v *View) refreshPresentation() {
	activated := v.activation.IsActivated()
	v.mu.Lock()
	defer v.mu.Unlock()
	v.all = v.represent(v.all, activated)
	v.filtered = v.represent(v.filtered, activated)
}

func (v *View) represent(rows []Row, activated bool) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		_, added := v.added[r.Key]
		out[i] = present(r, added, activated)
	}
	return out
}

func (v *View) NextPage() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.page < pagination.TotalPages(len(v.filtered), v.pageSize) {
		v.page++
	}
}

func (v *View) PrevPage() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.page > 1 {
		v.page--
	}
}

// GoToPage jumps to page n, clamped into range.
func (v *View) GoToPage(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.page = pagination.Clamp(n, len(v.filtered), v.pageSize)
}

func (v *View) TotalPages() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return pagination.TotalPages(len(v.filtered), v.pageSize)
}

func (v *View) IsFirstPage() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page <= 1
}

func (v *View) IsLastPage() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page >= pagination.TotalPages(len(v.filtered), v.pageSize)
}

// VisibleRows returns a copy of the rows on the current page.
func (v *View) VisibleRows() []Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Row{}, pagination.Slice(v.filtered, v.page, v.pageSize)...)
}

func (v *View) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}

func (v *View) Snapshot() Snapshot {
	activated := v.activation.IsActivated()
	v.mu.Lock()
	defer v.mu.Unlock()
	return Snapshot{
		OrderID:    v.orderID,
		SearchTerm: v.term,
		Rows:       append([]Row{}, pagination.Slice(v.filtered, v.page, v.pageSize)...),
		Page:       pagination.Describe(v.page, len(v.filtered), v.pageSize),
		Stats:      v.stats,
		Activated:  activated,
		Loaded:     v.loaded,
		Error:      v.lastErr,
	}
}

// recomputeStatsLocked counts rows by source and schedules the banner reveal.
func (v *View) recomputeStatsLocked() {
	stats := Stats{Total: len(v.all)}
	for _, r := range v.all {
		if r.Source == enums.ProductSourceExternal {
			stats.External++
		} else {
			stats.Local++
		}
		if r.Status == enums.AddStatusAdded {
			stats.Added++
		}
	}
	v.stats = stats
	v.statsGen++
	gen := v.statsGen

	if v.statsTimer != nil {
		v.statsTimer.Stop()
	}
	v.statsTimer = time.AfterFunc(v.revealDelay, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.statsGen == gen {
			v.stats.Visible = true
		}
	})
}

func (v *View) logError(ctx context.Context, msg string, err error) {
	if v.logg == nil {
		return
	}
	v.logg.Error(v.logg.WithOrderID(ctx, v.orderID), msg, err)
}

func markAdded(rows []Row, key string, activated bool) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		if r.Key == key {
			r = present(r, true, activated)
		}
		out[i] = r
	}
	return out
}

func findRow(rows []Row, key string) (Row, bool) {
	for _, r := range rows {
		if r.Key == key {
			return r, true
		}
	}
	return Row{}, false
}
