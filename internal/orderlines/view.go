package orderlines

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/angelmondragon/orderdesk-backend/internal/activation"
	"github.com/angelmondragon/orderdesk-backend/internal/crm"
	"github.com/angelmondragon/orderdesk-backend/internal/notifier"
	"github.com/angelmondragon/orderdesk-backend/internal/reload"
	"github.com/angelmondragon/orderdesk-backend/internal/toast"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const reloadKey = "lines"

// Remote is the slice of the CRM surface the order line view needs.
type Remote interface {
	ListOrderLineItems(ctx context.Context, orderID string) ([]crm.LineItem, error)
	ActivateOrder(ctx context.Context, orderID string) (crm.Result, error)
	RemoveOrderLineItem(ctx context.Context, orderItemID string) (crm.Result, error)
}

// Snapshot is an immutable copy of the view for rendering.
type Snapshot struct {
	OrderID         string                `json:"order_id"`
	Rows            []Row                 `json:"rows"`
	Total           decimal.Decimal       `json:"total"`
	FormattedTotal  string                `json:"formatted_total"`
	Currency        string                `json:"currency"`
	ActivationState enums.ActivationState `json:"activation_state"`
	Activated       bool                  `json:"activated"`
	CanActivate     bool                  `json:"can_activate"`
	Loaded          bool                  `json:"loaded"`
	Error           string                `json:"error,omitempty"`
}

type ViewParams struct {
	OrderID       string
	Remote        Remote
	Activation    *activation.Store
	Bus           *notifier.Bus
	Toasts        *toast.Feed
	Money         *MoneyFormatter
	ReloadMetrics *metrics.ReloadMetrics
	Logger        *logger.Logger
}

// View is the order line table for one order.
type View struct {
	id         string
	orderID    string
	remote     Remote
	activation *activation.Store
	bus        *notifier.Bus
	toasts     *toast.Feed
	money      *MoneyFormatter
	reloads    *reload.Coalescer[[]crm.LineItem]
	logg       *logger.Logger

	mu      sync.Mutex
	rows    []Row
	total   decimal.Decimal
	loaded  bool
	lastErr string

	mountMu sync.Mutex
	sub     *notifier.Subscription
	unwatch func()
}

func NewView(p ViewParams) (*View, error) {
	if p.Remote == nil {
		return nil, errors.New("crm remote required")
	}
	if p.Activation == nil {
		return nil, errors.New("activation store required")
	}
	if p.Toasts == nil {
		p.Toasts = toast.NewFeed(0)
	}
	if p.Money == nil {
		money, err := NewMoneyFormatter("USD")
		if err != nil {
			return nil, err
		}
		p.Money = money
	}
	return &View{
		id:         uuid.NewString(),
		orderID:    strings.TrimSpace(p.OrderID),
		remote:     p.Remote,
		activation: p.Activation,
		bus:        p.Bus,
		toasts:     p.Toasts,
		money:      p.Money,
		reloads:    reload.New[[]crm.LineItem]("order_lines", p.ReloadMetrics),
		logg:       p.Logger,
		rows:       []Row{},
		total:      decimal.Zero,
	}, nil
}

func (v *View) OrderID() string {
	return v.orderID
}

// Mount subscribes to order events, watches activation, checks the activation
// flag and loads the lines.
func (v *View) Mount(ctx context.Context) error {
	v.mountMu.Lock()
	defer v.mountMu.Unlock()
	if v.sub != nil {
		return nil
	}

	if v.bus != nil {
		sub, err := v.bus.Subscribe("order_lines:"+v.orderID, v.handleEvent)
		if err != nil {
			return err
		}
		v.sub = sub
	}
	v.unwatch = v.activation.Watch(func(enums.ActivationState) { v.refreshPresentation() })

	v.CheckActivationStatus(ctx)
	if err := v.LoadOrderItems(ctx); err != nil {
		v.logError(ctx, "initial order line load failed", err)
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
	return err
}

// LoadOrderItems re-runs the order line query. Concurrent calls share one fetch.
func (v *View) LoadOrderItems(ctx context.Context) error {
	if v.orderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return v.reloads.Do(ctx, reloadKey, func(ctx context.Context) ([]crm.LineItem, error) {
		return v.remote.ListOrderLineItems(ctx, v.orderID)
	}, func(items []crm.LineItem, err error) {
		v.applyLoad(ctx, items, err)
	})
}

func (v *View) applyLoad(ctx context.Context, items []crm.LineItem, err error) {
	if err != nil {
		msg := pkgerrors.Describe(err)
		v.mu.Lock()
		v.rows = []Row{}
		v.total = decimal.Zero
		v.loaded = true
		v.lastErr = msg
		v.mu.Unlock()

		v.toasts.Error("Error loading order lines", msg)
		v.logError(ctx, "load order lines failed", err)
		return
	}

	activated := v.activation.IsActivated()
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, newRow(item, activated))
	}

	v.mu.Lock()
	v.rows = rows
	v.total = sumTotals(rows)
	v.loaded = true
	v.lastErr = ""
	v.mu.Unlock()
}

// CheckActivationStatus refreshes the shared activation state. Failures are
// logged and the previous state is kept.
func (v *View) CheckActivationStatus(ctx context.Context) enums.ActivationState {
	if v.orderID == "" {
		return v.activation.State()
	}
	state, err := v.activation.Refresh(ctx)
	if err != nil {
		if v.logg != nil {
			v.logg.Warn(v.logg.WithOrderID(ctx, v.orderID), "activation status check failed: "+err.Error())
		}
		return state
	}
	v.refreshPresentation()
	return state
}

// ActivateOrder freezes the order. Guards run before any remote call.
func (v *View) ActivateOrder(ctx context.Context) error {
	if err := v.activationGuard(); err != nil {
		v.toasts.Error("Cannot activate order", pkgerrors.Describe(err))
		return err
	}
	if err := v.activation.Begin(); err != nil {
		v.toasts.Error("Cannot activate order", pkgerrors.Describe(err))
		return err
	}

	res, err := v.remote.ActivateOrder(ctx, v.orderID)
	if err == nil {
		err = res.Err()
	}
	if err != nil {
		v.activation.Fail()
		v.toasts.Error("Activation failed", pkgerrors.Describe(err))
		v.logError(ctx, "activate order failed", err)
		return err
	}

	v.activation.MarkActivated(ctx)
	msg := strings.TrimSpace(res.Message)
	if msg == "" {
		msg = "Order activated"
	}
	v.toasts.Success("Success", msg)
	v.publish(ctx, notifier.OrderActivated(v.orderID))
	if err := v.LoadOrderItems(ctx); err != nil {
		v.logError(ctx, "reload after activation failed", err)
	}
	return nil
}

func (v *View) activationGuard() error {
	if v.orderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if v.activation.IsActivated() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already activated")
	}
	v.mu.Lock()
	count := len(v.rows)
	v.mu.Unlock()
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "add at least one product before activating the order")
	}
	return nil
}

// RemoveOrderItem deletes one line while the order is still inactive.
func (v *View) RemoveOrderItem(ctx context.Context, orderItemID string) error {
	orderItemID = strings.TrimSpace(orderItemID)
	var guardErr error
	switch state := v.activation.State(); {
	case state == enums.ActivationStateActivated:
		guardErr = pkgerrors.New(pkgerrors.CodeStateConflict, "order is activated; lines can no longer be removed")
	case state == enums.ActivationStateActivating:
		guardErr = pkgerrors.New(pkgerrors.CodeStateConflict, "order activation in progress; lines cannot be removed")
	case orderItemID == "":
		guardErr = pkgerrors.New(pkgerrors.CodeValidation, "order item id is required")
	}
	if guardErr != nil {
		v.toasts.Error("Cannot remove line", pkgerrors.Describe(guardErr))
		return guardErr
	}

	res, err := v.remote.RemoveOrderLineItem(ctx, orderItemID)
	if err == nil {
		err = res.Err()
	}
	if err != nil {
		v.toasts.Error("Error removing line", pkgerrors.Describe(err))
		v.logError(ctx, "remove order line failed", err)
		return err
	}

	v.toasts.Success("Success", "Line item removed")
	if err := v.LoadOrderItems(ctx); err != nil {
		v.logError(ctx, "reload after removal failed", err)
	}
	v.publish(ctx, notifier.LineRemoved(v.orderID, orderItemID))
	return nil
}

func (v *View) publish(ctx context.Context, evt notifier.Event) {
	if v.bus == nil {
		return
	}
	evt.Sender = v.id
	if _, err := v.bus.Publish(ctx, evt); err != nil {
		v.logError(ctx, "publish "+evt.Kind.String()+" failed", err)
	}
}

func (v *View) handleEvent(ctx context.Context, evt notifier.Event) {
	if evt.OrderID != v.orderID {
		return
	}
	ctx = v.logg.WithOrderID(ctx, v.orderID)
	switch evt.Kind {
	case enums.OrderEventProductAdded:
		if err := v.LoadOrderItems(ctx); err != nil {
			v.logError(ctx, "reload after product added failed", err)
		}
	case enums.OrderEventLineRemoved:
		if evt.Sender == v.id {
			return
		}
		if err := v.LoadOrderItems(ctx); err != nil {
			v.logError(ctx, "reload after remote removal failed", err)
		}
	case enums.OrderEventOrderActivated:
		v.activation.MarkActivated(ctx)
	}
}

func (v *View) refreshPresentation() {
	activated := v.activation.IsActivated()
	v.mu.Lock()
	defer v.mu.Unlock()
	rows := make([]Row, len(v.rows))
	for i, r := range v.rows {
		r.RemoveDisabled = activated
		rows[i] = r
	}
	v.rows = rows
}

// Rows returns a copy of the current lines.
func (v *View) Rows() []Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Row{}, v.rows...)
}

func (v *View) FormattedTotal() string {
	v.mu.Lock()
	total := v.total
	v.mu.Unlock()
	return v.money.Format(total)
}

func (v *View) Snapshot() Snapshot {
	state := v.activation.State()
	v.mu.Lock()
	defer v.mu.Unlock()
	return Snapshot{
		OrderID:         v.orderID,
		Rows:            append([]Row{}, v.rows...),
		Total:           v.total,
		FormattedTotal:  v.money.Format(v.total),
		Currency:        v.money.Currency(),
		ActivationState: state,
		Activated:       state.IsActivated(),
		CanActivate:     state == enums.ActivationStateInactive && len(v.rows) > 0 && v.orderID != "",
		Loaded:          v.loaded,
		Error:           v.lastErr,
	}
}

func (v *View) logError(ctx context.Context, msg string, err error) {
	if v.logg == nil {
		return
	}
	v.logg.Error(v.logg.WithOrderID(ctx, v.orderID), msg, err)
}
