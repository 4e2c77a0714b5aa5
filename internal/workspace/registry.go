package workspace

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/orderdesk-backend/internal/activation"
	"github.com/angelmondragon/orderdesk-backend/internal/catalog"
	"github.com/angelmondragon/orderdesk-backend/internal/crm"
	"github.com/angelmondragon/orderdesk-backend/internal/notifier"
	"github.com/angelmondragon/orderdesk-backend/internal/orderlines"
	"github.com/angelmondragon/orderdesk-backend/internal/settle"
	"github.com/angelmondragon/orderdesk-backend/internal/toast"
	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Workspace hosts both views of one order, the way a page hosts its components.
type Workspace struct {
	ID       string
	OrderID  string
	OpenedAt time.Time
	Catalog  *catalog.View
	Lines    *orderlines.View
	Toasts   *toast.Feed
}

// Snapshot is the combined render state of a workspace.
type Snapshot struct {
	ID       string              `json:"id"`
	OrderID  string              `json:"order_id"`
	OpenedAt time.Time           `json:"opened_at"`
	Products catalog.Snapshot    `json:"products"`
	Lines    orderlines.Snapshot `json:"lines"`
}

func (w *Workspace) Snapshot() Snapshot {
	return Snapshot{
		ID:       w.ID,
		OrderID:  w.OrderID,
		OpenedAt: w.OpenedAt,
		Products: w.Catalog.Snapshot(),
		Lines:    w.Lines.Snapshot(),
	}
}

// Remote is the full CRM surface both views draw on.
type Remote interface {
	catalog.Remote
	orderlines.Remote
	activation.Remote
}

var _ Remote = crm.Client(nil)

type Params struct {
	Views         config.ViewsConfig
	CRM           config.CRMConfig
	Remote        Remote
	Activation    *activation.Registry
	Bus           *notifier.Bus
	Settle        *settle.Waiter
	Money         *orderlines.MoneyFormatter
	ReloadMetrics *metrics.ReloadMetrics
	Logger        *logger.Logger
}

// Registry tracks open workspaces.
type Registry struct {
	params Params
	now    func() time.Time

	mu    sync.RWMutex
	items map[string]*Workspace
}

func NewRegistry(p Params) (*Registry, error) {
	if p.Remote == nil {
		return nil, errors.New("crm remote required")
	}
	if p.Activation == nil {
		return nil, errors.New("activation registry required")
	}
	if p.Bus == nil {
		return nil, errors.New("notifier bus required")
	}
	if p.Money == nil {
		money, err := orderlines.NewMoneyFormatter(p.Views.Currency)
		if err != nil {
			return nil, err
		}
		p.Money = money
	}
	return &Registry{
		params: p,
		now:    time.Now,
		items:  make(map[string]*Workspace),
	}, nil
}

// Open mounts both views for orderID and registers the workspace.
func (r *Registry) Open(ctx context.Context, orderID string) (*Workspace, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	id := uuid.NewString()
	ctx = r.params.Logger.WithWorkspaceID(r.params.Logger.WithOrderID(ctx, orderID), id)
	store := r.params.Activation.Acquire(orderID)
	feed := toast.NewFeed(r.params.Views.ToastBuffer)

	products, err := catalog.NewView(catalog.ViewParams{
		OrderID:          orderID,
		Remote:           r.params.Remote,
		Activation:       store,
		Bus:              r.params.Bus,
		Toasts:           feed,
		Settle:           r.params.Settle,
		ReloadMetrics:    r.params.ReloadMetrics,
		Logger:           r.params.Logger,
		PageSize:         r.params.Views.PageSize,
		IncludeExternal:  r.params.CRM.IncludeExternal,
		StatsRevealDelay: r.params.Views.StatsRevealDelay,
	})
	if err != nil {
		r.params.Activation.Release(orderID)
		return nil, err
	}
	lines, err := orderlines.NewView(orderlines.ViewParams{
		OrderID:       orderID,
		Remote:        r.params.Remote,
		Activation:    store,
		Bus:           r.params.Bus,
		Toasts:        feed,
		Money:         r.params.Money,
		ReloadMetrics: r.params.ReloadMetrics,
		Logger:        r.params.Logger,
	})
	if err != nil {
		r.params.Activation.Release(orderID)
		return nil, err
	}

	ws := &Workspace{
		ID:       id,
		OrderID:  orderID,
		OpenedAt: r.now().UTC(),
		Catalog:  products,
		Lines:    lines,
		Toasts:   feed,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return products.Mount(gctx) })
	g.Go(func() error { return lines.Mount(gctx) })
	if err := g.Wait(); err != nil {
		_ = r.teardown(ws)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mount workspace")
	}

	r.mu.Lock()
	r.items[id] = ws
	r.mu.Unlock()

	if r.params.Logger != nil {
		r.params.Logger.Info(ctx, "workspace opened")
	}
	return ws, nil
}

func (r *Registry) Get(id string) (*Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws, ok := r.items[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "workspace not found")
	}
	return ws, nil
}

// Close unmounts the workspace's views and forgets it.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	ws, ok := r.items[id]
	delete(r.items, id)
	r.mu.Unlock()
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "workspace not found")
	}

	err := r.teardown(ws)
	if r.params.Logger != nil {
		r.params.Logger.Info(r.params.Logger.WithWorkspaceID(ctx, id), "workspace closed")
	}
	return err
}

// CloseAll closes every open workspace, collecting all failures.
func (r *Registry) CloseAll(ctx context.Context) error {
	var err error
	for _, id := range r.IDs() {
		if closeErr := r.Close(ctx, id); closeErr != nil && !pkgerrors.HasCode(closeErr, pkgerrors.CodeNotFound) {
			err = multierr.Append(err, closeErr)
		}
	}
	return err
}

// IDs lists open workspace ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Registry) teardown(ws *Workspace) error {
	err := multierr.Combine(ws.Catalog.Unmount(), ws.Lines.Unmount())
	r.params.Activation.Release(ws.OrderID)
	return err
}
