package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdesk-backend/api/controllers"
	"github.com/angelmondragon/orderdesk-backend/internal/activation"
	"github.com/angelmondragon/orderdesk-backend/internal/crm"
	"github.com/angelmondragon/orderdesk-backend/internal/notifier"
	"github.com/angelmondragon/orderdesk-backend/internal/workspace"
	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type memoryStore struct {
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

type countingCRM struct {
	adds int
}

func (c *countingCRM) ListCombinedProducts(context.Context, string, bool) ([]crm.Product, error) {
	return []crm.Product{{ProductID: "p1", Name: "Widget", Source: "local"}}, nil
}

func (c *countingCRM) AddLocalProduct(context.Context, string, string) (crm.Result, error) {
	c.adds++
	return crm.Result{Success: true}, nil
}

func (c *countingCRM) AddExternalProduct(context.Context, string, string) (crm.Result, error) {
	return crm.Result{Success: true}, nil
}

func (c *countingCRM) ListOrderLineItems(context.Context, string) ([]crm.LineItem, error) {
	return nil, nil
}

func (c *countingCRM) IsOrderActivated(context.Context, string) (bool, error) {
	return false, nil
}

func (c *countingCRM) ActivateOrder(context.Context, string) (crm.Result, error) {
	return crm.Result{Success: true}, nil
}

func (c *countingCRM) RemoveOrderLineItem(context.Context, string) (crm.Result, error) {
	return crm.Result{Success: true}, nil
}

type fixture struct {
	handler    http.Handler
	workspaces *workspace.Registry
	remote     *countingCRM
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	remote := &countingCRM{}
	bus := notifier.NewBus(config.NotifierConfig{QueueSize: 8}, "test", logg)
	t.Cleanup(func() { _ = bus.Close() })

	reg := prometheus.NewRegistry()
	workspaces, err := workspace.NewRegistry(workspace.Params{
		Views:         config.ViewsConfig{PageSize: 10, Currency: "USD", ToastBuffer: 10, StatsRevealDelay: time.Millisecond},
		CRM:           config.CRMConfig{IncludeExternal: true},
		Remote:        remote,
		Activation:    activation.NewRegistry(remote, nil, logg),
		Bus:           bus,
		ReloadMetrics: metrics.NewReloadMetrics(reg),
		Logger:        logg,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = workspaces.CloseAll(context.Background()) })

	handler := NewRouter(Params{
		Config:      &config.Config{App: config.AppConfig{Env: "test"}},
		Logger:      logg,
		Workspaces:  workspaces,
		Idempotency: &memoryStore{data: map[string]string{}},
		Readiness:   map[string]controllers.Pinger{"redis": stubPinger{}},
		Gatherer:    reg,
	})
	return fixture{handler: handler, workspaces: workspaces, remote: remote}
}

func (f fixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health/live", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health/ready", "", nil).Code)
}

func TestMetricsRouteExposesReloadCounters(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/workspaces", `{"order_id":"ord-1"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "view_reload_fetches_total")
}

func TestWorkspaceRoutes(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/workspaces", `{"order_id":"ord-1"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var opened struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opened))
	base := "/api/v1/workspaces/" + opened.Data.ID

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, base, "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, base+"/products?q=widget", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, base+"/lines", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/activation/check", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, base+"/toasts", "", nil).Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, base, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, base, "", nil).Code)
}

func TestAddRouteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ws, err := f.workspaces.Open(context.Background(), "ord-1")
	require.NoError(t, err)
	path := "/api/v1/workspaces/" + ws.ID + "/products/local:p1/add"

	rec := f.do(http.MethodPost, path, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	headers := map[string]string{"Idempotency-Key": "add-1"}
	first := f.do(http.MethodPost, path, "", headers)
	require.Equal(t, http.StatusOK, first.Code)

	replay := f.do(http.MethodPost, path, "", headers)
	assert.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, 1, f.remote.adds)
}
