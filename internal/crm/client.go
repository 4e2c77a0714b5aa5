package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/metrics"
)

const (
	defaultTimeout           = 10 * time.Second
	errorBodyReadLimit int64 = 4096
)

const (
	procListProducts   = "listCombinedProducts"
	procAddLocal       = "addLocalProduct"
	procAddExternal    = "addExternalProduct"
	procListLineItems  = "listOrderLineItems"
	procIsActivated    = "isOrderActivated"
	procActivate       = "activateOrder"
	procRemoveLineItem = "removeOrderLineItem"
)

var errBaseURLRequired = errors.New("crm base url is required")

// Client is the remote procedure surface of the CRM platform.
type Client interface {
	ListCombinedProducts(ctx context.Context, orderID string, includeExternal bool) ([]Product, error)
	AddLocalProduct(ctx context.Context, orderID, productID string) (Result, error)
	AddExternalProduct(ctx context.Context, orderID, payload string) (Result, error)
	ListOrderLineItems(ctx context.Context, orderID string) ([]LineItem, error)
	IsOrderActivated(ctx context.Context, orderID string) (bool, error)
	ActivateOrder(ctx context.Context, orderID string) (Result, error)
	RemoveOrderLineItem(ctx context.Context, orderItemID string) (Result, error)
}

// HTTPClient talks to the CRM procedures over HTTP/JSON.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	metrics    *metrics.RemoteCallMetrics
}

// Option configures optional client behavior.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMetrics records call latency and failures.
func WithMetrics(m *metrics.RemoteCallMetrics) Option {
	return func(c *HTTPClient) {
		c.metrics = m
	}
}

// NewHTTPClient builds the CRM client from configuration.
func NewHTTPClient(cfg config.CRMConfig, opts ...Option) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		token:      strings.TrimSpace(cfg.APIToken),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *HTTPClient) ListCombinedProducts(ctx context.Context, orderID string, includeExternal bool) ([]Product, error) {
	if err := requireID(orderID, "order id"); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("orders/%s/products?includeExternal=%s", url.PathEscape(orderID), strconv.FormatBool(includeExternal))

	var products []Product
	if err := c.call(ctx, procListProducts, http.MethodGet, path, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *HTTPClient) AddLocalProduct(ctx context.Context, orderID, productID string) (Result, error) {
	if err := requireID(orderID, "order id"); err != nil {
		return Result{}, err
	}
	if err := requireID(productID, "product id"); err != nil {
		return Result{}, err
	}
	body := map[string]string{"productId": productID}
	return c.mutate(ctx, procAddLocal, http.MethodPost, fmt.Sprintf("orders/%s/items/local", url.PathEscape(orderID)), body)
}

// AddExternalProduct sends the serialized partner product as an opaque payload.
func (c *HTTPClient) AddExternalProduct(ctx context.Context, orderID, payload string) (Result, error) {
	if err := requireID(orderID, "order id"); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(payload) == "" {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "external product payload is required")
	}
	body := map[string]string{"payload": payload}
	return c.mutate(ctx, procAddExternal, http.MethodPost, fmt.Sprintf("orders/%s/items/external", url.PathEscape(orderID)), body)
}

func (c *HTTPClient) ListOrderLineItems(ctx context.Context, orderID string) ([]LineItem, error) {
	if err := requireID(orderID, "order id"); err != nil {
		return nil, err
	}
	var items []LineItem
	if err := c.call(ctx, procListLineItems, http.MethodGet, fmt.Sprintf("orders/%s/items", url.PathEscape(orderID)), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *HTTPClient) IsOrderActivated(ctx context.Context, orderID string) (bool, error) {
	if err := requireID(orderID, "order id"); err != nil {
		return false, err
	}
	var resp struct {
		Activated bool `json:"activated"`
	}
	if err := c.call(ctx, procIsActivated, http.MethodGet, fmt.Sprintf("orders/%s/activation", url.PathEscape(orderID)), nil, &resp); err != nil {
		return false, err
	}
	return resp.Activated, nil
}

func (c *HTTPClient) ActivateOrder(ctx context.Context, orderID string) (Result, error) {
	if err := requireID(orderID, "order id"); err != nil {
		return Result{}, err
	}
	return c.mutate(ctx, procActivate, http.MethodPost, fmt.Sprintf("orders/%s/activate", url.PathEscape(orderID)), nil)
}

func (c *HTTPClient) RemoveOrderLineItem(ctx context.Context, orderItemID string) (Result, error) {
	if err := requireID(orderItemID, "order item id"); err != nil {
		return Result{}, err
	}
	return c.mutate(ctx, procRemoveLineItem, http.MethodDelete, fmt.Sprintf("order-items/%s", url.PathEscape(orderItemID)), nil)
}

func (c *HTTPClient) mutate(ctx context.Context, procedure, method, path string, body any) (Result, error) {
	var result Result
	if err := c.call(ctx, procedure, method, path, body, &result); err != nil {
		return Result{}, err
	}
	return result, nil
}

func (c *HTTPClient) call(ctx context.Context, procedure, method, path string, body, out any) (err error) {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "crm client not configured")
	}
	started := time.Now()
	defer func() {
		c.metrics.Observe(procedure, time.Since(started), err)
	}()

	var reader io.Reader
	if body != nil {
		payload, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, marshalErr, "marshal "+procedure+" request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+procedure+" request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+procedure+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, decodeFault(resp.StatusCode, raw), procedure+" request failed")
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+procedure+" response")
	}
	return nil
}

// decodeFault maps an error response into a RemoteFault. Bodies look like
// {"error":{"message":"..."}} or {"message":"..."}; anything else is kept raw.
func decodeFault(status int, raw []byte) *pkgerrors.RemoteFault {
	fault := &pkgerrors.RemoteFault{
		StatusCode: status,
		Raw:        strings.TrimSpace(string(raw)),
	}
	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fault
	}
	fault.Message = body.Message
	if len(body.Error) == 0 {
		return fault
	}
	var structured struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body.Error, &structured); err == nil {
		fault.BodyMessage = structured.Message
		return fault
	}
	var text string
	if err := json.Unmarshal(body.Error, &text); err == nil {
		fault.BodyMessage = text
	}
	return fault
}

func (c *HTTPClient) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}

func requireID(value, name string) error {
	if strings.TrimSpace(value) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	return nil
}
