package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"toyadmin/internal/models"
)

// ErrTimeout marks a remote call that exceeded the client deadline, so
// callers can report it separately from other backend failures.
var ErrTimeout = errors.New("backend request timed out")

const (
	defaultTimeout = 10 * time.Second

	// snapshotSize is the server-side page ceiling: large enough that a
	// single page is effectively the full collection.
	snapshotSize = 1000
)

type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type ordersResponse struct {
	Orders      []models.Order `json:"orders"`
	TotalOrders int            `json:"total_orders"`
}

type productsResponse struct {
	Products      []models.Product `json:"products"`
	TotalProducts int              `json:"total_products"`
}

// GetOrders fetches the full order snapshot in arrival order.
func (c *Client) GetOrders(ctx context.Context) ([]models.Order, error) {
	u := fmt.Sprintf("%s/api/v1/admin/order/get/all?page=0&size=%d&request-id=%s",
		c.baseURL, snapshotSize, uuid.NewString())

	var res ordersResponse
	if err := c.getJSON(ctx, u, &res); err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}
	return res.Orders, nil
}

// GetProducts fetches the dashboard product snapshot.
func (c *Client) GetProducts(ctx context.Context) ([]models.Product, error) {
	u := fmt.Sprintf("%s/api/v1/admin/products/get/products/for-dashboard?page-number=0&page-size=%d&request-id=%s",
		c.baseURL, snapshotSize, uuid.NewString())

	var res productsResponse
	if err := c.getJSON(ctx, u, &res); err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	return res.Products, nil
}

// UpdateOrderStatus issues the remote status transition. The backend
// returns no body the client needs; only the status code matters.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	u := fmt.Sprintf("%s/api/v1/admin/order/update/status?order-id=%s&order-status=%s&request-id=%s",
		c.baseURL, strconv.FormatInt(orderID, 10), url.QueryEscape(status.String()), uuid.NewString())

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("update order status: %w", classify(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("update order status: unexpected status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func classify(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
