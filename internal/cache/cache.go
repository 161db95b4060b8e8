package cache

import (
	"context"
	"sync"
	"time"

	"toyadmin/internal/models"
)

type OrdersSource interface {
	GetOrders(ctx context.Context) ([]models.Order, error)
}

type ProductsSource interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
}

// OrdersCache holds a wholesale snapshot of the backend order collection.
// It is never patched in place: a status update invalidates the snapshot
// and the next read refetches. Every refresh takes a ticket before the
// remote call, so a slow response can never overwrite a fresher snapshot.
type OrdersCache struct {
	mu      sync.RWMutex
	orders  []models.Order
	valid   bool
	seq     uint64
	applied uint64
}

func NewOrdersCache() *OrdersCache {
	return &OrdersCache{}
}

func (c *OrdersCache) Get() ([]models.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.orders, c.valid
}

// Invalidate drops the snapshot and fences out refreshes that were
// already in flight: their tickets predate the bump and get discarded.
func (c *OrdersCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.seq++
	c.applied = c.seq
	c.mu.Unlock()
}

func (c *OrdersCache) Refresh(ctx context.Context, src OrdersSource) error {
	c.mu.Lock()
	c.seq++
	ticket := c.seq
	c.mu.Unlock()

	orders, err := src.GetOrders(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ticket <= c.applied {
		// a fresher refresh already landed
		return nil
	}
	c.applied = ticket
	c.orders = orders
	c.valid = true
	return nil
}

func (c *OrdersCache) StartAutoRefresh(ctx context.Context, src OrdersSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = c.Refresh(ctx, src)
		case <-ctx.Done():
			return
		}
	}
}

// ProductsCache mirrors OrdersCache for the dashboard product snapshot.
type ProductsCache struct {
	mu       sync.RWMutex
	products []models.Product
	valid    bool
	seq      uint64
	applied  uint64
}

func NewProductsCache() *ProductsCache {
	return &ProductsCache{}
}

func (c *ProductsCache) Get() ([]models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.products, c.valid
}

func (c *ProductsCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.seq++
	c.applied = c.seq
	c.mu.Unlock()
}

func (c *ProductsCache) Refresh(ctx context.Context, src ProductsSource) error {
	c.mu.Lock()
	c.seq++
	ticket := c.seq
	c.mu.Unlock()

	products, err := src.GetProducts(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ticket <= c.applied {
		return nil
	}
	c.applied = ticket
	c.products = products
	c.valid = true
	return nil
}

func (c *ProductsCache) StartAutoRefresh(ctx context.Context, src ProductsSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = c.Refresh(ctx, src)
		case <-ctx.Done():
			return
		}
	}
}
