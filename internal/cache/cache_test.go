package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toyadmin/internal/models"
)

type blockingSource struct {
	mu      sync.Mutex
	pending []chan []models.Order
}

func (s *blockingSource) GetOrders(_ context.Context) ([]models.Order, error) {
	ch := make(chan []models.Order)
	s.mu.Lock()
	s.pending = append(s.pending, ch)
	s.mu.Unlock()
	return <-ch, nil
}

func (s *blockingSource) release(i int, orders []models.Order) {
	s.mu.Lock()
	ch := s.pending[i]
	s.mu.Unlock()
	ch <- orders
}

type staticSource struct {
	orders []models.Order
	calls  int
}

func (s *staticSource) GetOrders(_ context.Context) ([]models.Order, error) {
	s.calls++
	return s.orders, nil
}

func TestRefreshAndInvalidate(t *testing.T) {
	c := NewOrdersCache()
	_, ok := c.Get()
	assert.False(t, ok)

	src := &staticSource{orders: []models.Order{{OrderID: 1}}}
	require.NoError(t, c.Refresh(context.Background(), src))

	orders, ok := c.Get()
	assert.True(t, ok)
	assert.Len(t, orders, 1)

	c.Invalidate()
	_, ok = c.Get()
	assert.False(t, ok)

	// data survives until the next refresh even while invalid
	require.NoError(t, c.Refresh(context.Background(), src))
	_, ok = c.Get()
	assert.True(t, ok)
	assert.Equal(t, 2, src.calls)
}

func TestStaleRefreshDiscarded(t *testing.T) {
	c := NewOrdersCache()
	src := &blockingSource{}

	stale := []models.Order{{OrderID: 1, Status: models.StatusPending}}
	fresh := []models.Order{{OrderID: 1, Status: models.StatusConfirmed}}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = c.Refresh(context.Background(), src) // first ticket, slow response
	}()
	waitPending(t, src, 1)
	go func() {
		defer wg.Done()
		_ = c.Refresh(context.Background(), src) // second ticket, fast response
	}()
	waitPending(t, src, 2)

	src.release(1, fresh)
	waitApplied(t, c, models.StatusConfirmed)
	src.release(0, stale)
	wg.Wait()

	orders, ok := c.Get()
	require.True(t, ok)
	assert.Equal(t, models.StatusConfirmed, orders[0].Status, "stale response must not overwrite fresher snapshot")
}

func TestInvalidateFencesInFlightRefresh(t *testing.T) {
	c := NewOrdersCache()
	src := &blockingSource{}

	preUpdate := []models.Order{{OrderID: 1, Status: models.StatusPending}}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.Refresh(context.Background(), src) // ticketed before the invalidation
	}()
	waitPending(t, src, 1)

	c.Invalidate()

	src.release(0, preUpdate)
	wg.Wait()

	// the response predates the invalidation, so it must not
	// re-mark the cache valid with the old snapshot
	_, ok := c.Get()
	assert.False(t, ok, "pre-invalidation refresh must not resurrect the snapshot")
}

func TestProductsAutoRefresh(t *testing.T) {
	c := NewProductsCache()
	src := &staticProductSource{products: []models.Product{{ProductID: 7, InventoryCount: 2}}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.StartAutoRefresh(ctx, src, 5*time.Millisecond)

	for {
		if products, ok := c.Get(); ok {
			require.Len(t, products, 1)
			assert.Equal(t, int64(7), products[0].ProductID)
			return
		}
		time.Sleep(time.Millisecond)
	}
}

type staticProductSource struct {
	products []models.Product
}

func (s *staticProductSource) GetProducts(_ context.Context) ([]models.Product, error) {
	return s.products, nil
}

func waitPending(t *testing.T, s *blockingSource, n int) {
	t.Helper()
	for {
		s.mu.Lock()
		got := len(s.pending)
		s.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func waitApplied(t *testing.T, c *OrdersCache, want models.OrderStatus) {
	t.Helper()
	for {
		if orders, ok := c.Get(); ok && len(orders) > 0 && orders[0].Status == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
}
