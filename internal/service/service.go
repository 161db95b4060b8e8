package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"toyadmin/internal/audit"
	"toyadmin/internal/cache"
	"toyadmin/internal/dashboard"
	"toyadmin/internal/invoice"
	"toyadmin/internal/models"
	"toyadmin/internal/notify"
	"toyadmin/internal/orderlist"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrUpdateInFlight = errors.New("status update already in flight for this order")
)

type Backend interface {
	GetOrders(ctx context.Context) ([]models.Order, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error
}

type Auditor interface {
	Log(record audit.Record)
}

// OrderService mediates between operators and the backend order API:
// read paths go through wholesale snapshot caches, the write path is the
// gate -> remote update -> invalidate -> notify flow. Updates on the same
// order are serialized; a second attempt while one is pending is refused.
type OrderService struct {
	backend  Backend
	orders   *cache.OrdersCache
	products *cache.ProductsCache
	notifier notify.Notifier
	auditor  Auditor
	log      *zap.SugaredLogger

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func New(backend Backend, orders *cache.OrdersCache, products *cache.ProductsCache,
	notifier notify.Notifier, auditor Auditor, log *zap.SugaredLogger) *OrderService {
	return &OrderService{
		backend:  backend,
		orders:   orders,
		products: products,
		notifier: notifier,
		auditor:  auditor,
		log:      log,
		inFlight: make(map[int64]struct{}),
	}
}

// Orders returns the cached snapshot, fetching through on a miss.
func (s *OrderService) Orders(ctx context.Context) ([]models.Order, error) {
	if orders, ok := s.orders.Get(); ok {
		return orders, nil
	}
	if err := s.orders.Refresh(ctx, s.backend); err != nil {
		return nil, fmt.Errorf("refresh orders: %w", err)
	}
	orders, _ := s.orders.Get()
	return orders, nil
}

// RefreshOrders forces a snapshot refetch regardless of cache state.
func (s *OrderService) RefreshOrders(ctx context.Context) error {
	if err := s.orders.Refresh(ctx, s.backend); err != nil {
		return fmt.Errorf("refresh orders: %w", err)
	}
	return nil
}

type PageResult struct {
	Orders         []models.Order `json:"orders"`
	TotalOrders    int            `json:"total_orders"`
	FilteredOrders int            `json:"filtered_orders"`
	Page           int            `json:"page"`
	PageSize       int            `json:"page_size"`
	PageCount      int            `json:"page_count"`
}

// VisiblePage filters and pages the snapshot without re-sorting it.
func (s *OrderService) VisiblePage(ctx context.Context, c orderlist.Criteria, page, pageSize int) (*PageResult, error) {
	orders, err := s.Orders(ctx)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = orderlist.DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	filtered := orderlist.Filter(orders, c)
	return &PageResult{
		Orders:         orderlist.Page(filtered, page, pageSize),
		TotalOrders:    len(orders),
		FilteredOrders: len(filtered),
		Page:           page,
		PageSize:       pageSize,
		PageCount:      orderlist.PageCount(len(filtered), pageSize),
	}, nil
}

type ChoicesResult struct {
	OrderID    int64                 `json:"order_id"`
	Status     models.OrderStatus    `json:"order_status"`
	CanConfirm bool                  `json:"can_confirm"`
	Choices    []models.StatusChoice `json:"choices"`
}

// StatusChoices exposes the gate output driving the status dropdown and
// the confirm quick-action for one order.
func (s *OrderService) StatusChoices(ctx context.Context, orderID int64) (*ChoicesResult, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &ChoicesResult{
		OrderID:    order.OrderID,
		Status:     order.Status,
		CanConfirm: models.CanConfirm(order.Status),
		Choices:    models.StatusChoices(order.Status),
	}, nil
}

// UpdateStatus performs one guarded transition. A transition outside the
// allowed set is rejected locally and never reaches the backend. Remote
// failures surface as a notification and leave local state untouched; no
// retry, no optimistic update.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, next models.OrderStatus, actor, endpoint string) error {
	if !next.IsValid() {
		return fmt.Errorf("unknown status %q: %w", next, models.ErrInvalidTransition)
	}

	if err := s.acquire(orderID); err != nil {
		return err
	}
	defer s.release(orderID)

	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if !order.Status.CanTransitionTo(next) {
		s.auditRecord(order, next, actor, endpoint, "rejected locally")
		return fmt.Errorf("%s -> %s: %w", order.Status, next, models.ErrInvalidTransition)
	}

	if err := s.backend.UpdateOrderStatus(ctx, orderID, next); err != nil {
		s.notifier.Notify(notify.Notification{
			Title:       "Order status update failed",
			Description: fmt.Sprintf("order %d: %v", orderID, err),
			Severity:    notify.SeverityError,
		})
		s.auditRecord(order, next, actor, endpoint, fmt.Sprintf("remote failure: %v", err))
		return fmt.Errorf("update order %d: %w", orderID, err)
	}

	s.orders.Invalidate()
	s.notifier.Notify(notify.Notification{
		Title:       "Order status updated",
		Description: fmt.Sprintf("order %d: %s -> %s", orderID, order.Status, next),
		Severity:    notify.SeveritySuccess,
	})
	s.auditRecord(order, next, actor, endpoint, "updated")
	return nil
}

// ConfirmOrder is the quick action for the single PENDING -> CONFIRMED
// edge; it refuses any other starting status, ON_HOLD included.
func (s *OrderService) ConfirmOrder(ctx context.Context, orderID int64, actor, endpoint string) error {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !models.CanConfirm(order.Status) {
		s.auditRecord(order, models.StatusConfirmed, actor, endpoint, "rejected locally")
		return fmt.Errorf("confirm from %s: %w", order.Status, models.ErrInvalidTransition)
	}
	return s.UpdateStatus(ctx, orderID, models.StatusConfirmed, actor, endpoint)
}

// Dashboard aggregates the order and product snapshots.
func (s *OrderService) Dashboard(ctx context.Context) (dashboard.Metrics, error) {
	orders, err := s.Orders(ctx)
	if err != nil {
		return dashboard.Metrics{}, err
	}
	products, ok := s.products.Get()
	if !ok {
		if err := s.products.Refresh(ctx, s.backend); err != nil {
			return dashboard.Metrics{}, fmt.Errorf("refresh products: %w", err)
		}
		products, _ = s.products.Get()
	}
	return dashboard.Compute(orders, products), nil
}

// Invoice renders the PDF invoice for one order.
func (s *OrderService) Invoice(ctx context.Context, orderID int64) ([]byte, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return invoice.Render(order, invoice.DefaultCompany)
}

func (s *OrderService) findOrder(ctx context.Context, orderID int64) (models.Order, error) {
	orders, err := s.Orders(ctx)
	if err != nil {
		return models.Order{}, err
	}
	for _, o := range orders {
		if o.OrderID == orderID {
			return o, nil
		}
	}
	return models.Order{}, fmt.Errorf("order %d: %w", orderID, ErrOrderNotFound)
}

func (s *OrderService) acquire(orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[orderID]; busy {
		return fmt.Errorf("order %d: %w", orderID, ErrUpdateInFlight)
	}
	s.inFlight[orderID] = struct{}{}
	return nil
}

func (s *OrderService) release(orderID int64) {
	s.mu.Lock()
	delete(s.inFlight, orderID)
	s.mu.Unlock()
}

func (s *OrderService) auditRecord(order models.Order, next models.OrderStatus, actor, endpoint, outcome string) {
	if s.auditor == nil {
		return
	}
	s.auditor.Log(audit.Record{
		Timestamp: time.Now().UTC(),
		OrderID:   order.OrderID,
		OldStatus: order.Status,
		NewStatus: next,
		Actor:     actor,
		Endpoint:  endpoint,
		Outcome:   outcome,
	})
}
