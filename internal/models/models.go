package models

import (
	"errors"
	"time"
)

type OrderStatus string

const (
	StatusPending         OrderStatus = "PENDING"
	StatusOnHold          OrderStatus = "ON_HOLD"
	StatusConfirmed       OrderStatus = "CONFIRMED"
	StatusProcessing      OrderStatus = "PROCESSING"
	StatusShipped         OrderStatus = "SHIPPED"
	StatusDelivered       OrderStatus = "DELIVERED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusReturnRequested OrderStatus = "RETURN_REQUESTED"
	StatusReturned        OrderStatus = "RETURNED"
	StatusRefunded        OrderStatus = "REFUNDED"
	StatusFailed          OrderStatus = "FAILED"
)

var ErrInvalidTransition = errors.New("invalid order status transition")

// transitions is the whitelist of legal forward progressions. Terminal
// statuses map to an empty set; adding a status is a one-line change here.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:         {StatusConfirmed, StatusCancelled, StatusOnHold},
	StatusOnHold:          {StatusConfirmed, StatusCancelled},
	StatusConfirmed:       {StatusProcessing, StatusShipped, StatusCancelled},
	StatusProcessing:      {StatusShipped, StatusCancelled},
	StatusShipped:         {StatusDelivered},
	StatusDelivered:       {StatusReturnRequested},
	StatusReturnRequested: {StatusReturned},
	StatusReturned:        {StatusRefunded},
	StatusCancelled:       {},
	StatusFailed:          {},
	StatusRefunded:        {},
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	allowed, ok := transitions[s]
	return ok && len(allowed) == 0
}

// AllowedNext returns the statuses a human operator may select from s.
func (s OrderStatus) AllowedNext() []OrderStatus {
	allowed, ok := transitions[s]
	if !ok {
		return []OrderStatus{}
	}
	next := make([]OrderStatus, len(allowed))
	copy(next, allowed)
	return next
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, a := range transitions[s] {
		if a == target {
			return true
		}
	}
	return false
}

// AllStatuses lists every valid status, in lifecycle order.
func AllStatuses() []OrderStatus {
	return []OrderStatus{
		StatusPending, StatusOnHold, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled,
		StatusReturnRequested, StatusReturned, StatusRefunded, StatusFailed,
	}
}

type StatusChoice struct {
	Status  OrderStatus `json:"order_status"`
	Enabled bool        `json:"enabled"`
}

// StatusChoices builds the selection set for the status dropdown:
// every status except the current one, enabled only when reachable.
func StatusChoices(current OrderStatus) []StatusChoice {
	var choices []StatusChoice
	for _, s := range AllStatuses() {
		if s == current {
			continue
		}
		choices = append(choices, StatusChoice{
			Status:  s,
			Enabled: current.CanTransitionTo(s),
		})
	}
	return choices
}

// CanConfirm gates the "Confirm Order" quick action, a dedicated button
// for the single PENDING -> CONFIRMED edge.
func CanConfirm(current OrderStatus) bool {
	return current == StatusPending
}

type DeliveryOption string

const (
	DeliveryInsideDhaka  DeliveryOption = "INSIDE_DHAKA"
	DeliveryOutsideDhaka DeliveryOption = "OUTSIDE_DHAKA"
)

// Fee is the flat delivery charge in BDT used on invoices.
func (d DeliveryOption) Fee() float64 {
	if d == DeliveryInsideDhaka {
		return 60
	}
	return 120
}

type OrderItem struct {
	InventoryID  int64   `json:"inventory_id"`
	ProductName  string  `json:"product_name"`
	SKU          string  `json:"sku"`
	ColorName    string  `json:"color_name,omitempty"`
	SellingPrice float64 `json:"selling_price"`
	Quantity     int     `json:"quantity"`
	TotalPrice   float64 `json:"total_price"`
}

type Order struct {
	OrderID        int64          `json:"order_id"`
	Status         OrderStatus    `json:"order_status"`
	OrderDate      time.Time      `json:"order_date"`
	PayableAmount  float64        `json:"payable_amount"`
	Items          []OrderItem    `json:"order_items"`
	Name           string         `json:"name"`
	PhoneNumber    string         `json:"phone_number"`
	Email          string         `json:"email"`
	Address        string         `json:"address,omitempty"`
	DeliveryOption DeliveryOption `json:"delivery_options"`
}

type Product struct {
	ProductID      int64  `json:"product_id"`
	ProductName    string `json:"product_name"`
	InventoryCount int    `json:"inventory_count"`
}
