package dashboard

import "toyadmin/internal/models"

// Metrics are the aggregate figures on the admin dashboard. Sales and
// sold-item counts consider delivered orders only.
type Metrics struct {
	TotalSales      float64 `json:"total_sales"`
	TotalSoldItems  int     `json:"total_sold_items"`
	DeliveredOrders int     `json:"delivered_orders"`
	TotalOrders     int     `json:"total_orders"`
	TotalProducts   int     `json:"total_products"`
	InStock         int     `json:"in_stock"`
	OutOfStock      int     `json:"out_of_stock"`
}

func Compute(orders []models.Order, products []models.Product) Metrics {
	m := Metrics{
		TotalOrders:   len(orders),
		TotalProducts: len(products),
	}
	for _, o := range orders {
		if o.Status != models.StatusDelivered {
			continue
		}
		m.DeliveredOrders++
		m.TotalSales += o.PayableAmount
		for _, item := range o.Items {
			m.TotalSoldItems += item.Quantity
		}
	}
	for _, p := range products {
		if p.InventoryCount > 0 {
			m.InStock++
		} else {
			m.OutOfStock++
		}
	}
	return m
}
