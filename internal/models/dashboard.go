package models

import "github.com/shopspring/decimal"

// Dashboard defaults
const (
	LowStockThreshold  = 10
	RecentOrdersShown  = 5
	LowStockAlertShown = 3
)

// Dashboard is the admin overview derived from the shared order list and
// the cached product list
type Dashboard struct {
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalOrders      int             `json:"total_orders"`
	TotalProducts    int             `json:"total_products"`
	LowStockCount    int             `json:"low_stock_count"`
	RecentOrders     []Order         `json:"recent_orders"`
	LowStockProducts []Product       `json:"low_stock_products"`
}

// IsLowStock reports whether the product has a known stock below threshold
func (p Product) IsLowStock(threshold int) bool {
	return p.Stock != nil && *p.Stock < threshold
}

// BuildDashboard summarizes orders (most recent first) and products
func BuildDashboard(orders []Order, products []Product) Dashboard {
	d := Dashboard{
		TotalRevenue:     decimal.Zero,
		TotalOrders:      len(orders),
		TotalProducts:    len(products),
		RecentOrders:     []Order{},
		LowStockProducts: []Product{},
	}

	for _, o := range orders {
		d.TotalRevenue = d.TotalRevenue.Add(o.Total)
	}

	n := len(orders)
	if n > RecentOrdersShown {
		n = RecentOrdersShown
	}
	d.RecentOrders = append(d.RecentOrders, orders[:n]...)

	for _, p := range products {
		if !p.IsLowStock(LowStockThreshold) {
			continue
		}
		d.LowStockCount++
		if len(d.LowStockProducts) < LowStockAlertShown {
			d.LowStockProducts = append(d.LowStockProducts, p)
		}
	}

	return d
}
