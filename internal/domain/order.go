package domain

import "time"

// ============================================================
// Orders
// ============================================================

// OrderItem is a single line of an order.
type OrderItem struct {
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// OrderDetails is the order snapshot the decision engines work against.
// ProblemFlag is set upstream when the courier or restaurant already
// reported a problem with the order; it short-circuits verification.
type OrderDetails struct {
	ID                    string      `json:"id"`
	RestaurantID          string      `json:"restaurant_id"`
	RestaurantName        string      `json:"restaurant_name"`
	Items                 []OrderItem `json:"items"`
	TotalAmount           float64     `json:"total_amount"`
	DeliveryFee           float64     `json:"delivery_fee"`
	OrderedAt             time.Time   `json:"ordered_at"`
	EstimatedDeliveryTime time.Time   `json:"estimated_delivery_time"`
	DeliveredAt           *time.Time  `json:"delivered_at,omitempty"`
	RestaurantCloseTime   time.Time   `json:"restaurant_close_time"`
	ProblemFlag           bool        `json:"problem_flag"`
	Refunded              bool        `json:"refunded"`
}

// Delivered reports whether the order has been delivered.
func (o *OrderDetails) Delivered() bool {
	return o.DeliveredAt != nil
}

// LatenessMinutes returns how many minutes after the estimate the order
// arrived. Negative means early; zero when not yet delivered.
func (o *OrderDetails) LatenessMinutes() float64 {
	if o.DeliveredAt == nil {
		return 0
	}
	return o.DeliveredAt.Sub(o.EstimatedDeliveryTime).Minutes()
}
