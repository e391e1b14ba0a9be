package domain

import (
	"encoding/json"
	"time"
)

// Order status values.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// OrderItem is a point-in-time copy of a cart line taken at order creation.
// Later cart mutation never reaches an order.
type OrderItem struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Spec      string `json:"spec"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// Order is a purchase record. Everything except Status and PaymentTime is
// frozen at creation: OrderAmount is the snapshot total and is never
// recomputed, and the receiver fields snapshot the chosen address.
type Order struct {
	OrderNumber     string      `json:"orderNumber"`
	UserID          string      `json:"userId"`
	OrderTime       time.Time   `json:"orderTime"`
	PaymentTime     time.Time   `json:"paymentTime,omitzero"`
	OrderAmount     int64       `json:"orderAmount"`
	PaymentMethod   string      `json:"paymentMethod"`
	Status          string      `json:"status"`
	ReceiverName    string      `json:"receiverName"`
	ReceiverPhone   string      `json:"receiverPhone"`
	ReceiverAddress string      `json:"receiverAddress"`
	Remark          string      `json:"remark,omitempty"`
	Items           []OrderItem `json:"orderItems"`
}

// orderWire tolerates the backend's older `items` spelling next to
// `orderItems`, resolved here at the boundary.
type orderWire struct {
	OrderNumber     string      `json:"orderNumber"`
	UserID          string      `json:"userId"`
	OrderTime       time.Time   `json:"orderTime"`
	PaymentTime     time.Time   `json:"paymentTime"`
	OrderAmount     int64       `json:"orderAmount"`
	PaymentMethod   string      `json:"paymentMethod"`
	Status          string      `json:"status"`
	ReceiverName    string      `json:"receiverName"`
	ReceiverPhone   string      `json:"receiverPhone"`
	ReceiverAddress string      `json:"receiverAddress"`
	Remark          string      `json:"remark"`
	OrderItems      []OrderItem `json:"orderItems"`
	Items           []OrderItem `json:"items"`
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var w orderWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*o = Order{
		OrderNumber:     w.OrderNumber,
		UserID:          w.UserID,
		OrderTime:       w.OrderTime,
		PaymentTime:     w.PaymentTime,
		OrderAmount:     w.OrderAmount,
		PaymentMethod:   w.PaymentMethod,
		Status:          w.Status,
		ReceiverName:    w.ReceiverName,
		ReceiverPhone:   w.ReceiverPhone,
		ReceiverAddress: w.ReceiverAddress,
		Remark:          w.Remark,
		Items:           w.OrderItems,
	}
	if o.Items == nil {
		o.Items = w.Items
	}
	return nil
}

// Subtotal returns the summed price*quantity over the order items.
func (o *Order) Subtotal() int64 {
	var total int64
	for _, it := range o.Items {
		total += it.Price * int64(it.Quantity)
	}
	return total
}

// AllowedTransitions is the order status transition table. Only pending→paid
// is driven by this service; shipped, delivered, and cancelled arrive from the
// backend and are merely reflected.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
		OrderStatusPaid:      {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:   {OrderStatusDelivered},
		OrderStatusDelivered: {},
		OrderStatusCancelled: {},
	}
}

// CanTransitionTo reports whether the order may move to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// SnapshotItems copies the given cart lines into order items. The result
// shares no memory with the cart.
func SnapshotItems(lines CartLines) []OrderItem {
	items := make([]OrderItem, len(lines))
	for i, l := range lines {
		items[i] = OrderItem{
			ID:        l.ID,
			ProductID: l.ProductID,
			Name:      l.Name,
			Spec:      l.Spec,
			Price:     l.Price,
			Quantity:  l.Quantity,
			ImageURL:  l.ImageURL,
		}
	}
	return items
}
