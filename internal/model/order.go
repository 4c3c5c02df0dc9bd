package model

import "time"

// OrderStatus is the closed set of fulfilment states the admin screens
// can select. The client does not validate server responses against it.
type OrderStatus string

const (
	OrderProcessing OrderStatus = "Processing"
	OrderOnTheWay   OrderStatus = "On the Way"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCompleted  OrderStatus = "Completed"
	OrderCancelled  OrderStatus = "Cancelled"
)

// Ongoing reports whether the order still needs fulfilment. The my-orders
// screen splits its two sections on this.
func (s OrderStatus) Ongoing() bool {
	return s == OrderProcessing || s == OrderOnTheWay
}

// OrderStatuses lists the selectable fulfilment states in display order.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{OrderProcessing, OrderOnTheWay, OrderDelivered, OrderCompleted, OrderCancelled}
}

// PaymentStatus is the closed set of payment states.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

// PaymentStatuses lists the selectable payment states in display order.
func PaymentStatuses() []PaymentStatus {
	return []PaymentStatus{PaymentPending, PaymentPaid, PaymentFailed}
}

// PaymentMethod tags how an order is paid.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentKhalti PaymentMethod = "Khalti"
)

// DeliveryInfo is the address block collected at checkout.
type DeliveryInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// OrderItem is one purchased line inside an order, denormalized by the
// server with the product's name, price and image at purchase time.
type OrderItem struct {
	ProductID string  `json:"product"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size,omitempty"`
}

// Order is append-only from the client's perspective: placed once, then
// only its status fields move.
type Order struct {
	ID            string        `json:"_id"`
	Items         []OrderItem   `json:"items"`
	DeliveryInfo  DeliveryInfo  `json:"deliveryInfo"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	OrderStatus   OrderStatus   `json:"orderStatus"`
	TotalPrice    float64       `json:"totalPrice"`
	CreatedAt     time.Time     `json:"createdAt"`
}
