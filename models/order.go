package models

// Order is one upstream order header. Line items are only present when the
// listing was asked to embed them.
type Order struct {
	OrderID       string      `json:"order_id"`
	OrderDate     string      `json:"order_date"`
	PaymentAmount string      `json:"payment_amount"`
	OrderStatus   string      `json:"order_status"`
	BuyerName     string      `json:"buyer_name"`
	Items         []OrderItem `json:"items,omitempty"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	OrderItemCode string `json:"order_item_code"`
	ProductNo     int    `json:"product_no"`
	ProductName   string `json:"product_name"`
	Quantity      int    `json:"quantity"`
	ProductPrice  string `json:"product_price"`
	StatusCode    string `json:"order_status"`
}

// DateRange bounds an order listing; both ends are YYYY-MM-DD and inclusive.
type DateRange struct {
	Start string
	End   string
}

// Customer is one shop member record.
type Customer struct {
	MemberID    string `json:"member_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	GroupNo     int    `json:"group_no"`
	CreatedDate string `json:"created_date"`
}
