package domain

type OrderCreated struct {
	OrderID    string      `json:"orderId"`
	CustomerID string      `json:"customerId"`
	SellerID   string      `json:"sellerId"`
	TotalCents int64       `json:"totalCents"`
	Items      []OrderItem `json:"items"`
}

type OrderCancelled struct {
	OrderID    string      `json:"orderId"`
	CustomerID string      `json:"customerId"`
	Restocked  []OrderItem `json:"restocked"`
}

type PaymentCaptured struct {
	OrderID        string `json:"orderId"`
	GatewayOrderID string `json:"gatewayOrderId"`
	PaymentID      string `json:"paymentId"`
}

type PaymentFailed struct {
	OrderID        string `json:"orderId"`
	GatewayOrderID string `json:"gatewayOrderId"`
	Reason         string `json:"reason"`
}
