package domain

import "time"

type Status string

const (
	StatusPending    Status = "Pending"
	StatusPlaced     Status = "Placed"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
	StatusFailed     Status = "Failed"
)

// transitions is the full lifecycle for seller/admin-driven updates.
// StatusFailed is absent on purpose: it is only reachable through a
// payment-verification mismatch, never by request.
var transitions = map[Status]map[Status]bool{
	StatusPending:    {StatusPlaced: true, StatusProcessing: true, StatusCancelled: true},
	StatusPlaced:     {StatusProcessing: true, StatusShipped: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
	StatusFailed:     {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) CanTransitionTo(target Status) bool {
	return transitions[s][target]
}

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CancellableByCustomer limits self-service cancellation to orders that
// have not entered fulfilment.
func (s Status) CancellableByCustomer() bool {
	return s == StatusPending || s == StatusPlaced
}

type PaymentMethod string

const (
	MethodCOD    PaymentMethod = "COD"
	MethodUPI    PaymentMethod = "UPI"
	MethodOnline PaymentMethod = "Online"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodCOD || m == MethodUPI || m == MethodOnline
}

// Immediate reports whether the method settles out-of-band, finalizing
// the order without a gateway round-trip.
func (m PaymentMethod) Immediate() bool {
	return m == MethodCOD || m == MethodUPI
}

// Address is a point-in-time shipping snapshot, not a live reference.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Phone      string `json:"phone"`
}

// OrderItem freezes the unit price at order-creation time; later catalog
// price changes never touch historical orders.
type OrderItem struct {
	ProductID      string `json:"productId"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	SellerID       string `json:"sellerId"`
}

// Order groups the line items of exactly one seller from one checkout.
type Order struct {
	ID              string
	CustomerID      string
	SellerID        string
	Items           []OrderItem
	TotalCents      int64
	PaymentMethod   PaymentMethod
	Status          Status
	TransactionID   string
	GatewayOrderID  string
	ShippingAddress Address
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewOrder(id, customerID, sellerID string, items []OrderItem, method PaymentMethod, addr Address) Order {
	var total int64
	for _, item := range items {
		total += int64(item.Quantity) * item.UnitPriceCents
	}
	now := time.Now().UTC()
	return Order{
		ID:              id,
		CustomerID:      customerID,
		SellerID:        sellerID,
		Items:           items,
		TotalCents:      total,
		PaymentMethod:   method,
		Status:          StatusPending,
		ShippingAddress: addr,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ContainsSeller reports whether any line item belongs to the seller.
func (o Order) ContainsSeller(sellerID string) bool {
	if o.SellerID == sellerID {
		return true
	}
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}
