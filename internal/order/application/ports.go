package application

import (
	"context"

	catalog "github.com/Mann275/marketplace/internal/catalog/domain"
	"github.com/Mann275/marketplace/internal/order/domain"
)

// EventRecord is an outbox row to be written in the same transaction as
// the mutation it describes.
type EventRecord struct {
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
}

type OrderRepository interface {
	// CreateOrders persists every order, its line items and the given
	// outbox rows, and conditionally decrements product stock for each
	// line, all in one transaction. Insufficient stock on any line
	// rolls back everything and returns ErrInsufficientStock.
	CreateOrders(ctx context.Context, orders []domain.Order, events []EventRecord) error
	AttachGatewayOrder(ctx context.Context, orderIDs []string, gatewayOrderID string) error
	Get(ctx context.Context, id string) (domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	ListBySeller(ctx context.Context, sellerID string) ([]domain.Order, error)
	ListByGatewayOrder(ctx context.Context, gatewayOrderID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	// CancelWithRestock flips the order to Cancelled and adds every line
	// item's quantity back to product stock, in one transaction.
	CancelWithRestock(ctx context.Context, o domain.Order, events []EventRecord) error
	// MarkPaid sets every order carrying the gateway order id to Placed
	// and stamps the transaction id, in one transaction.
	MarkPaid(ctx context.Context, gatewayOrderID, paymentID string, events []EventRecord) error
	// MarkPaymentFailed sets every order carrying the gateway order id
	// to Failed.
	MarkPaymentFailed(ctx context.Context, gatewayOrderID string, events []EventRecord) error
}

type ProductReader interface {
	GetMany(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

type CartClearer interface {
	Clear(ctx context.Context, userID string) error
}

// GatewayOrder is the payment provider's record authorizing a hosted
// checkout, distinct from this system's order ids.
type GatewayOrder struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount"`
	Currency    string `json:"currency"`
}

type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountCents int64, receipt string) (GatewayOrder, error)
}

type SignatureVerifier interface {
	Verify(gatewayOrderID, paymentID, signature string) bool
}

// ReplayGuard deduplicates verification callbacks for the same payment.
// Seen must not mark the key; Mark is called only after the payment
// state is committed, so a failed commit leaves the retry path open.
type ReplayGuard interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}
