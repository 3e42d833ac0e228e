package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Mann275/marketplace/internal/order/domain"
	"github.com/Mann275/marketplace/pkg/tracing"
)

const aggregateOrder = "order"

var eventHeaders = map[string]string{"source": "marketplace-api"}

// Actor is the authenticated caller as seen by the order service.
type Actor struct {
	UserID string
	Admin  bool
}

type Service struct {
	log      *slog.Logger
	repo     OrderRepository
	products ProductReader
	carts    CartClearer
	gateway  PaymentGateway
	verifier SignatureVerifier
	replay   ReplayGuard
	newID    func() string
}

func NewService(log *slog.Logger, repo OrderRepository, products ProductReader, carts CartClearer,
	gateway PaymentGateway, verifier SignatureVerifier, replay ReplayGuard) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		products: products,
		carts:    carts,
		gateway:  gateway,
		verifier: verifier,
		replay:   replay,
		newID:    uuid.NewString,
	}
}

type CheckoutCommand struct {
	CustomerID string
	Address    domain.Address
	Method     domain.PaymentMethod
	Items      []CheckoutItem
	TotalCents int64
}

type CheckoutResult struct {
	Orders  []domain.Order
	Gateway *GatewayOrder
}

// Checkout splits a multi-seller cart into one Pending order per
// seller, decrementing stock atomically with order creation. Immediate
// methods (COD/UPI) clear the cart; Online checkouts get a gateway
// order and stay open until VerifyPayment.
func (s *Service) Checkout(ctx context.Context, cmd CheckoutCommand) (CheckoutResult, error) {
	if len(cmd.Items) == 0 {
		return CheckoutResult{}, ErrCartEmpty
	}
	if !cmd.Method.Valid() {
		return CheckoutResult{}, fmt.Errorf("%w: %q", ErrInvalidMethod, cmd.Method)
	}

	products, err := s.products.GetMany(ctx, productIDs(cmd.Items))
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("load products: %w", err)
	}
	lines, err := resolveLines(cmd.Items, products)
	if err != nil {
		return CheckoutResult{}, err
	}

	traceparent := tracing.Traceparent(ctx)
	groups := groupBySeller(lines)
	orders := make([]domain.Order, 0, len(groups))
	events := make([]EventRecord, 0, len(groups))
	var combined int64
	for _, group := range groups {
		o := domain.NewOrder(s.newID(), cmd.CustomerID, group.SellerID, group.Items, cmd.Method, cmd.Address)
		combined += o.TotalCents
		orders = append(orders, o)
		events = append(events, s.event(o.ID, "OrderCreated", domain.OrderCreated{
			OrderID:    o.ID,
			CustomerID: o.CustomerID,
			SellerID:   o.SellerID,
			TotalCents: o.TotalCents,
			Items:      o.Items,
		}, traceparent))
	}

	if cmd.TotalCents > 0 && cmd.TotalCents != combined {
		s.log.Warn("client total disagrees with server total",
			"customer_id", cmd.CustomerID, "client", cmd.TotalCents, "server", combined)
	}

	if err := s.repo.CreateOrders(ctx, orders, events); err != nil {
		return CheckoutResult{}, err
	}

	if cmd.Method.Immediate() {
		if err := s.carts.Clear(ctx, cmd.CustomerID); err != nil {
			// Orders are committed; a stale cart is recoverable.
			s.log.Error("cart clear failed", "customer_id", cmd.CustomerID, "err", err)
		}
		return CheckoutResult{Orders: orders}, nil
	}

	gw, err := s.gateway.CreateOrder(ctx, combined, "rcpt_"+orders[0].ID)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("create gateway order: %w", err)
	}
	ids := orderIDs(orders)
	if err := s.repo.AttachGatewayOrder(ctx, ids, gw.ID); err != nil {
		return CheckoutResult{}, fmt.Errorf("attach gateway order: %w", err)
	}
	for i := range orders {
		orders[i].GatewayOrderID = gw.ID
	}
	return CheckoutResult{Orders: orders, Gateway: &gw}, nil
}

type VerifyCommand struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

// VerifyPayment checks the gateway's HMAC signature. On a match every
// order carrying the gateway order id becomes Placed and the customer's
// cart is cleared; on a mismatch they become Failed.
func (s *Service) VerifyPayment(ctx context.Context, cmd VerifyCommand) ([]domain.Order, error) {
	traceparent := tracing.Traceparent(ctx)

	orders, err := s.repo.ListByGatewayOrder(ctx, cmd.GatewayOrderID)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}

	if !s.verifier.Verify(cmd.GatewayOrderID, cmd.PaymentID, cmd.Signature) {
		events := make([]EventRecord, 0, len(orders))
		for _, o := range orders {
			events = append(events, s.event(o.ID, "PaymentFailed", domain.PaymentFailed{
				OrderID:        o.ID,
				GatewayOrderID: cmd.GatewayOrderID,
				Reason:         "signature mismatch",
			}, traceparent))
		}
		if err := s.repo.MarkPaymentFailed(ctx, cmd.GatewayOrderID, events); err != nil {
			s.log.Error("mark payment failed errored", "gateway_order_id", cmd.GatewayOrderID, "err", err)
		}
		return nil, ErrSignatureMismatch
	}

	seen, err := s.replay.Seen(ctx, cmd.PaymentID)
	if err != nil {
		s.log.Error("replay guard unavailable", "err", err)
	} else if seen {
		// Re-running the success path would only re-set the same
		// fields; skip the writes and the duplicate cart delete.
		return orders, nil
	}

	events := make([]EventRecord, 0, len(orders))
	for _, o := range orders {
		events = append(events, s.event(o.ID, "PaymentCaptured", domain.PaymentCaptured{
			OrderID:        o.ID,
			GatewayOrderID: cmd.GatewayOrderID,
			PaymentID:      cmd.PaymentID,
		}, traceparent))
	}
	if err := s.repo.MarkPaid(ctx, cmd.GatewayOrderID, cmd.PaymentID, events); err != nil {
		return nil, fmt.Errorf("mark paid: %w", err)
	}
	// Mark only after the commit: a transient MarkPaid failure must not
	// make the gateway's retry of the same callback a no-op.
	if err := s.replay.Mark(ctx, cmd.PaymentID); err != nil {
		s.log.Error("replay guard mark failed", "payment_id", cmd.PaymentID, "err", err)
	}
	if err := s.carts.Clear(ctx, orders[0].CustomerID); err != nil {
		s.log.Error("cart clear failed", "customer_id", orders[0].CustomerID, "err", err)
	}
	for i := range orders {
		orders[i].Status = domain.StatusPlaced
		orders[i].TransactionID = cmd.PaymentID
	}
	return orders, nil
}

// UpdateStatus applies a seller/admin-driven transition. Cancellation
// restocks every line item in the same transaction.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, orderID string, target domain.Status) (domain.Order, error) {
	if !target.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !actor.Admin && !o.ContainsSeller(actor.UserID) {
		return domain.Order{}, ErrForbidden
	}
	if !o.Status.CanTransitionTo(target) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
	}

	if target == domain.StatusCancelled {
		if err := s.cancel(ctx, o); err != nil {
			return domain.Order{}, err
		}
	} else if err := s.repo.UpdateStatus(ctx, o.ID, target); err != nil {
		return domain.Order{}, err
	}
	o.Status = target
	return o, nil
}

// CancelOwn lets a customer cancel their own order while it is still
// Pending or Placed.
func (s *Service) CancelOwn(ctx context.Context, actor Actor, orderID string) (domain.Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.CustomerID != actor.UserID {
		return domain.Order{}, ErrForbidden
	}
	if !o.Status.CancellableByCustomer() {
		return domain.Order{}, fmt.Errorf("%w: status is %s", ErrNotCancellable, o.Status)
	}
	if err := s.cancel(ctx, o); err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.StatusCancelled
	return o, nil
}

func (s *Service) cancel(ctx context.Context, o domain.Order) error {
	event := s.event(o.ID, "OrderCancelled", domain.OrderCancelled{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Restocked:  o.Items,
	}, tracing.Traceparent(ctx))
	return s.repo.CancelWithRestock(ctx, o, []EventRecord{event})
}

func (s *Service) Get(ctx context.Context, actor Actor, orderID string) (domain.Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !actor.Admin && o.CustomerID != actor.UserID && !o.ContainsSeller(actor.UserID) {
		return domain.Order{}, ErrForbidden
	}
	return o, nil
}

func (s *Service) MyOrders(ctx context.Context, customerID string) ([]domain.Order, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

func (s *Service) SellerOrders(ctx context.Context, sellerID string) ([]domain.Order, error) {
	return s.repo.ListBySeller(ctx, sellerID)
}

func (s *Service) event(orderID, eventType string, payload any, traceparent string) EventRecord {
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("marshal event failed", "type", eventType, "err", err)
	}
	return EventRecord{
		AggregateType: aggregateOrder,
		AggregateID:   orderID,
		Type:          eventType,
		Payload:       body,
		Headers:       eventHeaders,
		Traceparent:   traceparent,
	}
}

func productIDs(items []CheckoutItem) []string {
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}

func orderIDs(orders []domain.Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}
