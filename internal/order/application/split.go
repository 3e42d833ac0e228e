package application

import (
	"fmt"
	"sort"

	catalog "github.com/Mann275/marketplace/internal/catalog/domain"
	"github.com/Mann275/marketplace/internal/order/domain"
)

// CheckoutItem is one cart line as submitted by the client. PriceCents
// and SellerID are hints; the catalog is authoritative for both when
// they are absent.
type CheckoutItem struct {
	ProductID  string
	Quantity   int
	PriceCents int64
	SellerID   string
}

// SellerGroup is the slice of a checkout owned by one seller.
type SellerGroup struct {
	SellerID string
	Items    []domain.OrderItem
}

// resolveLines validates every cart line against the live catalog and
// resolves its seller and unit price. Lines naming the same product are
// merged first, so each product appears at most once per checkout and
// the stock check sees the combined quantity. All-or-nothing: the first
// bad line fails the whole checkout and nothing is mutated.
func resolveLines(items []CheckoutItem, products map[string]catalog.Product) ([]domain.OrderItem, error) {
	merged, err := mergeLines(items)
	if err != nil {
		return nil, err
	}
	lines := make([]domain.OrderItem, 0, len(merged))
	for _, item := range merged {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		if !product.Active {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, product.Name)
		}
		if item.Quantity > product.Quantity {
			return nil, fmt.Errorf("%w: %s has only %d left", ErrInsufficientStock, product.Name, product.Quantity)
		}
		sellerID := item.SellerID
		if sellerID == "" {
			sellerID = product.SellerID
		}
		if sellerID == "" {
			return nil, fmt.Errorf("%w: product %s", ErrSellerUnresolved, item.ProductID)
		}
		lines = append(lines, domain.OrderItem{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: unitPrice(item, product),
			SellerID:       sellerID,
		})
	}
	return lines, nil
}

// mergeLines folds duplicate product lines into one, summing their
// quantities; price and seller hints from the first occurrence win.
// Quantities are checked per submitted line, before summing could mask
// a non-positive one.
func mergeLines(items []CheckoutItem) ([]CheckoutItem, error) {
	idx := make(map[string]int, len(items))
	merged := make([]CheckoutItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, item.ProductID)
		}
		if i, ok := idx[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		idx[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

// unitPrice picks the authoritative unit price: explicit client price,
// then catalog price, then discounted final price, then zero.
func unitPrice(item CheckoutItem, product catalog.Product) int64 {
	if item.PriceCents > 0 {
		return item.PriceCents
	}
	if product.PriceCents > 0 {
		return product.PriceCents
	}
	if fp := product.FinalPriceCents(); fp > 0 {
		return fp
	}
	return 0
}

// groupBySeller partitions resolved lines into disjoint per-seller
// groups, ordered by seller id for determinism.
func groupBySeller(lines []domain.OrderItem) []SellerGroup {
	bySeller := make(map[string][]domain.OrderItem)
	for _, line := range lines {
		bySeller[line.SellerID] = append(bySeller[line.SellerID], line)
	}

	sellers := make([]string, 0, len(bySeller))
	for id := range bySeller {
		sellers = append(sellers, id)
	}
	sort.Strings(sellers)

	groups := make([]SellerGroup, 0, len(sellers))
	for _, id := range sellers {
		groups = append(groups, SellerGroup{SellerID: id, Items: bySeller[id]})
	}
	return groups
}
