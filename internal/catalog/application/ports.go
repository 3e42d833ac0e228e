package application

import (
	"context"

	"github.com/Mann275/marketplace/internal/catalog/domain"
)

type ProductRepository interface {
	Get(ctx context.Context, id string) (domain.Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error)
	ListActive(ctx context.Context, limit, offset int) ([]domain.Product, error)
}
