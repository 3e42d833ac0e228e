package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Mann275/marketplace/internal/cart/domain"
)

type Service struct {
	log   *slog.Logger
	repo  CartRepository
	cache CartCache
	sfg   singleflight.Group // collapses concurrent cache misses per user
}

func NewService(log *slog.Logger, repo CartRepository, cache CartCache) *Service {
	return &Service{log: log, repo: repo, cache: cache}
}

// Get returns the customer's cart, reading through the cache. A missing
// cart is an empty cart, not an error.
func (s *Service) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (any, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.log.Warn("cart cache get failed", "user_id", userID, "err", err)
		}

		cart, err = s.repo.GetCart(ctx, userID)
		if errors.Is(err, ErrCartNotFound) {
			now := time.Now().UTC()
			return &domain.Cart{UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load cart: %w", err)
		}

		go func() {
			if err := s.cache.Set(context.Background(), userID, cart); err != nil {
				s.log.Warn("cart cache set failed", "user_id", userID, "err", err)
			}
		}()
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

func (s *Service) AddItem(ctx context.Context, userID string, productID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	item := domain.CartItem{ProductID: productID, Quantity: quantity, AddedAt: time.Now().UTC()}
	if err := s.repo.AddItem(ctx, userID, item); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if err := s.repo.UpdateItemQuantity(ctx, userID, productID, quantity); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) error {
	if err := s.repo.RemoveItem(ctx, userID, productID); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

// Clear deletes the cart outright. Called directly and by the order
// service after a successful checkout; a missing cart is fine there.
func (s *Service) Clear(ctx context.Context, userID string) error {
	err := s.repo.DeleteCart(ctx, userID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		return err
	}
	s.invalidate(userID)
	return nil
}

func (s *Service) invalidate(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.Warn("cart cache invalidate failed", "user_id", userID, "err", err)
	}
}
