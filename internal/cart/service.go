package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vietcart/storefront/internal/domain"
)

// Service is the single writer of cart state. All mutations go through its
// enumerated entry points; reads get derived totals from the returned cart.
type Service struct {
	repo  CartRepository
	cache CartCache
	sfg   singleflight.Group // Prevents cache stampede
}

func NewService(repo CartRepository, cache CartCache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// GetCart returns the user's cart. A user without a stored cart gets an empty
// cart, never an error.
func (s *Service) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(fmt.Sprint(userID), func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errors.Is(errGet, ErrCartNotFound) {
			now := time.Now()
			return &domain.Cart{
				UserID:    userID,
				Items:     nil,
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), userID, cart)
			if errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem merges the item into the user's cart and persists the result.
func (s *Service) AddItem(ctx context.Context, userID int64, item domain.CartItem) (*domain.Cart, error) {
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}
	return s.mutate(ctx, userID, func(c *domain.Cart) {
		c.AddItem(item)
	})
}

// UpdateQuantity sets the line quantity to exactly quantity; zero or less
// removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(c *domain.Cart) {
		c.SetQuantity(productID, quantity)
	})
}

// RemoveItem deletes the line for productID; removing an absent product leaves
// the cart unchanged.
func (s *Service) RemoveItem(ctx context.Context, userID, productID int64) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(c *domain.Cart) {
		c.RemoveItem(productID)
	})
}

// ClearCart drops the stored cart. Called after logout and after a confirmed
// order placement; deleting an absent cart is not an error.
func (s *Service) ClearCart(ctx context.Context, userID int64) error {
	errDelete := s.repo.DeleteCart(ctx, userID)
	if errDelete != nil && !errors.Is(errDelete, ErrCartNotFound) {
		log.Printf("repo delete cart error: %v", errDelete)
		return errDelete
	}

	s.invalidateCache(userID)
	return nil
}

func (s *Service) mutate(ctx context.Context, userID int64, apply func(*domain.Cart)) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		now := time.Now()
		cart = &domain.Cart{UserID: userID, CreatedAt: now, UpdatedAt: now}
	} else if err != nil {
		return nil, err
	}

	apply(cart)

	if errUpsert := s.repo.UpsertCart(ctx, cart); errUpsert != nil {
		log.Printf("repo upsert cart error: %v", errUpsert)
		return nil, errUpsert
	}

	s.invalidateCache(userID)
	return cart, nil
}

func (s *Service) invalidateCache(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	errInvalidate := s.cache.Delete(ctx, userID)
	if errInvalidate != nil {
		log.Printf("cache invalidate error: %v", errInvalidate)
	}
}
