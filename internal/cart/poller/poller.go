package poller

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/segmentio/kafka-go"

	c "github.com/vietcart/storefront/internal/cart"
)

// Poller consumes order-created events and drops the originating cart. The
// submit path clears the cart synchronously on this instance; the consumer
// converges carts held by other instances and carts whose gateway redirect
// never returned here.
type Poller struct {
	repo   c.CartRepository
	cache  c.CartCache
	reader *kafka.Reader
}

func NewPoller(repo c.CartRepository, cache c.CartCache, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "order-created",
		GroupID:  "storefront-cart-clear",
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{repo, cache, reader}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.processMessage(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		log.Printf("error closing kafka reader: %v", err)
	}
}

func (p *Poller) processMessage(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading message: %v", err)
		return
	}

	var payload struct {
		UserID int64 `json:"user_id"`
	}
	if errUnmarshal := json.Unmarshal(m.Value, &payload); errUnmarshal != nil {
		log.Printf("error parsing message: %v", errUnmarshal)
		return
	}
	if payload.UserID == 0 {
		log.Println("missing or invalid user_id")
		return
	}

	errDelete := p.repo.DeleteCart(ctx, payload.UserID)
	if errDelete != nil && !errors.Is(errDelete, c.ErrCartNotFound) {
		log.Printf("failed to delete cart: %v", errDelete)
	}

	if errCacheDelete := p.cache.Delete(ctx, payload.UserID); errCacheDelete != nil {
		log.Printf("failed to delete cache: %v", errCacheDelete)
	}
}
