package common

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"mazza/src/lib"

	"github.com/google/uuid"
)

const orderCounterTTL = 48 * time.Hour

// OrderNumberAllocator hands out per-day sequential order numbers (#00001)
// from a shared counter.
type OrderNumberAllocator struct {
	cache lib.Cache
	now   func() time.Time
}

func NewOrderNumberAllocator(cache lib.Cache, now func() time.Time) *OrderNumberAllocator {
	if now == nil {
		now = time.Now
	}
	return &OrderNumberAllocator{cache: cache, now: now}
}

func orderCounterKey(day time.Time) string {
	return fmt.Sprintf("order_counter:%s", day.UTC().Format("20060102"))
}

func (a *OrderNumberAllocator) Next(ctx context.Context) string {
	key := orderCounterKey(a.now())
	n, err := a.cache.Increment(ctx, key)
	if err != nil {
		log.Printf("[Orders] counter unavailable, using random order number: %s\n", err.Error())
		return WithSuffix(fmt.Sprintf("#%05d", a.now().UnixMilli()%100000))
	}
	if err := a.cache.Expire(ctx, key, orderCounterTTL); err != nil {
		log.Printf("[Orders] error setting expiry on %s: %s\n", key, err.Error())
	}
	return fmt.Sprintf("#%05d", n)
}

// WithSuffix disambiguates an order number that collided with an existing row.
func WithSuffix(orderNumber string) string {
	if i := strings.LastIndex(orderNumber, "-"); i > 0 {
		orderNumber = orderNumber[:i]
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return orderNumber + "-" + suffix
}
