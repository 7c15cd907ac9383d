package window

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Key identifies a cached curve.
type Key struct {
	Shape  Shape
	Length int
}

// Cache memoizes window curves by (shape, length). It is safe for concurrent
// use. Curves used on the audio goroutine should be prewarmed first so that
// rendering never pays for generation.
type Cache struct {
	mu     sync.RWMutex
	curves map[Key]Curve
}

func NewCache() *Cache {
	return &Cache{curves: make(map[Key]Curve)}
}

// GetOrCreate returns the cached curve for (shape, length), generating it on
// first use.
func (c *Cache) GetOrCreate(shape Shape, length int) (Curve, error) {
	key := Key{Shape: shape, Length: length}
	c.mu.RLock()
	curve, ok := c.curves[key]
	c.mu.RUnlock()
	if ok {
		return curve, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if curve, ok := c.curves[key]; ok {
		return curve, nil
	}
	curve, err := Generate(shape, length)
	if err != nil {
		return Curve{}, err
	}
	c.curves[key] = curve
	return curve, nil
}

// Lookup returns a curve only if it is already cached. It never generates.
func (c *Cache) Lookup(shape Shape, length int) (Curve, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	curve, ok := c.curves[Key{Shape: shape, Length: length}]
	return curve, ok
}

// Prewarm generates and caches a curve ahead of real-time use.
func (c *Cache) Prewarm(shape Shape, length int) error {
	_, err := c.GetOrCreate(shape, length)
	return err
}

// PrewarmAll generates every key concurrently. It stops at the first invalid
// key or when ctx is cancelled.
func (c *Cache) PrewarmAll(ctx context.Context, keys ...Key) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return c.Prewarm(key.Shape, key.Length)
		})
	}
	return g.Wait()
}

// Len returns the number of cached curves.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.curves)
}
