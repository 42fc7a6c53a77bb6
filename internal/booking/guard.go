package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard enforces at-most-one successful booking per (session, slot start)
// under resubmission. Acquire is first-writer-wins; Release frees the key
// when a booking attempt fails so the user can retry the same slot.
type Guard interface {
	Acquire(ctx context.Context, sessionID string, start time.Time) (bool, error)
	Release(ctx context.Context, sessionID string, start time.Time) error
}

const guardTTL = 24 * time.Hour

// RedisGuard backs the guard with SET NX, so multiple server replicas
// share one view of in-flight bookings.
type RedisGuard struct {
	client *redis.Client
}

// NewRedisGuard creates a redis-backed guard.
func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

func guardKey(sessionID string, start time.Time) string {
	return fmt.Sprintf("booking:guard:%s:%d", sessionID, start.Unix())
}

// Acquire returns true when this caller is first for the (session, slot) pair.
func (g *RedisGuard) Acquire(ctx context.Context, sessionID string, start time.Time) (bool, error) {
	ok, err := g.client.SetNX(ctx, guardKey(sessionID, start), "1", guardTTL).Result()
	if err != nil {
		return false, fmt.Errorf("booking: guard acquire: %w", err)
	}
	return ok, nil
}

// Release drops the key after a failed attempt.
func (g *RedisGuard) Release(ctx context.Context, sessionID string, start time.Time) error {
	if err := g.client.Del(ctx, guardKey(sessionID, start)).Err(); err != nil {
		return fmt.Errorf("booking: guard release: %w", err)
	}
	return nil
}

// MemoryGuard is the single-process fallback used when redis is not
// configured.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewMemoryGuard creates an in-memory guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]time.Time)}
}

func (g *MemoryGuard) Acquire(_ context.Context, sessionID string, start time.Time) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := guardKey(sessionID, start)
	if acquired, ok := g.held[key]; ok && time.Since(acquired) < guardTTL {
		return false, nil
	}
	g.held[key] = time.Now()
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, sessionID string, start time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, guardKey(sessionID, start))
	return nil
}
