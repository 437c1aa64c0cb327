package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeaseRepository provides short-lived exclusive leases. The KPI aggregator
// uses it so recomputation for the same (date, scope) key never runs twice
// concurrently.
type LeaseRepository interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type leaseRepository struct {
	client *redis.Client
}

// NewLeaseRepository instantiates repository.
func NewLeaseRepository(client *redis.Client) LeaseRepository {
	return &leaseRepository{client: client}
}

func (r *leaseRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, "lease:"+key, "1", ttl).Result()
}

func (r *leaseRepository) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, "lease:"+key).Err()
}
