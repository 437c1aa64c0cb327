package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SequenceRepository hands out the daily ticket-number sequence. INCR gives a
// gapless-enough, race-free counter across instances; keys expire two days
// after their first use.
type SequenceRepository interface {
	NextTicketSequence(ctx context.Context, day time.Time) (int64, error)
}

type sequenceRepository struct {
	client *redis.Client
}

// NewSequenceRepository instantiates repository.
func NewSequenceRepository(client *redis.Client) SequenceRepository {
	return &sequenceRepository{client: client}
}

func (r *sequenceRepository) NextTicketSequence(ctx context.Context, day time.Time) (int64, error) {
	key := fmt.Sprintf("ticket:seq:%s", day.Format("20060102"))
	seq, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if seq == 1 {
		_ = r.client.Expire(ctx, key, 48*time.Hour).Err()
	}
	return seq, nil
}
