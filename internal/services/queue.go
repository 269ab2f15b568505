package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var ErrQueueClosed = errors.New("job queue is closed")

// JobQueue carries résumé IDs waiting to be indexed.
type JobQueue interface {
	Enqueue(ctx context.Context, id uuid.UUID) error
	// EnqueueAfter makes the job visible once delay has passed.
	EnqueueAfter(ctx context.Context, id uuid.UUID, delay time.Duration) error
	// Dequeue blocks until a job is available, the context ends or the queue closes.
	Dequeue(ctx context.Context) (uuid.UUID, error)
	// PromoteDelayed moves due delayed jobs onto the ready queue.
	PromoteDelayed(ctx context.Context) (int, error)
	Close() error
}

type memoryQueue struct {
	jobs      chan uuid.UUID
	closed    chan struct{}
	closeOnce sync.Once
}

func NewMemoryQueue(size int) JobQueue {
	if size <= 0 {
		size = 100
	}
	return &memoryQueue{
		jobs:   make(chan uuid.UUID, size),
		closed: make(chan struct{}),
	}
}

func (q *memoryQueue) Enqueue(ctx context.Context, id uuid.UUID) error {
	select {
	case q.jobs <- id:
		return nil
	case <-q.closed:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *memoryQueue) EnqueueAfter(ctx context.Context, id uuid.UUID, delay time.Duration) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}

	time.AfterFunc(delay, func() {
		select {
		case q.jobs <- id:
		case <-q.closed:
		}
	})
	return nil
}

func (q *memoryQueue) Dequeue(ctx context.Context) (uuid.UUID, error) {
	select {
	case id := <-q.jobs:
		return id, nil
	case <-q.closed:
		return uuid.Nil, ErrQueueClosed
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

func (q *memoryQueue) PromoteDelayed(ctx context.Context) (int, error) { return 0, nil }

func (q *memoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.closed) })
	return nil
}

type redisQueue struct {
	client     *redis.Client
	key        string
	delayedKey string
	blockFor   time.Duration
}

// NewRedisQueue keeps ready jobs in a list and delayed retries in a sorted set
// scored by due time in unix milliseconds.
func NewRedisQueue(ctx context.Context, addr, password string, db int, key string) (JobQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisQueue{
		client:     client,
		key:        key,
		delayedKey: key + ":delayed",
		blockFor:   time.Second,
	}, nil
}

func (q *redisQueue) Enqueue(ctx context.Context, id uuid.UUID) error {
	if err := q.client.LPush(ctx, q.key, id.String()).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

func (q *redisQueue) EnqueueAfter(ctx context.Context, id uuid.UUID, delay time.Duration) error {
	due := time.Now().Add(delay).UnixMilli()
	err := q.client.ZAdd(ctx, q.delayedKey, &redis.Z{
		Score:  float64(due),
		Member: id.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}
	return nil
}

func (q *redisQueue) Dequeue(ctx context.Context) (uuid.UUID, error) {
	for {
		result, err := q.client.BRPop(ctx, q.blockFor, q.key).Result()
		if err == redis.Nil {
			if ctx.Err() != nil {
				return uuid.Nil, ctx.Err()
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return uuid.Nil, ctx.Err()
			}
			return uuid.Nil, fmt.Errorf("failed to dequeue job: %w", err)
		}

		// result is [key, value]
		id, err := uuid.Parse(result[1])
		if err != nil {
			continue
		}
		return id, nil
	}
}

func (q *redisQueue) PromoteDelayed(ctx context.Context) (int, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := q.client.ZRangeByScore(ctx, q.delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read delayed jobs: %w", err)
	}

	moved := 0
	for _, member := range due {
		// only the instance that removes the member re-queues it
		removed, err := q.client.ZRem(ctx, q.delayedKey, member).Result()
		if err != nil {
			return moved, fmt.Errorf("failed to claim delayed job: %w", err)
		}
		if removed == 0 {
			continue
		}

		if err := q.client.LPush(ctx, q.key, member).Err(); err != nil {
			return moved, fmt.Errorf("failed to promote delayed job: %w", err)
		}
		moved++
	}
	return moved, nil
}

func (q *redisQueue) Close() error {
	return q.client.Close()
}
