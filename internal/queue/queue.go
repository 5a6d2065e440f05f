// Package queue implements the Redis-list-backed job broker: workers
// block on BRPOP for new calculation jobs, and the HTTP submission API
// (or anything else) enqueues them with LPUSH.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ecohealth/airflow/internal/cache"
)

// DefaultListKey is the Redis list jobs are pushed to and popped from.
const DefaultListKey = "airflow:jobs"

// Job envelopes a task payload with its type, so a single list can carry
// both CalculateFlowsForAirportTask and SimulatePassengersTask entries.
type Job struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Broker pushes and pops Jobs from a Redis list.
type Broker struct {
	client  *redis.Client
	listKey string
}

// NewBroker builds a Broker over an already-connected cache.Cache. An
// empty listKey defaults to DefaultListKey.
func NewBroker(c *cache.Cache, listKey string) *Broker {
	if listKey == "" {
		listKey = DefaultListKey
	}
	return &Broker{client: c.Client(), listKey: listKey}
}

// Enqueue marshals payload and pushes it onto the list under jobType.
func (b *Broker) Enqueue(ctx context.Context, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}

	job := Job{Type: jobType, Payload: data, EnqueuedAt: time.Now()}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job envelope: %w", err)
	}

	if err := b.client.LPush(ctx, b.listKey, raw).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next job, returning (nil, nil) on
// timeout with nothing available. A worker calls this in a loop.
func (b *Broker) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := b.client.BRPop(ctx, timeout, b.listKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue job: %w", err)
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("dequeue job: unexpected BRPOP reply %v", result)
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job envelope: %w", err)
	}
	return &job, nil
}

// Len reports the current queue depth, for health/metrics endpoints.
func (b *Broker) Len(ctx context.Context) (int64, error) {
	n, err := b.client.LLen(ctx, b.listKey).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}
