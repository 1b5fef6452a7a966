// Package journal streams execution records to Redis so external dashboards
// can follow a scan in flight. The journal is optional: the orchestration
// loop works identically against the no-op implementation, and journal
// publish failures are recorded but never fail a scan.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zero-day-ai/webstrike/state"
)

// Journal receives execution records and the final scan summary.
type Journal interface {
	// PublishRecord streams one execution record for a scan.
	PublishRecord(ctx context.Context, scanID string, rec state.Record) error

	// PublishSummary stores the finished scan state.
	PublishSummary(ctx context.Context, s *state.ScanState) error

	// Close releases the underlying connection.
	Close() error
}

// Nop is the default journal; it drops everything.
type Nop struct{}

// PublishRecord implements Journal.
func (Nop) PublishRecord(context.Context, string, state.Record) error { return nil }

// PublishSummary implements Journal.
func (Nop) PublishSummary(context.Context, *state.ScanState) error { return nil }

// Close implements Journal.
func (Nop) Close() error { return nil }

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379").
	URL string

	// SummaryTTL bounds how long finished scan summaries are retained.
	// Zero keeps them indefinitely.
	SummaryTTL time.Duration
}

// RedisJournal persists records to Redis lists and fans them out over
// pub/sub.
type RedisJournal struct {
	client     *redis.Client
	summaryTTL time.Duration
}

// Keys and channels used in Redis.
const (
	recordsKeyFormat = "webstrike:scan:%s:records"
	summaryKeyFormat = "webstrike:scan:%s:summary"
	recordsChannel   = "webstrike:records"
)

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions) (*RedisJournal, error) {
	ropts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL %q: %w", opts.URL, err)
	}

	client := redis.NewClient(ropts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisJournal{client: client, summaryTTL: opts.SummaryTTL}, nil
}

// envelope is the wire shape for streamed records.
type envelope struct {
	ScanID      string       `json:"scan_id"`
	Record      state.Record `json:"record"`
	PublishedAt int64        `json:"published_at"`
}

// PublishRecord appends the record to the scan's list and publishes it on
// the shared channel.
func (j *RedisJournal) PublishRecord(ctx context.Context, scanID string, rec state.Record) error {
	data, err := json.Marshal(envelope{
		ScanID:      scanID,
		Record:      rec,
		PublishedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	key := fmt.Sprintf(recordsKeyFormat, scanID)
	if err := j.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	if err := j.client.Publish(ctx, recordsChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish record: %w", err)
	}
	return nil
}

// PublishSummary stores the finished scan state as JSON.
func (j *RedisJournal) PublishSummary(ctx context.Context, s *state.ScanState) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal scan state: %w", err)
	}
	key := fmt.Sprintf(summaryKeyFormat, s.ID)
	if err := j.client.Set(ctx, key, data, j.summaryTTL).Err(); err != nil {
		return fmt.Errorf("failed to store scan summary: %w", err)
	}
	return nil
}

// Records returns every record streamed for a scan, oldest first.
func (j *RedisJournal) Records(ctx context.Context, scanID string) ([]state.Record, error) {
	key := fmt.Sprintf(recordsKeyFormat, scanID)
	raw, err := j.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	records := make([]state.Record, 0, len(raw))
	for _, item := range raw {
		var env envelope
		if err := json.Unmarshal([]byte(item), &env); err != nil {
			return nil, fmt.Errorf("malformed journal record: %w", err)
		}
		records = append(records, env.Record)
	}
	return records, nil
}

// Summary loads a stored scan state.
func (j *RedisJournal) Summary(ctx context.Context, scanID string) (*state.ScanState, error) {
	key := fmt.Sprintf(summaryKeyFormat, scanID)
	data, err := j.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read scan summary: %w", err)
	}
	var s state.ScanState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("malformed scan summary: %w", err)
	}
	return &s, nil
}

// Close closes the Redis connection.
func (j *RedisJournal) Close() error {
	return j.client.Close()
}
