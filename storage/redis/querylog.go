// Package redis mirrors query log entries into a capped Redis list.
//
// QueryLogStore wraps any storage.DocumentStore. Appends go to the
// wrapped store first; the Redis copy is best effort and only logged on
// failure, so search never fails because Redis is down.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/poiesic/codex/core"
	"github.com/poiesic/codex/storage"
)

const (
	// DefaultKey is the list that receives entries.
	DefaultKey = "codex:queries"

	// DefaultMaxEntries caps the list length.
	DefaultMaxEntries = 1000
)

// QueryLogStore is a storage.DocumentStore whose query log is mirrored to Redis.
type QueryLogStore struct {
	storage.DocumentStore
	client     *goredis.Client
	key        string
	maxEntries int64
	logger     *slog.Logger
}

var _ storage.DocumentStore = (*QueryLogStore)(nil)

// Option configures a QueryLogStore.
type Option func(*QueryLogStore)

// WithLogger sets the logger. A nil logger means slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(q *QueryLogStore) {
		q.logger = logger
	}
}

// WithKey overrides the list key.
func WithKey(key string) Option {
	return func(q *QueryLogStore) {
		if key != "" {
			q.key = key
		}
	}
}

// WithMaxEntries overrides the list cap.
func WithMaxEntries(n int64) Option {
	return func(q *QueryLogStore) {
		if n > 0 {
			q.maxEntries = n
		}
	}
}

// Connect parses url, pings the server and wraps store.
func Connect(ctx context.Context, url string, store storage.DocumentStore, opts ...Option) (*QueryLogStore, error) {
	clientOpts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := goredis.NewClient(clientOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to ping redis: %w", storage.ErrUnavailable, err)
	}
	return New(client, store, opts...), nil
}

// New wraps store with an existing client.
func New(client *goredis.Client, store storage.DocumentStore, opts ...Option) *QueryLogStore {
	q := &QueryLogStore{
		DocumentStore: store,
		client:        client,
		key:           DefaultKey,
		maxEntries:    DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.logger == nil {
		q.logger = slog.Default()
	}
	q.logger = q.logger.With("component", "redis-querylog")
	return q
}

type entryJSON struct {
	Query       string    `json:"query"`
	Mode        string    `json:"mode"`
	ResultCount int       `json:"result_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// AppendQuery appends to the wrapped store, then pushes a copy to Redis.
func (q *QueryLogStore) AppendQuery(ctx context.Context, entry core.QueryLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if err := q.DocumentStore.AppendQuery(ctx, entry); err != nil {
		return err
	}

	b, err := json.Marshal(entryJSON{
		Query:       entry.Query,
		Mode:        string(entry.Mode),
		ResultCount: entry.ResultCount,
		Timestamp:   entry.Timestamp,
	})
	if err != nil {
		q.logger.Warn("failed to encode query", "err", err)
		return nil
	}
	_, err = q.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LPush(ctx, q.key, b)
		pipe.LTrim(ctx, q.key, 0, q.maxEntries-1)
		return nil
	})
	if err != nil {
		q.logger.Warn("failed to mirror query", "err", err)
	}
	return nil
}

// Recent returns up to n mirrored entries, newest first.
func (q *QueryLogStore) Recent(ctx context.Context, n int64) ([]core.QueryLogEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	items, err := q.client.LRange(ctx, q.key, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]core.QueryLogEntry, 0, len(items))
	for i, item := range items {
		var e entryJSON
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry at index %d: %w", i, err)
		}
		entries = append(entries, core.QueryLogEntry{
			Query:       e.Query,
			Mode:        core.SearchMode(e.Mode),
			ResultCount: e.ResultCount,
			Timestamp:   e.Timestamp,
		})
	}
	return entries, nil
}

// Close closes the client and the wrapped store.
func (q *QueryLogStore) Close() error {
	clientErr := q.client.Close()
	if err := q.DocumentStore.Close(); err != nil {
		return err
	}
	return clientErr
}
