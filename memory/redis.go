package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "loom:memory:"

// RedisStore is a Store backed by Redis lists. Each session is one list
// keyed loom:memory:<session>, newest record at the head, trimmed to the
// capacity bound on every append.
type RedisStore struct {
	client     *redis.Client
	maxRecords int
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr       string
	Password   string
	DB         int
	MaxRecords int
}

// NewRedisStore connects to Redis and verifies the connection with a
// ping before returning. MaxRecords <= 0 uses DefaultMaxRecords.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	maxRecords := opts.MaxRecords
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &RedisStore{client: client, maxRecords: maxRecords}, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(sessionID string) string {
	return redisKeyPrefix + sessionID
}

func (s *RedisStore) Append(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAppendFailed, rec.ID, err)
	}

	key := s.key(rec.SessionID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, int64(s.maxRecords)-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAppendFailed, rec.ID, err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, sessionID string, n int) ([]Record, error) {
	if n <= 0 {
		n = s.maxRecords
	}
	// Head of the list is the newest record, so the range is already
	// most recent first.
	lines, err := s.client.LRange(ctx, s.key(sessionID), 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrQueryFailed, sessionID, err)
	}
	return decodeRecords(lines, sessionID, "", 0)
}

func (s *RedisStore) Search(ctx context.Context, sessionID, query string, limit int) ([]Record, error) {
	lines, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrQueryFailed, sessionID, err)
	}
	return decodeRecords(lines, sessionID, query, limit)
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear failed: %s: %w", sessionID, err)
	}
	return nil
}

func decodeRecords(lines []string, sessionID, query string, limit int) ([]Record, error) {
	var recs []Record
	for _, line := range lines {
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrQueryFailed, sessionID, err)
		}
		if query != "" && !matches(rec, query) {
			continue
		}
		recs = append(recs, rec)
		if limit > 0 && len(recs) == limit {
			break
		}
	}
	return recs, nil
}
