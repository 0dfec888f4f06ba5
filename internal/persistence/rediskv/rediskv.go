// Package rediskv mirrors territory deltas into Redis: a hash with the newest
// record of each kind and a capped stream of every delta.
package rediskv

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"skyclaim.ai/internal/persistence"
	"skyclaim.ai/internal/territory"
)

const (
	DefaultPrefix = "skyclaim:"
	seqSuffix     = ":seq"
)

// setIfNewer writes the record only when its seq beats the stored one.
var setIfNewer = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], ARGV[1] .. ':seq') or '0')
if tonumber(ARGV[2]) <= cur then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[3], ARGV[1] .. ':seq', ARGV[2])
return 1
`)

type Store struct {
	client    *redis.Client
	prefix    string
	streamLen int64
}

type Options struct {
	Prefix string
	// StreamLen caps each territory's delta stream, approximately.
	StreamLen int64
}

// Dial connects to addr and pings it before returning.
func Dial(addr string, db int, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return New(client, opts), nil
}

func New(client *redis.Client, opts Options) *Store {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.StreamLen <= 0 {
		opts.StreamLen = 10000
	}
	return &Store{client: client, prefix: opts.Prefix, streamLen: opts.StreamLen}
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) latestKey(id uuid.UUID) string { return s.prefix + "territory:" + id.String() + ":latest" }
func (s *Store) streamKey(id uuid.UUID) string { return s.prefix + "territory:" + id.String() + ":deltas" }

func (s *Store) Save(ctx context.Context, id uuid.UUID, d territory.Delta) error {
	rec, err := persistence.NewRecord(id, d)
	if err != nil {
		return fmt.Errorf("failed to marshal delta: %w", err)
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal delta: %w", err)
	}

	if err := setIfNewer.Run(ctx, s.client, []string{s.latestKey(id)}, string(rec.Kind), rec.Seq, b).Err(); err != nil {
		return fmt.Errorf("failed to set latest in Redis: %w", err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.streamKey(id),
		MaxLen: s.streamLen,
		Approx: true,
		Values: map[string]any{
			"seq":  rec.Seq,
			"kind": string(rec.Kind),
			"data": b,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append stream in Redis: %w", err)
	}
	return nil
}

// Latest returns the newest record of each kind.
func (s *Store) Latest(ctx context.Context, id uuid.UUID) (map[territory.DeltaKind]persistence.Record, error) {
	fields, err := s.client.HGetAll(ctx, s.latestKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get from Redis: %w", err)
	}
	out := make(map[territory.DeltaKind]persistence.Record, len(fields)/2)
	for k, v := range fields {
		if strings.HasSuffix(k, seqSuffix) {
			continue
		}
		var rec persistence.Record
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", k, err)
		}
		out[rec.Kind] = rec
	}
	return out, nil
}

// Stream returns up to count deltas from the stream, oldest first.
func (s *Store) Stream(ctx context.Context, id uuid.UUID, count int64) ([]persistence.Record, error) {
	msgs, err := s.client.XRangeN(ctx, s.streamKey(id), "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream from Redis: %w", err)
	}
	out := make([]persistence.Record, 0, len(msgs))
	for _, m := range msgs {
		raw, _ := m.Values["data"].(string)
		var rec persistence.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stream entry %s: %w", m.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Drop removes everything stored for a territory.
func (s *Store) Drop(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, s.latestKey(id), s.streamKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete from Redis: %w", err)
	}
	return nil
}
