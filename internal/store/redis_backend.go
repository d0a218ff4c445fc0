package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// RedisBackend keeps blobs as plain Redis strings under a key prefix.
type RedisBackend struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisBackend wraps rdb. Every key is stored as prefix+name.
func NewRedisBackend(rdb redis.UniversalClient, prefix string) *RedisBackend {
	return &RedisBackend{rdb: rdb, prefix: prefix}
}

func (b *RedisBackend) Put(ctx context.Context, name string, data []byte) error {
	return b.rdb.Set(ctx, b.prefix+name, data, 0).Err()
}

func (b *RedisBackend) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := b.rdb.Get(ctx, b.prefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *RedisBackend) Delete(ctx context.Context, name string) error {
	return b.rdb.Del(ctx, b.prefix+name).Err()
}

func (b *RedisBackend) List(ctx context.Context, prefix string) ([]string, error) {
	iter := b.rdb.Scan(ctx, 0, globEscape(b.prefix+prefix)+"*", scanBatch).Iterator()
	seen := map[string]bool{}
	for iter.Next(ctx) {
		seen[strings.TrimPrefix(iter.Val(), b.prefix)] = true
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (b *RedisBackend) Close() error { return b.rdb.Close() }

// globEscape quotes the characters SCAN MATCH treats as patterns.
func globEscape(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

var _ Backend = (*RedisBackend)(nil)
