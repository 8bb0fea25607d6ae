package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Redis stores each entry under "<prefix><ns>:<key>".
type Redis struct {
	rdb    *redis.Client
	prefix string
}

var _ Store = (*Redis)(nil)

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) k(ns, key string) string { return r.prefix + ns + ":" + key }

func (r *Redis) Get(ctx context.Context, ns, key string) ([]byte, error) {
	v, err := r.rdb.Get(ctx, r.k(ns, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %s/%s: %w", ns, key, err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, ns, key string, value []byte) error {
	if err := r.rdb.Set(ctx, r.k(ns, key), value, 0).Err(); err != nil {
		return fmt.Errorf("kv set %s/%s: %w", ns, key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, ns, key string) error {
	if err := r.rdb.Del(ctx, r.k(ns, key)).Err(); err != nil {
		return fmt.Errorf("kv delete %s/%s: %w", ns, key, err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context, ns string) ([]string, error) {
	pfx := r.prefix + ns + ":"
	var keys []string
	iter := r.rdb.Scan(ctx, 0, pfx+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), pfx))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("kv list %s: %w", ns, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Redis) Close() error { return r.rdb.Close() }
