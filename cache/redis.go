package cache

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"geohash-prefix-grid/config"
	"geohash-prefix-grid/index"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "cells:"

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("Connected to Redis successfully.")
	return rdb, nil
}

// RedisStore keeps each cell's document IDs in a Redis set.
type RedisStore struct {
	rdb *redis.Client
}

var _ index.Store = (*RedisStore)(nil)

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func cellKey(token string) string {
	return keyPrefix + token
}

func (s *RedisStore) Add(ctx context.Context, token, id string) error {
	return s.rdb.SAdd(ctx, cellKey(token), id).Err()
}

func (s *RedisStore) Remove(ctx context.Context, token, id string) error {
	return s.rdb.SRem(ctx, cellKey(token), id).Err()
}

func (s *RedisStore) Members(ctx context.Context, token string) ([]string, error) {
	return s.rdb.SMembers(ctx, cellKey(token)).Result()
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// PrefixMembers scans for the cell keys under prefix and unions their sets.
func (s *RedisStore) PrefixMembers(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, cellKey(globEscaper.Replace(prefix))+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []string{}, nil
	}
	ids, err := s.rdb.SUnion(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}
