// Package cachetest backs cache.RedisClient with an in-process miniredis.
package cachetest

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/fekuna/omnipos-pricing-service/internal/cache"
)

func New(t testing.TB) (*cache.RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return &cache.RedisClient{Client: client}, mr
}
