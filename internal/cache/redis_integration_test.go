//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/providers"
)

type RedisCacheSuite struct {
	suite.Suite
	client *redis.Client
	cache  *RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if os.Getenv("REDIS_URL") == "" {
		t.Skip("REDIS_URL not set")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	client, err := Connect(context.Background(), os.Getenv("REDIS_URL"))
	s.Require().NoError(err)
	s.client = client
	s.cache = NewRedisCache(client, time.Minute)
}

func (s *RedisCacheSuite) TearDownSuite() {
	s.client.Close()
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.client.FlushDB(context.Background()).Err())
}

func (s *RedisCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	obs := providers.Observation{
		Factor:      catalog.FactorFlood,
		RawScore:    85,
		Explanation: "Located in FEMA flood zone AE",
		Source:      providers.SourcePrimary,
		SourceName:  "FEMA NFHL",
		Metadata:    map[string]any{"zone": "AE"},
	}
	s.Require().NoError(s.cache.Set(ctx, "obs:flood:1.0000,2.0000", obs))

	got, ok, err := s.cache.Get(ctx, "obs:flood:1.0000,2.0000")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(obs.RawScore, got.RawScore)
	s.Equal("AE", got.Metadata["zone"])

	ttl := s.client.TTL(ctx, keyPrefix+"obs:flood:1.0000,2.0000").Val()
	s.Greater(ttl, time.Duration(0))
}

func (s *RedisCacheSuite) TestMiss() {
	_, ok, err := s.cache.Get(context.Background(), "absent")
	s.NoError(err)
	s.False(ok)
}

func (s *RedisCacheSuite) TestCorruptEntryIsMiss() {
	ctx := context.Background()
	s.Require().NoError(s.client.Set(ctx, keyPrefix+"bad", "{", time.Minute).Err())
	_, ok, err := s.cache.Get(ctx, "bad")
	s.NoError(err)
	s.False(ok)
}

func TestConnectEmptyURL(t *testing.T) {
	c, err := Connect(context.Background(), "")
	if err != nil || c != nil {
		t.Fatalf("expected nil client, got %v %v", c, err)
	}
}
