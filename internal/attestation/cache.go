package attestation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefix for cached attestation lookups.
	attestationKeyPrefix = "att:proof:"

	// Attestations are immutable once issued, so a short existence cache is
	// safe. Revocation is never cached: a stale non-revoked answer would
	// let a redemption through on a withdrawn proof.
	defaultCacheTTL = 2 * time.Minute
)

// CachedClient is a read-through cache over an attestation Client. Only
// positive GetAttestation results are cached; absence and revocation are
// always re-checked against the upstream service.
type CachedClient struct {
	upstream Client
	redis    *redis.Client
	logger   *slog.Logger
	ttl      time.Duration
}

// CacheOption configures a CachedClient.
type CacheOption func(*CachedClient)

// WithTTL overrides the existence-cache TTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CachedClient) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewCachedClient wraps upstream with a Redis existence cache.
func NewCachedClient(upstream Client, rdb *redis.Client, logger *slog.Logger, opts ...CacheOption) *CachedClient {
	c := &CachedClient{
		upstream: upstream,
		redis:    rdb,
		logger:   logger,
		ttl:      defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func cacheKey(issuer, period string) string {
	return fmt.Sprintf("%s%s:%s", attestationKeyPrefix, issuer, period)
}

// GetAttestation returns the cached proof when present, falling back to the
// upstream service. Cache failures degrade to upstream reads; they never
// fail a redemption on their own.
func (c *CachedClient) GetAttestation(ctx context.Context, issuer, period string) (*Attestation, error) {
	key := cacheKey(issuer, period)

	raw, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var att Attestation
		if jsonErr := json.Unmarshal([]byte(raw), &att); jsonErr == nil {
			return &att, nil
		}
		// Corrupt entry; drop it and fall through to upstream.
		c.redis.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "attestation cache read failed",
			"error", err,
			"issuer", issuer,
			"period", period,
		)
	}

	att, err := c.upstream.GetAttestation(ctx, issuer, period)
	if err != nil || att == nil {
		return att, err
	}

	if encoded, jsonErr := json.Marshal(att); jsonErr == nil {
		if setErr := c.redis.Set(ctx, key, encoded, c.ttl).Err(); setErr != nil {
			c.logger.WarnContext(ctx, "attestation cache write failed",
				"error", setErr,
				"issuer", issuer,
				"period", period,
			)
		}
	}
	return att, nil
}

// IsRevoked always consults the upstream service.
func (c *CachedClient) IsRevoked(ctx context.Context, issuer, period string) (bool, error) {
	return c.upstream.IsRevoked(ctx, issuer, period)
}
