// Package cache provides the optional resolver.Cache implementation
// backed by Redis. It sits behind the Resolver's cache hook and is
// entirely disabled unless a caller wires it in: the core resolve path
// works exactly as if this package did not exist.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/poyrazK/cloudDNS/internal/dns/packet"
	"github.com/poyrazK/cloudDNS/internal/metrics"
)

// DefaultTTL is the expiry Set gives every cache entry; the TTLs of the
// cached answer's own records are not used (a fixed short TTL keeps a
// stale entry from living much past the zone's usual refresh cadence).
const DefaultTTL = 30 * time.Second

// Redis is a resolver.Cache backed by a Redis server, keyed on the
// question's name and type so an A and an MX answer for the same name
// never collide.
type Redis struct {
	client *redis.Client
}

// NewRedis returns a Redis-backed cache client talking to addr (host:port).
func NewRedis(addr, password string, db int) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// Ping verifies connectivity to the Redis server.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func cacheKey(qname string, qtype packet.RRType) string {
	return fmt.Sprintf("dns:%s:%s", qname, qtype)
}

// Get implements resolver.Cache.
func (r *Redis) Get(ctx context.Context, qname string, qtype packet.RRType) (*packet.Packet, bool) {
	raw, err := r.client.Get(ctx, cacheKey(qname, qtype)).Bytes()
	if err != nil {
		metrics.CacheOperations.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	p, err := packet.ParseTCP(raw)
	if err != nil {
		metrics.CacheOperations.WithLabelValues("redis", "corrupt").Inc()
		return nil, false
	}
	metrics.CacheOperations.WithLabelValues("redis", "hit").Inc()
	return p, true
}

// Set implements resolver.Cache.
func (r *Redis) Set(ctx context.Context, qname string, qtype packet.RRType, answer *packet.Packet) {
	data, err := answer.WriteTCP()
	if err != nil {
		return
	}
	r.client.Set(ctx, cacheKey(qname, qtype), data, DefaultTTL)
	metrics.CacheOperations.WithLabelValues("redis", "store").Inc()
}
