// Package server hosts the UDP and TCP front ends: accept loops that hand
// each request to a bounded worker pool, which parses it, resolves the
// first question, and writes the reply back.
package server

import (
	"log/slog"

	"github.com/poyrazK/cloudDNS/internal/dns/resolver"
	"github.com/poyrazK/cloudDNS/internal/dns/transport"
	"github.com/poyrazK/cloudDNS/internal/dns/workerpool"
)

// Mode selects which Resolver variant a Context builds per query.
type Mode int

const (
	// ModeRecursive walks the referral chain itself, starting from the
	// root hints.
	ModeRecursive Mode = iota
	// ModeForward sends every question to a single fixed upstream.
	ModeForward
)

// Context is the set of resources shared across every query this process
// handles, built once at startup and never mutated afterward; every field
// read during request handling is safe to read from any goroutine without
// further synchronization.
type Context struct {
	Mode           Mode
	Upstream       string // host or host:port (a bare host dials port 53), required when Mode == ModeForward
	AllowRecursion bool

	Client *transport.Client
	Pool   *workerpool.Pool
	Cache  resolver.Cache
	Logger *slog.Logger
}

// NewResolver builds the Resolver variant this Context is configured for.
// Resolvers are cheap and carry no state beyond their dependencies, so
// building a fresh one per query (rather than sharing one across queries)
// costs nothing and keeps every query's resolve path independent.
func (c *Context) NewResolver() resolver.Resolver {
	if c.Mode == ModeForward {
		return resolver.NewForward(c.Client, c.Upstream, c.Cache, c.Logger)
	}
	return resolver.NewRecursive(c.Client, c.Cache, c.Logger)
}

func (c *Context) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
