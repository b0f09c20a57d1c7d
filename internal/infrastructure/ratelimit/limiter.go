package ratelimit

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultCleanupInterval = time.Minute
	// Entries idle longer than this are dropped; a refilled bucket is
	// indistinguishable from a new one.
	minEntryTTL = time.Minute
)

type Config struct {
	Max              int
	Duration         time.Duration
	BehindCloudflare bool
	CleanupInterval  time.Duration
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PerIPLimiter allows Max requests per Duration for every client address.
type PerIPLimiter struct {
	max              int
	window           time.Duration
	limit            rate.Limit
	behindCloudflare bool
	entryTTL         time.Duration
	cleanupInterval  time.Duration

	mu      sync.Mutex
	clients map[string]*client

	stopCh    chan struct{}
	stoppedCh chan struct{}
	stopOnce  sync.Once
}

// NewPerIPLimiter starts a background goroutine that evicts idle clients;
// call Stop to release it. cfg.Max must be positive.
func NewPerIPLimiter(cfg Config) *PerIPLimiter {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ttl := cfg.Duration
	if ttl < minEntryTTL {
		ttl = minEntryTTL
	}

	rl := &PerIPLimiter{
		max:              cfg.Max,
		window:           cfg.Duration,
		limit:            rate.Every(cfg.Duration / time.Duration(cfg.Max)),
		behindCloudflare: cfg.BehindCloudflare,
		entryTTL:         ttl,
		cleanupInterval:  interval,
		clients:          make(map[string]*client),
		stopCh:           make(chan struct{}),
		stoppedCh:        make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *PerIPLimiter) Max() int { return rl.max }
func (rl *PerIPLimiter) Window() time.Duration { return rl.window }

// Allow consumes one token from the bucket of ip.
func (rl *PerIPLimiter) Allow(ip string) bool {
	return rl.allowAt(ip, time.Now())
}

func (rl *PerIPLimiter) allowAt(ip string, now time.Time) bool {
	rl.mu.Lock()
	c, ok := rl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.max)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	rl.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

// ClientIP returns the address requests are accounted against. Behind a
// Cloudflare tunnel the CF-Connecting-IP header is trusted, but only when the
// peer itself is a Cloudflare edge.
func (rl *PerIPLimiter) ClientIP(r *http.Request) string {
	remote := extractRemoteIP(r.RemoteAddr)
	if !rl.behindCloudflare {
		return remote
	}
	peer, err := netip.ParseAddr(remote)
	if err != nil || !IsCloudflare(peer) {
		return remote
	}
	if forwarded := strings.TrimSpace(r.Header.Get(HeaderConnectingIP)); forwarded != "" {
		if _, err := netip.ParseAddr(forwarded); err == nil {
			return forwarded
		}
	}
	return remote
}

func (rl *PerIPLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
		<-rl.stoppedCh
	})
}

func (rl *PerIPLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()
	defer close(rl.stoppedCh)

	for {
		select {
		case now := <-ticker.C:
			rl.evictIdle(now)
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *PerIPLimiter) evictIdle(now time.Time) {
	cutoff := now.Add(-rl.entryTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *PerIPLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func extractRemoteIP(remoteAddr string) string {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return ip
}
