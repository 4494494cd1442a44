package ratelimit

import (
	"sync"
	"time"
)

// Limiter implements a per-key token bucket rate limiter
type Limiter struct {
	mu           sync.Mutex
	buckets      map[string]*bucket
	tokensPerMin float64
	maxTokens    float64
	errorMessage string
	now          func() time.Time
	stopCleanup  chan struct{}
	stopOnce     sync.Once
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// Config for creating a new rate limiter
type Config struct {
	TokensPerMinute int    // tokens added per minute
	MaxTokens       int    // bucket capacity, defaults to TokensPerMinute
	ErrorMessage    string // returned to rate limited clients
}

// New creates a new rate limiter
func New(cfg Config) *Limiter {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = cfg.TokensPerMinute
	}
	if cfg.ErrorMessage == "" {
		cfg.ErrorMessage = "too many requests"
	}

	l := &Limiter{
		buckets:      make(map[string]*bucket),
		tokensPerMin: float64(cfg.TokensPerMinute),
		maxTokens:    float64(cfg.MaxTokens),
		errorMessage: cfg.ErrorMessage,
		now:          time.Now,
		stopCleanup:  make(chan struct{}),
	}
	go l.cleanup(5 * time.Minute)
	return l
}

// cleanup removes buckets idle for more than 10 minutes
func (l *Limiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.prune(10 * time.Minute)
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *Limiter) prune(idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, b := range l.buckets {
		if now.Sub(b.lastCheck) > idle {
			delete(l.buckets, key)
		}
	}
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

// Allow reports whether one request for key may proceed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key)
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Remaining returns the whole tokens currently available for key.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(l.refill(key).tokens)
}

func (l *Limiter) refill(key string) *bucket {
	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.maxTokens, lastCheck: now}
		l.buckets[key] = b
		return b
	}
	b.tokens += now.Sub(b.lastCheck).Minutes() * l.tokensPerMin
	if b.tokens > l.maxTokens {
		b.tokens = l.maxTokens
	}
	b.lastCheck = now
	return b
}

// ErrorMessage returns the message for rate limited clients.
func (l *Limiter) ErrorMessage() string {
	return l.errorMessage
}
