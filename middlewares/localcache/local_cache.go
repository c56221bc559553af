package localcache

import (
	"context"
	"sync"
	"time"

	mw "lexdraft/internal/middleware"
)

// Context keys read by the cache.
const (
	EnabledKey = "local_cache"     // bool, opt-in
	TTLKey     = "local_cache_ttl" // time.Duration
)

const (
	defaultTTL = 5 * time.Minute
	maxEntries = 256
)

func init() {
	mw.Register(New())
}

type cacheEntry struct {
	response string
	expires  time.Time
}

// LocalCache answers a tone-suggestion prompt from memory when the exact same
// prompt was answered recently. Drafts are never cached so that generating
// again can produce a different reply.
type LocalCache struct {
	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time
}

func New() *LocalCache {
	return &LocalCache{
		cache: make(map[string]cacheEntry),
		now:   time.Now,
	}
}

func (l *LocalCache) ID() string { return "local-cache" }

// Priority places the cache after the token budget.
func (l *LocalCache) Priority() int { return 80 }

func (l *LocalCache) ShouldLoad(_ context.Context, e *mw.Event) bool {
	if e == nil || e.Task != mw.TaskSuggest || e.Context == nil {
		return false
	}
	on, _ := e.Context[EnabledKey].(bool)
	return on
}

func (l *LocalCache) OnEvent(_ context.Context, e *mw.Event) (mw.Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	switch e.Name {
	case mw.EventBeforeLLMRequest:
		entry, ok := l.cache[e.UserText]
		if !ok {
			break
		}
		reply := entry.response
		return mw.Decision{
			Cancel:      true,
			ReplaceText: &reply,
			Reason:      "served from local cache",
		}, nil
	case mw.EventAfterLLMResponse:
		if e.UserText == "" || e.LLMText == "" {
			break
		}
		if _, ok := l.cache[e.UserText]; !ok && len(l.cache) >= maxEntries {
			l.evictOldest()
		}
		l.cache[e.UserText] = cacheEntry{response: e.LLMText, expires: now.Add(ttl(e))}
	}
	return mw.Decision{}, nil
}

// sweep drops every expired entry, asked for again or not.
func (l *LocalCache) sweep(now time.Time) {
	for k, entry := range l.cache {
		if !now.Before(entry.expires) {
			delete(l.cache, k)
		}
	}
}

func (l *LocalCache) evictOldest() {
	var (
		oldest string
		at     time.Time
	)
	for k, entry := range l.cache {
		if at.IsZero() || entry.expires.Before(at) {
			oldest, at = k, entry.expires
		}
	}
	delete(l.cache, oldest)
}

// Len reports the number of cached prompts.
func (l *LocalCache) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

func ttl(e *mw.Event) time.Duration {
	if d, ok := e.Context[TTLKey].(time.Duration); ok && d > 0 {
		return d
	}
	return defaultTTL
}
