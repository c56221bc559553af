package middleware

import (
	"io"
	"sync"
)

var (
	registryMu sync.Mutex
	registry   []Middleware
)

// Register should be called by middleware packages (typically in init) to
// register themselves with the core chain builder.
func Register(m Middleware) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, m)
}

// Registered returns a shallow copy of all registered middleware.
func Registered() []Middleware {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]Middleware, len(registry))
	copy(out, registry)
	return out
}

// NewChainFromRegistry builds a chain from all registered middleware except
// the ids listed in disabled. It returns nil when nothing is left.
func NewChainFromRegistry(disabled []string, debugWriter io.Writer) *Chain {
	off := make(map[string]struct{}, len(disabled))
	for _, id := range disabled {
		off[id] = struct{}{}
	}

	var mws []Middleware
	for _, mw := range Registered() {
		if _, skip := off[mw.ID()]; !skip {
			mws = append(mws, mw)
		}
	}
	if len(mws) == 0 {
		return nil
	}
	c := NewChain(mws...)
	if debugWriter != nil {
		c.SetDebugWriter(debugWriter)
	}
	return c
}
