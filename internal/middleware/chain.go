package middleware

import (
	"context"
	"io"
	"sort"
	"sync"
)

// Chain executes middlewares in descending Priority() order.
// If priorities are equal, registration order is preserved.
type Chain struct {
	mu  sync.RWMutex
	mws []Middleware

	debugMu sync.Mutex
	debugW  io.Writer
}

type DecisionResult struct {
	MiddlewareID string
	Priority     int
	Decision     Decision
}

func NewChain(mws ...Middleware) *Chain {
	c := &Chain{}
	for _, mw := range mws {
		c.Use(mw)
	}
	return c
}

// SetDebugWriter enables JSONL debug logging for dispatch decisions.
// If w is nil, logging is disabled.
func (c *Chain) SetDebugWriter(w io.Writer) {
	c.debugMu.Lock()
	defer c.debugMu.Unlock()
	c.debugW = w
}

func (c *Chain) Use(mw Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mws = append(c.mws, mw)
	sort.SliceStable(c.mws, func(i, j int) bool {
		return c.mws[i].Priority() > c.mws[j].Priority()
	})
}

func (c *Chain) List() []Middleware {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Middleware, len(c.mws))
	copy(out, c.mws)
	return out
}

// Dispatch runs every middleware against e, applying each decision to the
// event before the next one sees it. A Cancel decision ends the dispatch.
func (c *Chain) Dispatch(ctx context.Context, e *Event) ([]DecisionResult, error) {
	mws := c.List()

	results := make([]DecisionResult, 0, len(mws))
	for _, mw := range mws {
		before := eventText(e)
		if cmw, ok := mw.(ConditionalMiddleware); ok && !cmw.ShouldLoad(ctx, e) {
			skip := Decision{Reason: "skipped (ShouldLoad=false)"}
			c.debugLog(e, mw, true, before, before, skip)
			results = append(results, DecisionResult{MiddlewareID: mw.ID(), Priority: mw.Priority(), Decision: skip})
			continue
		}

		dec, err := mw.OnEvent(ctx, e)
		if err != nil {
			c.debugLog(e, mw, false, before, eventText(e), Decision{Reason: err.Error(), Cancel: true})
			return nil, err
		}

		applyDecision(e, dec)
		c.debugLog(e, mw, false, before, eventText(e), dec)

		results = append(results, DecisionResult{MiddlewareID: mw.ID(), Priority: mw.Priority(), Decision: dec})
		if dec.Cancel {
			break
		}
	}
	return results, nil
}

func eventText(e *Event) string {
	if e == nil {
		return ""
	}
	if e.Name == EventAfterLLMResponse {
		return e.LLMText
	}
	return e.UserText
}

func applyDecision(e *Event, dec Decision) {
	if e == nil {
		return
	}
	if dec.OverrideParams != nil {
		e.Params = dec.OverrideParams
	}
	if dec.ReplaceText == nil {
		return
	}
	if e.Name == EventAfterLLMResponse {
		e.LLMText = *dec.ReplaceText
	} else {
		e.UserText = *dec.ReplaceText
	}
}
