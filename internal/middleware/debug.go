package middleware

import (
	"encoding/json"
	"math"
	"regexp"
	"time"
	"unicode/utf8"
)

type debugEntry struct {
	Timestamp    string `json:"ts"`
	Event        string `json:"event"`
	Task         string `json:"task,omitempty"`
	MiddlewareID string `json:"middleware"`
	Priority     int    `json:"priority"`
	Skipped      bool   `json:"skipped,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Cancel       bool   `json:"cancel,omitempty"`

	InputChars   int `json:"in_chars"`
	OutputChars  int `json:"out_chars"`
	InputTokens  int `json:"in_tokens_est"`
	OutputTokens int `json:"out_tokens_est"`
	MaxTokens    int `json:"max_tokens,omitempty"`
}

// tokenish matches word-like chunks, otherwise single non-space characters.
var tokenish = regexp.MustCompile(`[\pL\pN]+(?:[._/\\-][\pL\pN]+)*|[^\s]`)

// EstimateTokens is a rough token count: word-ish chunks, floored by chars/4.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	chunks := len(tokenish.FindAllString(s, -1))
	byChars := int(math.Ceil(float64(utf8.RuneCountInString(s)) / 4.0))
	if chunks < byChars {
		return byChars
	}
	return chunks
}

func (c *Chain) debugLog(e *Event, mw Middleware, skipped bool, inText, outText string, dec Decision) {
	c.debugMu.Lock()
	w := c.debugW
	c.debugMu.Unlock()
	if w == nil || e == nil {
		return
	}

	entry := debugEntry{
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		Event:        string(e.Name),
		Task:         string(e.Task),
		MiddlewareID: mw.ID(),
		Priority:     mw.Priority(),
		Skipped:      skipped,
		Reason:       dec.Reason,
		Cancel:       dec.Cancel,
		InputChars:   utf8.RuneCountInString(inText),
		OutputChars:  utf8.RuneCountInString(outText),
		InputTokens:  EstimateTokens(inText),
		OutputTokens: EstimateTokens(outText),
	}
	if e.Params != nil {
		entry.MaxTokens = e.Params.MaxTokens
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return
	}
	c.debugMu.Lock()
	defer c.debugMu.Unlock()
	_, _ = w.Write(append(b, '\n'))
}
