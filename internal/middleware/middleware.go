package middleware

import "context"

type EventName string

const (
	EventBeforeLLMRequest EventName = "before_llm_request"
	EventAfterLLMResponse EventName = "after_llm_response"
)

// Task identifies which of the two model calls an event belongs to.
type Task string

const (
	TaskSuggest Task = "suggest"
	TaskDraft   Task = "draft"
)

// LLMParams are the sampling parameters sent with one request.
type LLMParams struct {
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

type Decision struct {
	Cancel      bool   // stop the pipeline for this event
	Reason      string // for logs
	ReplaceText *string

	// Optional: change request + continue
	OverrideParams *LLMParams
}

type Event struct {
	Name     EventName
	Task     Task
	UserText string     // prompt, for before_llm_request
	LLMText  string     // model reply, for after_llm_response
	Params   *LLMParams // mutable
	Context  map[string]any
}

type Middleware interface {
	ID() string
	Priority() int
	OnEvent(ctx context.Context, e *Event) (Decision, error)
}

// ConditionalMiddleware lets a middleware opt out of an event. Skipped
// middlewares are still recorded in the dispatch results.
type ConditionalMiddleware interface {
	ShouldLoad(ctx context.Context, e *Event) bool
}
