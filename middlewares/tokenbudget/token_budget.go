package tokenbudget

import (
	"context"

	mw "lexdraft/internal/middleware"
)

func init() {
	mw.Register(BudgetLimiter{})
}

// ContextKey holds the configured completion budget (int).
const ContextKey = "token_budget"

// BudgetLimiter caps MaxTokens at Event.Context["token_budget"], keeping the
// smaller of an existing cap and the budget.
type BudgetLimiter struct{}

func (BudgetLimiter) ID() string    { return "token_budget" }
func (BudgetLimiter) Priority() int { return 90 }

func (BudgetLimiter) OnEvent(_ context.Context, e *mw.Event) (mw.Decision, error) {
	if e == nil || e.Name != mw.EventBeforeLLMRequest {
		return mw.Decision{}, nil
	}
	budget, ok := e.Context[ContextKey].(int)
	if !ok || budget <= 0 {
		return mw.Decision{}, nil
	}

	params := &mw.LLMParams{}
	if e.Params != nil {
		*params = *e.Params
	}
	if params.MaxTokens != 0 && params.MaxTokens <= budget {
		return mw.Decision{}, nil
	}

	params.MaxTokens = budget
	return mw.Decision{
		OverrideParams: params,
		Reason:         "token_budget: capped MaxTokens",
	}, nil
}
