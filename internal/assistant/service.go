package assistant

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"lexdraft/internal/middleware"
	"lexdraft/internal/prompt"
	"lexdraft/internal/tone"
)

const (
	DefaultSuggestTemperature = 0.3
	DefaultDraftTemperature   = 0.4
)

// Service turns client emails into tone suggestions and draft replies.
type Service struct {
	adapter     Adapter
	mws         *middleware.Chain
	mwCtx       map[string]any
	observer    Observer
	model       string
	suggestTemp float64
	draftTemp   float64
	timeout     time.Duration
	retries     int
	backoff     time.Duration
}

type ServiceOption func(*Service)

func WithMiddlewareChain(chain *middleware.Chain) ServiceOption {
	return func(s *Service) {
		s.mws = chain
	}
}

// WithMiddlewareContext sets the Event.Context passed to every middleware.
func WithMiddlewareContext(ctx map[string]any) ServiceOption {
	return func(s *Service) {
		s.mwCtx = maps.Clone(ctx)
	}
}

func WithObserver(o Observer) ServiceOption {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithModel overrides the adapter's default model for both calls.
func WithModel(model string) ServiceOption {
	return func(s *Service) {
		s.model = model
	}
}

func WithTemperatures(suggest, draft float64) ServiceOption {
	return func(s *Service) {
		s.suggestTemp = suggest
		s.draftTemp = draft
	}
}

// WithTimeout bounds every model request. Zero leaves only the caller's
// context in charge.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithRetries retries a failed request n more times, sleeping backoff*attempt
// between tries. Cancellation and timeouts are never retried.
func WithRetries(n int, backoff time.Duration) ServiceOption {
	return func(s *Service) {
		if n < 0 {
			n = 0
		}
		s.retries = n
		s.backoff = backoff
	}
}

func NewService(adapter Adapter, opts ...ServiceOption) *Service {
	s := &Service{
		adapter:     adapter,
		observer:    NoopObserver{},
		suggestTemp: DefaultSuggestTemperature,
		draftTemp:   DefaultDraftTemperature,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SuggestTones asks the model for the three best-fitting catalog tones for
// email. The reply is returned as-is apart from trimming.
func (s *Service) SuggestTones(ctx context.Context, email string) (string, error) {
	p := prompt.Suggestion(email, tone.Names())
	return s.complete(ctx, middleware.TaskSuggest, p, s.suggestTemp)
}

// DraftRequest is the input to DraftReply. Tone is a catalog name.
type DraftRequest struct {
	Email     string
	Tone      string
	CaseNotes string
	Signature string
}

// DraftPrompt renders the prompt DraftReply would send for req.
func DraftPrompt(req DraftRequest) (string, error) {
	instr, err := tone.Instruction(req.Tone)
	if err != nil {
		return "", err
	}
	return prompt.Draft(prompt.DraftInput{
		Email:           req.Email,
		ToneInstruction: instr,
		CaseNotes:       req.CaseNotes,
		Signature:       req.Signature,
	}), nil
}

// DraftReply asks the model to write a reply to req.Email in the chosen tone.
func (s *Service) DraftReply(ctx context.Context, req DraftRequest) (string, error) {
	p, err := DraftPrompt(req)
	if err != nil {
		return "", err
	}
	return s.complete(ctx, middleware.TaskDraft, p, s.draftTemp)
}

func (s *Service) complete(ctx context.Context, task middleware.Task, text string, temperature float64) (string, error) {
	start := time.Now()
	ev := CallEvent{Task: task, Model: s.model, PromptChars: len(text)}
	params := &middleware.LLMParams{Model: s.model, Temperature: temperature}

	if s.mws != nil {
		e := &middleware.Event{
			Name:     middleware.EventBeforeLLMRequest,
			Task:     task,
			UserText: text,
			Params:   params,
			Context:  s.mwCtx,
		}
		results, err := s.mws.Dispatch(ctx, e)
		if err != nil {
			return "", s.fail(ev, start, err)
		}
		if dec := canceled(results); dec != nil {
			if strings.TrimSpace(e.UserText) != "" && dec.ReplaceText != nil {
				ev.Cached = true
				ev.Success = true
				ev.Latency = time.Since(start)
				s.observer.OnCallComplete(ev)
				return strings.TrimSpace(e.UserText), nil
			}
			if dec.Reason != "" {
				return "", s.fail(ev, start, fmt.Errorf("%w: %s", ErrCanceledByMiddleware, dec.Reason))
			}
			return "", s.fail(ev, start, ErrCanceledByMiddleware)
		}
		if e.Params != nil {
			params = e.Params
		}
		text = e.UserText
	}

	reply, attempts, err := s.call(ctx, text, params)
	ev.Attempts = attempts
	if err != nil {
		return "", s.fail(ev, start, fmt.Errorf("%s request: %w", task, err))
	}

	if s.mws != nil {
		e := &middleware.Event{
			Name:     middleware.EventAfterLLMResponse,
			Task:     task,
			UserText: text,
			LLMText:  reply,
			Params:   params,
			Context:  s.mwCtx,
		}
		if _, err := s.mws.Dispatch(ctx, e); err != nil {
			return "", s.fail(ev, start, err)
		}
		reply = strings.TrimSpace(e.LLMText)
	}

	ev.Success = true
	ev.Latency = time.Since(start)
	s.observer.OnCallComplete(ev)
	return reply, nil
}

func (s *Service) call(ctx context.Context, text string, params *middleware.LLMParams) (string, int, error) {
	messages := []Message{{Role: RoleUser, Content: text}}

	var lastErr error
	attempts := 0
	for i := 0; i <= s.retries; i++ {
		if i > 0 && s.backoff > 0 {
			select {
			case <-ctx.Done():
				return "", attempts, ctx.Err()
			case <-time.After(s.backoff * time.Duration(i)):
			}
		}
		attempts++

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if s.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		}
		reply, err := s.adapter.Reply(callCtx, messages, params)
		cancel()

		if err == nil {
			return strings.TrimSpace(reply), attempts, nil
		}
		lastErr = err
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
	}
	return "", attempts, lastErr
}

func (s *Service) fail(ev CallEvent, start time.Time, err error) error {
	ev.Latency = time.Since(start)
	ev.ErrorCode = errorCode(err)
	s.observer.OnCallComplete(ev)
	return err
}

func canceled(results []middleware.DecisionResult) *middleware.Decision {
	for _, r := range results {
		if r.Decision.Cancel {
			dec := r.Decision
			return &dec
		}
	}
	return nil
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrCanceledByMiddleware):
		return "middleware"
	default:
		return "error"
	}
}
