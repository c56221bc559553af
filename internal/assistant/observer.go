package assistant

import (
	"time"

	"go.uber.org/zap"

	"lexdraft/internal/middleware"
)

// CallEvent records metadata about a single model request.
type CallEvent struct {
	Task        middleware.Task
	Model       string
	Latency     time.Duration
	Attempts    int
	PromptChars int
	Cached      bool
	Success     bool
	ErrorCode   string
}

// Observer receives an event after every model request.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// NoopObserver discards all events.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}

// LogObserver writes call events to a zap logger.
type LogObserver struct {
	log *zap.Logger
}

func NewLogObserver(log *zap.Logger) *LogObserver {
	return &LogObserver{log: log}
}

func (o *LogObserver) OnCallComplete(ev CallEvent) {
	fields := []zap.Field{
		zap.String("task", string(ev.Task)),
		zap.String("model", ev.Model),
		zap.Duration("latency", ev.Latency),
		zap.Int("attempts", ev.Attempts),
		zap.Int("prompt_chars", ev.PromptChars),
		zap.Bool("cached", ev.Cached),
	}
	if ev.Success {
		o.log.Info("llm call", fields...)
		return
	}
	o.log.Warn("llm call failed", append(fields, zap.String("error_code", ev.ErrorCode))...)
}

// MultiObserver fans an event out to several observers.
type MultiObserver []Observer

func (m MultiObserver) OnCallComplete(ev CallEvent) {
	for _, o := range m {
		if o != nil {
			o.OnCallComplete(ev)
		}
	}
}
