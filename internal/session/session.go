// Package session holds the per-user interaction state and the state machine
// that drives it: Empty → Submitted → Drafted.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"lexdraft/internal/assistant"
	"lexdraft/internal/tone"
)

// ErrNotSubmitted is returned when a draft is requested before any email was
// submitted for analysis.
var ErrNotSubmitted = errors.New("no email submitted yet")

type State int

const (
	StateEmpty State = iota
	StateSubmitted
	StateDrafted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateSubmitted:
		return "submitted"
	case StateDrafted:
		return "drafted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Drafter is the model-backed capability a session drives.
type Drafter interface {
	SuggestTones(ctx context.Context, email string) (string, error)
	DraftReply(ctx context.Context, req assistant.DraftRequest) (string, error)
}

// Command is a discrete user action applied to a session.
type Command interface {
	command()
}

// Submit analyses Email and fixes it as the email to reply to.
type Submit struct{ Email string }

// SelectTone picks the catalog tone for the next draft.
type SelectTone struct{ Name string }

type EditNotes struct{ Text string }

type EditSignature struct{ Text string }

// Generate drafts a reply to the submitted email.
type Generate struct{}

func (Submit) command()        {}
func (SelectTone) command()    {}
func (EditNotes) command()     {}
func (EditSignature) command() {}
func (Generate) command()      {}

// Snapshot is a read-only copy of a session.
type Snapshot struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	Submitted   bool   `json:"submitted"`
	EmailText   string `json:"email_text"`
	Suggestions string `json:"suggestions"`
	Tone        string `json:"tone"`
	Notes       string `json:"notes"`
	Signature   string `json:"signature"`
	Draft       string `json:"draft"`
}

// Session is one user's interaction state. Commands are applied one at a
// time; Apply holds the session lock across the model call.
type Session struct {
	ID string

	mu          sync.Mutex
	state       State
	emailText   string
	suggestions string
	tone        string
	notes       string
	signature   string
	draft       string

	lastUse atomic.Int64 // unix nanos, readable while a command runs
}

func New(id string) *Session {
	s := &Session{ID: id, tone: tone.Default()}
	s.touch()
	return s
}

// Apply runs cmd against the session. A failed model call leaves the session
// unchanged.
func (s *Session) Apply(ctx context.Context, d Drafter, cmd Command) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	switch c := cmd.(type) {
	case Submit:
		suggestions, err := d.SuggestTones(ctx, c.Email)
		if err != nil {
			return s.snapshotLocked(), err
		}
		s.emailText = c.Email
		s.suggestions = suggestions
		s.draft = ""
		s.state = StateSubmitted

	case SelectTone:
		if !tone.Valid(c.Name) {
			return s.snapshotLocked(), fmt.Errorf("%w: %q", tone.ErrUnknownTone, c.Name)
		}
		s.tone = c.Name

	case EditNotes:
		s.notes = c.Text

	case EditSignature:
		s.signature = c.Text

	case Generate:
		if s.state == StateEmpty {
			return s.snapshotLocked(), ErrNotSubmitted
		}
		draft, err := d.DraftReply(ctx, assistant.DraftRequest{
			Email:     s.emailText,
			Tone:      s.tone,
			CaseNotes: s.notes,
			Signature: s.signature,
		})
		if err != nil {
			return s.snapshotLocked(), err
		}
		s.draft = draft
		s.state = StateDrafted

	default:
		return s.snapshotLocked(), fmt.Errorf("unsupported command %T", cmd)
	}
	return s.snapshotLocked(), nil
}

// ApplyAll applies cmds in order and stops at the first error.
func (s *Session) ApplyAll(ctx context.Context, d Drafter, cmds ...Command) (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	for _, c := range cmds {
		if snap, err = s.Apply(ctx, d, c); err != nil {
			return snap, err
		}
	}
	if len(cmds) == 0 {
		snap = s.Snapshot()
	}
	return snap, nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) touch() { s.lastUse.Store(time.Now().UnixNano()) }

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastUse.Load()))
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:          s.ID,
		State:       s.state.String(),
		Submitted:   s.state != StateEmpty,
		EmailText:   s.emailText,
		Suggestions: s.suggestions,
		Tone:        s.tone,
		Notes:       s.notes,
		Signature:   s.signature,
		Draft:       s.draft,
	}
}
