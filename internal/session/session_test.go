package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexdraft/internal/assistant"
	"lexdraft/internal/tone"
)

type stubDrafter struct {
	mu          sync.Mutex
	suggestErr  error
	draftErr    error
	suggestions []string
	drafts      []assistant.DraftRequest
}

func (d *stubDrafter) SuggestTones(_ context.Context, email string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.suggestErr != nil {
		return "", d.suggestErr
	}
	d.suggestions = append(d.suggestions, email)
	return "- Reassuring: worried client", nil
}

func (d *stubDrafter) DraftReply(_ context.Context, req assistant.DraftRequest) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.draftErr != nil {
		return "", d.draftErr
	}
	d.drafts = append(d.drafts, req)
	return "draft #" + string(rune('0'+len(d.drafts))), nil
}

func TestNewSessionIsEmpty(t *testing.T) {
	s := New("abc")
	snap := s.Snapshot()
	assert.Equal(t, "empty", snap.State)
	assert.False(t, snap.Submitted)
	assert.Equal(t, tone.Default(), snap.Tone)
	assert.Empty(t, snap.EmailText)
	assert.Empty(t, snap.Suggestions)
}

func TestGenerateBeforeSubmitFails(t *testing.T) {
	d := &stubDrafter{}
	s := New("abc")

	_, err := s.Apply(context.Background(), d, Generate{})
	require.ErrorIs(t, err, ErrNotSubmitted)
	assert.Empty(t, d.drafts)
	assert.Equal(t, StateEmpty, s.State())
}

func TestEndToEndLeaseScenario(t *testing.T) {
	d := &stubDrafter{}
	s := New("abc")
	ctx := context.Background()
	email := "My lease ends next month, what should I do?"

	snap, err := s.Apply(ctx, d, Submit{Email: email})
	require.NoError(t, err)
	assert.Equal(t, "submitted", snap.State)
	assert.Equal(t, email, snap.EmailText)
	assert.Equal(t, "- Reassuring: worried client", snap.Suggestions)
	assert.Equal(t, []string{email}, d.suggestions)

	snap, err = s.ApplyAll(ctx, d,
		SelectTone{Name: "Reassuring"},
		EditNotes{Text: "Renewal pending"},
		EditSignature{Text: "Jane Doe, Esq."},
	)
	require.NoError(t, err)
	assert.Equal(t, "submitted", snap.State, "editing fields must not change state")

	snap, err = s.Apply(ctx, d, Generate{})
	require.NoError(t, err)
	assert.Equal(t, "drafted", snap.State)
	assert.Equal(t, "draft #1", snap.Draft)

	require.Len(t, d.drafts, 1)
	assert.Equal(t, assistant.DraftRequest{
		Email:     email,
		Tone:      "Reassuring",
		CaseNotes: "Renewal pending",
		Signature: "Jane Doe, Esq.",
	}, d.drafts[0])
}

func TestRegenerateOverwritesDraft(t *testing.T) {
	d := &stubDrafter{}
	s := New("abc")
	ctx := context.Background()

	_, err := s.ApplyAll(ctx, d, Submit{Email: "hi"}, Generate{})
	require.NoError(t, err)
	snap, err := s.ApplyAll(ctx, d, SelectTone{Name: "Urgent"}, Generate{})
	require.NoError(t, err)

	assert.Equal(t, "drafted", snap.State)
	assert.Equal(t, "draft #2", snap.Draft)
	assert.True(t, snap.Submitted)
	assert.Equal(t, "Urgent", d.drafts[1].Tone)
}

func TestResubmitResetsToSubmitted(t *testing.T) {
	d := &stubDrafter{}
	s := New("abc")
	ctx := context.Background()

	_, err := s.ApplyAll(ctx, d, Submit{Email: "first"}, EditNotes{Text: "keep me"}, Generate{})
	require.NoError(t, err)

	snap, err := s.Apply(ctx, d, Submit{Email: "second"})
	require.NoError(t, err)
	assert.Equal(t, "submitted", snap.State)
	assert.Equal(t, "second", snap.EmailText)
	assert.Empty(t, snap.Draft)
	assert.Equal(t, "keep me", snap.Notes)
}

func TestFailedSubmitLeavesSessionUnchanged(t *testing.T) {
	d := &stubDrafter{}
	s := New("abc")
	ctx := context.Background()

	_, err := s.Apply(ctx, d, Submit{Email: "first"})
	require.NoError(t, err)

	d.suggestErr = errors.New("network down")
	snap, err := s.Apply(ctx, d, Submit{Email: "second"})
	require.Error(t, err)
	assert.Equal(t, "first", snap.EmailText)
	assert.Equal(t, "submitted", snap.State)
}

func TestFailedGenerateKeepsPreviousDraft(t *testing.T) {
	d := &stubDrafter{}
	s := New("abc")
	ctx := context.Background()

	_, err := s.ApplyAll(ctx, d, Submit{Email: "hi"}, Generate{})
	require.NoError(t, err)

	d.draftErr = errors.New("quota exceeded")
	snap, err := s.Apply(ctx, d, Generate{})
	require.Error(t, err)
	assert.Equal(t, "draft #1", snap.Draft)
	assert.Equal(t, "drafted", snap.State)
}

func TestSelectUnknownToneRejected(t *testing.T) {
	s := New("abc")
	_, err := s.Apply(context.Background(), &stubDrafter{}, SelectTone{Name: "Sarcastic"})
	require.ErrorIs(t, err, tone.ErrUnknownTone)
	assert.Equal(t, tone.Default(), s.Snapshot().Tone)
}

func TestGenerateUsesSubmittedEmailNotLaterEdits(t *testing.T) {
	d := &stubDrafter{}
	s := New("abc")
	ctx := context.Background()

	_, err := s.ApplyAll(ctx, d, Submit{Email: "submitted text"}, Generate{})
	require.NoError(t, err)
	assert.Equal(t, "submitted text", d.drafts[0].Email)
}

func TestStoreIsolatesSessions(t *testing.T) {
	st := NewStore(time.Hour, nil)
	d := &stubDrafter{}
	ctx := context.Background()

	a, created := st.GetOrCreate("")
	require.True(t, created)
	b, _ := st.GetOrCreate("unknown-id")
	require.NotEqual(t, a.ID, b.ID)

	_, err := a.Apply(ctx, d, Submit{Email: "alice's email"})
	require.NoError(t, err)

	assert.Equal(t, "alice's email", a.Snapshot().EmailText)
	assert.Empty(t, b.Snapshot().EmailText)
	assert.Equal(t, StateEmpty, b.State())

	again, created := st.GetOrCreate(a.ID)
	assert.False(t, created)
	assert.Same(t, a, again)
	assert.Equal(t, 2, st.Len())
}

func TestStoreExpiresIdleSessions(t *testing.T) {
	st := NewStore(time.Hour, nil)
	s, _ := st.GetOrCreate("")

	assert.Equal(t, 0, st.Expire())

	st.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 1, st.Expire())
	_, ok := st.Get(s.ID)
	assert.False(t, ok)
}

func TestConcurrentCommandsAreSerialized(t *testing.T) {
	d := &stubDrafter{}
	s := New("abc")
	ctx := context.Background()
	_, err := s.Apply(ctx, d, Submit{Email: "hi"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Apply(ctx, d, Generate{})
		}()
	}
	wg.Wait()

	assert.Len(t, d.drafts, 8)
	assert.True(t, strings.HasPrefix(s.Snapshot().Draft, "draft #"))
}
