// Package tui is the terminal front end for drafting replies. It drives the
// same session commands as the web UI.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lexdraft/internal/session"
	"lexdraft/internal/tone"
)

var (
	titleStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Padding(0, 1).
			Bold(true)
	labelStyle   = lipgloss.NewStyle().Bold(true)
	focusedLabel = labelStyle.Foreground(lipgloss.Color("205"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	paneStyle    = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

type focus int

const (
	focusEmail focus = iota
	focusTone
	focusNotes
	focusSignature
	focusCount
)

type toneItem string

func (t toneItem) FilterValue() string { return string(t) }

type toneDelegate struct{}

func (toneDelegate) Height() int                         { return 1 }
func (toneDelegate) Spacing() int                        { return 0 }
func (toneDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (toneDelegate) Render(w io.Writer, m list.Model, index int, it list.Item) {
	name, _ := it.(toneItem)
	if index == m.Index() {
		fmt.Fprint(w, focusedLabel.Render("> "+string(name)))
		return
	}
	fmt.Fprint(w, "  "+string(name))
}

// resultMsg carries the outcome of a session command run off the UI loop.
type resultMsg struct {
	snap session.Snapshot
	err  error
}

type Model struct {
	ctx     context.Context
	drafter session.Drafter
	sess    *session.Session

	email     textarea.Model
	notes     textarea.Model
	signature textarea.Model
	tones     list.Model
	spin      spinner.Model

	focus focus
	busy  bool
	snap  session.Snapshot
	err   error

	width, height int
}

func newTextarea(placeholder string, height int) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(height)
	return ta
}

func New(ctx context.Context, d session.Drafter, sess *session.Session) Model {
	names := tone.Names()
	items := make([]list.Item, len(names))
	for i, n := range names {
		items[i] = toneItem(n)
	}
	tl := list.New(items, toneDelegate{}, 30, len(names))
	tl.SetShowTitle(false)
	tl.SetShowHelp(false)
	tl.SetShowStatusBar(false)
	tl.SetShowPagination(false)
	tl.SetFilteringEnabled(false)
	tl.KeyMap.Quit.SetEnabled(false)

	snap := sess.Snapshot()
	for i, n := range names {
		if n == snap.Tone {
			tl.Select(i)
		}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:       ctx,
		drafter:   d,
		sess:      sess,
		email:     newTextarea("Paste the client's email here", 8),
		notes:     newTextarea("Case notes (optional)", 3),
		signature: newTextarea("Signature (optional)", 3),
		tones:     tl,
		spin:      sp,
		snap:      snap,
	}
	m.email.SetValue(snap.EmailText)
	m.notes.SetValue(snap.Notes)
	m.signature.SetValue(snap.Signature)
	m.email.Focus()
	return m
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		w := max(msg.Width/2-6, 30)
		m.email.SetWidth(w)
		m.notes.SetWidth(w)
		m.signature.SetWidth(w)
		return m, nil

	case resultMsg:
		m.busy = false
		m.snap = msg.snap
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.setFocus((m.focus + 1) % focusCount)
			return m, nil
		case "shift+tab":
			m.setFocus((m.focus + focusCount - 1) % focusCount)
			return m, nil
		case "ctrl+s":
			return m.run(session.Submit{Email: m.email.Value()})
		case "ctrl+g":
			return m.run(
				session.SelectTone{Name: m.selectedTone()},
				session.EditNotes{Text: m.notes.Value()},
				session.EditSignature{Text: m.signature.Value()},
				session.Generate{},
			)
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusEmail:
		m.email, cmd = m.email.Update(msg)
	case focusTone:
		m.tones, cmd = m.tones.Update(msg)
	case focusNotes:
		m.notes, cmd = m.notes.Update(msg)
	case focusSignature:
		m.signature, cmd = m.signature.Update(msg)
	}
	return m, cmd
}

// run applies cmds to the session in the background. Input is ignored while
// a call is in flight.
func (m Model) run(cmds ...session.Command) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.busy = true
	m.err = nil

	ctx, sess, d := m.ctx, m.sess, m.drafter
	apply := func() tea.Msg {
		snap, err := sess.ApplyAll(ctx, d, cmds...)
		return resultMsg{snap: snap, err: err}
	}
	return m, tea.Batch(m.spin.Tick, apply)
}

func (m *Model) setFocus(f focus) {
	m.email.Blur()
	m.notes.Blur()
	m.signature.Blur()
	m.focus = f
	switch f {
	case focusEmail:
		m.email.Focus()
	case focusNotes:
		m.notes.Focus()
	case focusSignature:
		m.signature.Focus()
	}
}

func (m Model) selectedTone() string {
	if it, ok := m.tones.SelectedItem().(toneItem); ok {
		return string(it)
	}
	return tone.Default()
}

func (m Model) label(f focus, text string) string {
	if m.focus == f {
		return focusedLabel.Render(text)
	}
	return labelStyle.Render(text)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(" Legal Email Draft Assistant "))
	b.WriteString("\n\n")

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.label(focusEmail, "Client email"), m.email.View(), "",
		m.label(focusNotes, "Case notes"), m.notes.View(), "",
		m.label(focusSignature, "Signature"), m.signature.View(),
	)
	right := m.label(focusTone, "Tone") + "\n" + m.tones.View()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))
	b.WriteString("\n\n")

	if m.busy {
		b.WriteString(m.spin.View() + " Waiting for the model...\n\n")
	}
	if m.err != nil {
		b.WriteString(errStyle.Render("Error: "+m.err.Error()) + "\n\n")
	}
	if m.snap.Submitted {
		b.WriteString(labelStyle.Render("Suggested tones") + "\n")
		b.WriteString(paneStyle.Render(m.snap.Suggestions) + "\n\n")
	}
	if m.snap.Draft != "" {
		b.WriteString(labelStyle.Render("Draft reply") + "\n")
		b.WriteString(paneStyle.Render(m.snap.Draft) + "\n\n")
	}

	b.WriteString(helpStyle.Render("ctrl+s: submit • ctrl+g: generate • tab: next field • ctrl+c: quit"))
	return b.String()
}

// Run starts the full-screen drafting program on a fresh session.
func Run(ctx context.Context, d session.Drafter) error {
	p := tea.NewProgram(New(ctx, d, session.New("tui")), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
