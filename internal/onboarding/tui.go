package onboarding

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lexdraft/internal/credentials"
	"lexdraft/internal/llm"
	"lexdraft/internal/middleware"
)

// --- Styles ---

var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	titleStyle   = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Padding(0, 1).
			Bold(true)

	docStyle = lipgloss.NewStyle().Padding(1, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(lipgloss.Color("205")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Padding(0, 1)

	windowStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1)
)

// --- Types ---

type state int

const (
	stateProvider state = iota
	stateAPIKey
	stateModel
	stateMiddlewares
	stateDone
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title }

// savedMsg reports the outcome of writing config and secrets.
type savedMsg struct{ err error }

type TUIModel struct {
	configPath  string
	secretsPath string

	state       state
	provider    string
	model       string
	apiKey      string
	baseURL     string
	middlewares []MiddlewareSetting

	list     list.Model
	input    textinput.Model
	err      error
	saved    bool
	quitting bool
	width    int
	height   int

	cursor int // for middleware list

	// listModels returns the model choices for a provider.
	listModels func(provider, baseURL string) []list.Item
}

// --- Model discovery ---

type ollamaModel struct {
	Name string `json:"name"`
}

type ollamaResponse struct {
	Models []ollamaModel `json:"models"`
}

func fetchOllamaModels(baseURL string) []list.Item {
	fallback := item{title: llm.ProviderOllama.DefaultModel(), desc: "Default model (Ollama not responding)"}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(strings.TrimRight(baseURL, "/") + "/api/tags")
	if err != nil {
		return []list.Item{fallback}
	}
	defer resp.Body.Close()

	var data ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil || len(data.Models) == 0 {
		return []list.Item{fallback}
	}

	items := make([]list.Item, len(data.Models))
	for i, m := range data.Models {
		items[i] = item{title: m.Name, desc: "Local Ollama model"}
	}
	return items
}

func defaultModels(provider, baseURL string) []list.Item {
	switch llm.Provider(provider) {
	case llm.ProviderOllama:
		return fetchOllamaModels(baseURL)
	case llm.ProviderAnthropic:
		return []list.Item{
			item{title: "claude-3-5-sonnet-latest", desc: "Balanced Anthropic model"},
			item{title: "claude-3-5-haiku-latest", desc: "Fast Anthropic model"},
		}
	case llm.ProviderGemini:
		return []list.Item{
			item{title: "gemini-2.5-flash", desc: "Fast Google model"},
			item{title: "gemini-2.5-pro", desc: "Powerful Google model"},
		}
	default:
		return []list.Item{
			item{title: "gpt-3.5-turbo", desc: "Default drafting model"},
			item{title: "gpt-4o-mini", desc: "Fast OpenAI model"},
			item{title: "gpt-4o", desc: "Best OpenAI model"},
		}
	}
}

// --- Initial Model ---

// NewTUIModel builds the setup wizard. Empty paths fall back to the defaults.
func NewTUIModel(configPath, secretsPath string) TUIModel {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	if secretsPath == "" {
		secretsPath = credentials.DefaultSecretsPath
	}

	providers := []list.Item{
		item{title: string(llm.ProviderOpenAI), desc: "OpenAI GPT models (requires OPENAI_API_KEY)"},
		item{title: string(llm.ProviderAnthropic), desc: "Claude models (requires ANTHROPIC_API_KEY)"},
		item{title: string(llm.ProviderGemini), desc: "Google Gemini models (requires GOOGLE_API_KEY)"},
		item{title: string(llm.ProviderOllama), desc: "Local execution via Ollama"},
	}

	l := list.New(providers, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select AI Provider"
	l.SetShowHelp(false)

	ti := textinput.New()
	ti.Placeholder = "Enter API Key"
	ti.EchoMode = textinput.EchoPassword
	ti.Focus()

	mwList := middleware.Registered()
	settings := make([]MiddlewareSetting, len(mwList))
	for i, mw := range mwList {
		settings[i] = MiddlewareSetting{ID: mw.ID(), Enabled: true}
	}

	return TUIModel{
		configPath:  configPath,
		secretsPath: secretsPath,
		state:       stateProvider,
		list:        l,
		input:       ti,
		middlewares: settings,
		listModels:  defaultModels,
	}
}

func (m TUIModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-10, msg.Height-15)

	case savedMsg:
		m.err = msg.err
		m.saved = msg.err == nil
		return m, nil
	}

	var cmd tea.Cmd

	switch m.state {
	case stateProvider:
		m.list, cmd = m.list.Update(msg)
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "enter" {
			i, ok := m.list.SelectedItem().(item)
			if ok {
				m.provider = i.title
				if llm.Provider(m.provider).APIKeyName() == "" {
					m.baseURL = "http://localhost:11434"
					m.toModelList()
				} else {
					m.state = stateAPIKey
					m.input.Prompt = llm.Provider(m.provider).APIKeyName() + ": "
				}
			}
		}

	case stateAPIKey:
		m.input, cmd = m.input.Update(msg)
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "enter" {
			m.apiKey = strings.TrimSpace(m.input.Value())
			if m.apiKey == "" {
				m.err = fmt.Errorf("%s is required", llm.Provider(m.provider).APIKeyName())
				return m, cmd
			}
			m.err = nil
			m.toModelList()
		}

	case stateModel:
		m.list, cmd = m.list.Update(msg)
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "enter" {
			i, ok := m.list.SelectedItem().(item)
			if ok {
				m.model = i.title
				if len(m.middlewares) == 0 {
					m.state = stateDone
					return m, m.saveConfig()
				}
				m.state = stateMiddlewares
			}
		}

	case stateMiddlewares:
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "up", "k":
				if m.cursor > 0 {
					m.cursor--
				}
			case "down", "j":
				if m.cursor < len(m.middlewares)-1 {
					m.cursor++
				}
			case " ":
				m.middlewares[m.cursor].Enabled = !m.middlewares[m.cursor].Enabled
			case "enter":
				m.state = stateDone
				return m, m.saveConfig()
			}
		}

	case stateDone:
		if _, ok := msg.(tea.KeyMsg); ok && (m.saved || m.err != nil) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, cmd
}

func (m *TUIModel) toModelList() {
	m.state = stateModel
	m.list.SetItems(m.listModels(m.provider, m.baseURL))
	m.list.Title = "Select Model"
	m.list.ResetSelected()
}

func (m TUIModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(" lexdraft setup "))
	s.WriteString("\n\n")

	tabs := []string{"Provider", "API Key", "Model", "Middlewares", "Finish"}
	var renderedTabs []string
	for i, t := range tabs {
		if i == int(m.state) {
			renderedTabs = append(renderedTabs, activeTabStyle.Render(t))
		} else {
			renderedTabs = append(renderedTabs, inactiveTabStyle.Render(t))
		}
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...))
	s.WriteString("\n\n")

	var content string
	switch m.state {
	case stateProvider, stateModel:
		content = m.list.View()
	case stateAPIKey:
		content = "\n" + m.input.View() + "\n\n" +
			helpStyle.Render(fmt.Sprintf("Stored in %s (owner-only). Press enter to continue", m.secretsPath))
	case stateMiddlewares:
		var mwView strings.Builder
		mwView.WriteString("Toggle middlewares with [SPACE], Press [ENTER] to finish.\n\n")
		for i, mw := range m.middlewares {
			cursor := " "
			if m.cursor == i {
				cursor = ">"
			}
			checked := " "
			if mw.Enabled {
				checked = "x"
			}
			line := fmt.Sprintf("%s [%s] %s", cursor, checked, mw.ID)
			if m.cursor == i {
				mwView.WriteString(focusedStyle.Render(line) + "\n")
			} else {
				mwView.WriteString(line + "\n")
			}
		}
		content = mwView.String()
	case stateDone:
		switch {
		case m.saved:
			content = fmt.Sprintf("\nSaved configuration to %s.\nDone! Press any key to exit.", m.configPath)
		case m.err == nil:
			content = fmt.Sprintf("\nSaving configuration to %s...", m.configPath)
		}
	}
	if m.err != nil {
		content += "\n\n" + errStyle.Render("Error: "+m.err.Error())
	}

	s.WriteString(windowStyle.Width(max(m.width-10, 40)).Render(content))

	if m.state != stateDone {
		s.WriteString("\n\n" + helpStyle.Render("ctrl+c: quit • ↑/↓: navigate • enter: select"))
	}

	return docStyle.Render(s.String())
}

// saveConfig overlays the wizard's choices onto the existing config.
func (m TUIModel) saveConfig() tea.Cmd {
	provider, model, baseURL := m.provider, m.model, m.baseURL
	middlewares := append([]MiddlewareSetting(nil), m.middlewares...)

	keyName := llm.Provider(m.provider).APIKeyName()
	apiKey, configPath, secretsPath := m.apiKey, m.configPath, m.secretsPath

	return func() tea.Msg {
		cfg, err := LoadFromFile(configPath)
		if errors.Is(err, os.ErrNotExist) {
			cfg, err = Defaults(), nil
		}
		if err != nil {
			return savedMsg{err: fmt.Errorf("reading existing config: %w", err)}
		}
		cfg.Provider = provider
		cfg.Model = model
		cfg.BaseURL = baseURL
		cfg.SecretsFile = secretsPath
		cfg.Middlewares = middlewares

		if keyName != "" && apiKey != "" {
			store, err := credentials.LoadFileStore(secretsPath)
			if err != nil {
				return savedMsg{err: err}
			}
			if err := store.Save(keyName, apiKey); err != nil {
				return savedMsg{err: fmt.Errorf("saving %s: %w", keyName, err)}
			}
		}
		if err := cfg.SaveToFile(configPath); err != nil {
			return savedMsg{err: fmt.Errorf("saving config: %w", err)}
		}
		return savedMsg{}
	}
}

// --- Runner ---

func RunTUI(configPath, secretsPath string) error {
	p := tea.NewProgram(NewTUIModel(configPath, secretsPath), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(TUIModel); ok && m.err != nil {
		return m.err
	}
	return nil
}
