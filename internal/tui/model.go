// Package tui is the interactive question-answering shell.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/parser"
)

// Service is the subset of the query executor the shell needs.
type Service interface {
	Ask(ctx context.Context, plan *parser.QueryPlan, opts executor.Options) (*executor.AnswerResult, error)
}

const help = "Type a question and press Enter. Commands: stats, rerank, quit."

type answerMsg struct {
	query  string
	result *executor.AnswerResult
	err    error
}

type Model struct {
	service  Service
	engines  executor.EngineProvider
	opts     executor.Options
	input    textinput.Model
	viewport viewport.Model
	content  string
	status   string
	busy     bool
	ready    bool
}

func New(service Service, engines executor.EngineProvider, opts executor.Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		service:  service,
		engines:  engines,
		opts:     opts,
		input:    ti,
		viewport: viewport.New(0, 0),
		content:  help,
		status:   "Ready.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.content)
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("%d sources for %q", len(msg.result.Sources), msg.query)
		m.setContent(Format(msg.result))
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			return m.submit()
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	q := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	switch strings.ToLower(q) {
	case "":
		return m, nil
	case "quit", "exit":
		return m, tea.Quit
	case "stats":
		m.setContent(m.renderStats())
		m.status = "Index statistics."
		return m, nil
	case "rerank":
		m.opts.Rerank = !m.opts.Rerank
		m.status = fmt.Sprintf("Rerank %s.", onOff(m.opts.Rerank))
		return m, nil
	}
	if m.busy {
		m.status = "Still answering the previous question."
		return m, nil
	}
	m.busy = true
	m.status = fmt.Sprintf("Searching for %q...", q)
	return m, m.ask(q)
}

func (m Model) ask(q string) tea.Cmd {
	service, opts := m.service, m.opts
	return func() tea.Msg {
		res, err := service.Ask(context.Background(), parser.Parse(q), opts)
		return answerMsg{query: q, result: res, err: err}
	}
}

func (m *Model) setContent(s string) {
	m.content = s
	m.viewport.SetContent(s)
	m.viewport.GotoTop()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("lexsearch")
	mode := dimStyle.Render(fmt.Sprintf("top-k %d, rerank %s", m.opts.Limit, onOff(m.opts.Rerank)))
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + mode + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderStats() string {
	e := m.engines.Engine()
	if e == nil {
		return "Index is not loaded."
	}
	return FormatStats(e.Stats())
}

// Format renders an answer and its sources as plain text.
func Format(res *executor.AnswerResult) string {
	var b strings.Builder
	b.WriteString(res.Answer)
	if len(res.Sources) == 0 {
		return b.String()
	}
	b.WriteString("\n\nSources:\n")
	for i, s := range res.Sources {
		fmt.Fprintf(&b, "%d. %s (%s) score=%.4f\n", i+1, s.Title, s.SourceID, s.Score)
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatStats(s indexer.Stats) string {
	return fmt.Sprintf("Passages:  %d\nTerms:     %d\nDocuments: %d\nSource:    %s",
		s.Passages, s.Terms, s.Documents, s.Source)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
