package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cs-support/internal/domain"
)

// AskPort is the TUI-facing subset of the support service.
type AskPort interface {
	Ask(ctx context.Context, question string) domain.PipelineResult
	Documents() []string
}

// resultMsg delivers a finished pipeline run back into the update loop.
type resultMsg struct {
	result domain.PipelineResult
}

// Model is the Bubble Tea model for the representative console.
type Model struct {
	service  AskPort
	input    textinput.Model
	viewport viewport.Model
	result   *domain.PipelineResult
	status   string
	waiting  bool
	ready    bool
}

// New creates a new TUI model instance.
func New(service AskPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe the customer's question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	docs := service.Documents()
	return Model{
		service:  service,
		input:    ti,
		viewport: vp,
		status:   fmt.Sprintf("%d documents indexed. Ask a question.", len(docs)),
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderResult())
		return m, nil
	case resultMsg:
		m.waiting = false
		m.result = &msg.result
		m.status = fmt.Sprintf("Answered in %dms. Ask another question.", msg.result.Timings.TotalMs)
		m.viewport.SetContent(m.renderResult())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.waiting {
				m.waiting = true
				m.status = "Working through reformulation, retrieval, answer and validation..."
				m.input.SetValue("")
				service := m.service
				return m, func() tea.Msg {
					return resultMsg{result: service.Ask(context.Background(), q)}
				}
			}
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the console layout and current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Customer Service Support")
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	result := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + result + "\n" + input + "\n" + status
}

func (m Model) renderResult() string {
	if m.result == nil {
		return "No answer yet."
	}
	r := m.result
	var b strings.Builder
	b.WriteString(confidenceBadge(r.ConfidenceLevel, r.ConfidenceScore))
	b.WriteString(fmt.Sprintf("  intent=%s  source=%s\n\n", r.DetectedIntent, r.SourceDocument))
	b.WriteString(answerStyle.Render(r.Answer))
	if r.ReformulatedQuery != r.OriginalQuestion {
		b.WriteString("\n\n" + dimStyle.Render("searched for: "+r.ReformulatedQuery))
	}
	for i, p := range r.Passages {
		b.WriteString(fmt.Sprintf("\n\n%s\n%s",
			dimStyle.Render(fmt.Sprintf("passage %d  %s  relevance %.0f%%", i+1, p.Chunk.DocumentName, p.Relevance)),
			p.Chunk.Text))
	}
	return b.String()
}

func confidenceBadge(level string, score int) string {
	label := fmt.Sprintf(" %s %d/100 ", strings.ToUpper(level), score)
	switch level {
	case domain.ConfidenceHigh:
		return badgeStyle.Background(lipgloss.Color("2")).Render(label)
	case domain.ConfidenceMedium:
		return badgeStyle.Background(lipgloss.Color("3")).Render(label)
	default:
		return badgeStyle.Background(lipgloss.Color("1")).Render(label)
	}
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	answerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	badgeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Bold(true)
)
