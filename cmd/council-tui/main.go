// council-tui is a terminal client for the AI Council server. It fans a
// question out to every persona over the HTTP API and renders their replies
// side by side in three columns.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultServer  = "http://127.0.0.1:8080"
	requestTimeout = 90 * time.Second
	inputCharLimit = 4000
	columnMinWidth = 24
)

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireFailedAttempt struct {
	Message string `json:"message"`
}

type wirePersona struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type personaState struct {
	Persona       wirePersona        `json:"persona"`
	Messages      []wireMessage      `json:"messages"`
	IsTyping      bool               `json:"is_typing"`
	Error         string             `json:"error,omitempty"`
	FailedAttempt *wireFailedAttempt `json:"failed_attempt,omitempty"`
}

type snapshot struct {
	Personas []personaState `json:"personas"`
}

type apiError struct {
	Message string `json:"error"`
	Code    string `json:"code"`
}

type councilClient struct {
	server string
	http   *http.Client
}

func newCouncilClient(server string) (*councilClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &councilClient{
		server: strings.TrimRight(server, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: requestTimeout,
		},
	}, nil
}

func (c *councilClient) post(path string, body any) (*snapshot, error) {
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(http.MethodPost, c.server+path, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return &snapshot{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("%s (%s)", apiErr.Message, apiErr.Code)
		}
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("invalid server response: %w", err)
	}
	return &snap, nil
}

func (c *councilClient) ask(question string) (*snapshot, error) {
	return c.post("/api/council/ask", map[string]string{"question": question})
}

func (c *councilClient) retry(personaID string) (*snapshot, error) {
	return c.post("/api/council/"+personaID+"/retry", nil)
}

func (c *councilClient) reset() (*snapshot, error) {
	return c.post("/api/council/reset", nil)
}

type snapshotMsg struct {
	snap *snapshot
	err  error
}

type model struct {
	client     *councilClient
	input      textinput.Model
	spinner    spinner.Model
	snap       *snapshot
	busy       bool
	statusLine string
	width      int
	height     int

	headerStyle lipgloss.Style
	userStyle   lipgloss.Style
	replyStyle  lipgloss.Style
	errStyle    lipgloss.Style
	mutedStyle  lipgloss.Style
	columnStyle lipgloss.Style
}

func newModel(client *councilClient) model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = inputCharLimit
	input.Placeholder = "Ask the council... (/retry <persona>, /reset, /quit)"
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#a78bfa"))

	return model{
		client:      client,
		input:       input,
		spinner:     sp,
		statusLine:  "ready",
		headerStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#a78bfa")),
		userStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#34d399")).Bold(true),
		replyStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("#e5e7eb")),
		errStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171")),
		mutedStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280")),
		columnStyle: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#374151")).Padding(0, 1),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m model) askCmd(question string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		snap, err := client.ask(question)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m model) retryCmd(personaID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		snap, err := client.retry(personaID)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m model) resetCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		snap, err := client.reset()
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case snapshotMsg:
		m.busy = false
		if msg.err != nil {
			m.statusLine = msg.err.Error()
			return m, nil
		}
		m.snap = msg.snap
		m.statusLine = "ready"
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			m.input.Reset()
			return m.submit(line)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) submit(line string) (tea.Model, tea.Cmd) {
	if strings.HasPrefix(line, "/") {
		parts := strings.Fields(line)
		switch parts[0] {
		case "/quit", "/q":
			return m, tea.Quit
		case "/reset":
			m.busy = true
			m.statusLine = "resetting..."
			return m, m.resetCmd()
		case "/retry":
			if len(parts) < 2 {
				m.statusLine = "usage: /retry <persona-id>"
				return m, nil
			}
			m.busy = true
			m.statusLine = "retrying " + parts[1] + "..."
			return m, m.retryCmd(parts[1])
		default:
			m.statusLine = "unknown command: " + parts[0]
			return m, nil
		}
	}
	m.busy = true
	m.statusLine = "consulting the council..."
	return m, m.askCmd(line)
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.headerStyle.Render("AI Council"))
	b.WriteString("\n\n")
	b.WriteString(m.renderColumns())
	b.WriteString("\n")
	if m.busy {
		b.WriteString(m.spinner.View() + " " + m.mutedStyle.Render(m.statusLine))
	} else {
		b.WriteString(m.mutedStyle.Render(m.statusLine))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	return b.String()
}

func (m model) renderColumns() string {
	if m.snap == nil || len(m.snap.Personas) == 0 {
		return m.mutedStyle.Render("No conversation yet. Ask a question to hear from every persona.")
	}
	width := m.width
	if width <= 0 {
		width = 120
	}
	colWidth := width/len(m.snap.Personas) - 4
	if colWidth < columnMinWidth {
		colWidth = columnMinWidth
	}

	columns := make([]string, 0, len(m.snap.Personas))
	for _, ps := range m.snap.Personas {
		columns = append(columns, m.renderPersona(ps, colWidth))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func (m model) renderPersona(ps personaState, width int) string {
	var b strings.Builder
	title := ps.Persona.Name
	if ps.Persona.Icon != "" {
		title = ps.Persona.Icon + " " + title
	}
	b.WriteString(m.headerStyle.Render(title))
	b.WriteString("\n")

	for _, msg := range ps.Messages {
		b.WriteString("\n")
		if msg.Role == "user" {
			b.WriteString(m.userStyle.Render("you"))
		} else {
			b.WriteString(m.mutedStyle.Render(ps.Persona.Name))
		}
		b.WriteString("\n")
		b.WriteString(m.replyStyle.Render(msg.Content))
		b.WriteString("\n")
	}

	if ps.IsTyping {
		b.WriteString("\n" + m.spinner.View() + m.mutedStyle.Render(" thinking..."))
	}
	if ps.Error != "" {
		b.WriteString("\n" + m.errStyle.Render(ps.Error))
		if ps.FailedAttempt != nil {
			b.WriteString("\n" + m.mutedStyle.Render("/retry "+ps.Persona.ID))
		}
	}

	return m.columnStyle.Width(width).Render(b.String())
}

func main() {
	server := flag.String("server", defaultServer, "council server base URL")
	flag.Parse()

	client, err := newCouncilClient(*server)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize client:", err)
		os.Exit(1)
	}

	p := tea.NewProgram(newModel(client), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
