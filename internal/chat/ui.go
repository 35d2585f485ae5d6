package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.design/x/clipboard"

	"github.com/serapieum/docent/internal/util"
)

var (
	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("5")).
			MarginTop(1).
			PaddingLeft(1)

	botStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("2")).
			MarginTop(1).
			PaddingLeft(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			MarginTop(1).
			PaddingLeft(1)

	toolLogStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			MarginLeft(2).
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Italic(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// ChatMessage holds one rendered history entry.
type ChatMessage struct {
	Role     string
	Text     string
	ToolLogs []ToolExecutionLog
	IsError  bool
}

type model struct {
	client    *OllamaClient
	textInput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	isLoading bool
	rendered  string
	width     int
	height    int

	messages     []ChatMessage
	showToolLogs bool
	lastAnswer   string
	statusMsg    string

	// Input history navigation
	history      []string
	historyIndex int
	historyDraft string
}

type responseMsg struct {
	content  string
	toolLogs []ToolExecutionLog
	err      error
}

type statusClearMsg struct{}
type clipboardDoneMsg struct{ err error }

func initialModel(client *OllamaClient) model {
	ti := textinput.New()
	ti.Placeholder = "Ask about your documents... (Ctrl+O: Toggle Tools, Ctrl+P: Copy)"
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = 50

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().PaddingRight(2)

	return model{
		client:    client,
		textInput: ti,
		viewport:  vp,
		spinner:   s,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg { return statusClearMsg{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		cmd   tea.Cmd
	)

	m.textInput, tiCmd = m.textInput.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 4
		vpHeight := msg.Height - 4
		if vpHeight < 0 {
			vpHeight = 0
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
		// Re-render everything so word wrapping matches the new width
		m.rebuildView()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyCtrlO:
			m.showToolLogs = !m.showToolLogs
			m.rebuildView()
			state := "hidden"
			if m.showToolLogs {
				state = "visible"
			}
			m.statusMsg = fmt.Sprintf("Tool details %s", state)
			return m, clearStatusAfter(2 * time.Second)

		case tea.KeyCtrlP:
			if m.lastAnswer != "" {
				m.statusMsg = "Copying to clipboard..."
				return m, copyToClipboardCmd(m.lastAnswer)
			}

		case tea.KeyEnter:
			if m.isLoading {
				return m, nil
			}
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}

			m.history = append(m.history, input)
			m.historyIndex = len(m.history)
			m.historyDraft = ""

			userMsg := ChatMessage{Role: "You", Text: input}
			m.messages = append(m.messages, userMsg)
			m.appendView(userMsg)

			m.textInput.Reset()
			m.isLoading = true
			m.statusMsg = ""

			return m, tea.Batch(
				m.spinner.Tick,
				func() tea.Msg {
					resp, logs, err := m.client.Chat(input)
					return responseMsg{content: resp, toolLogs: logs, err: err}
				},
			)

		case tea.KeyUp:
			if m.historyIndex > 0 {
				if m.historyIndex == len(m.history) {
					m.historyDraft = m.textInput.Value()
				}
				m.historyIndex--
				m.setInput(m.history[m.historyIndex])
			}

		case tea.KeyDown:
			if m.historyIndex < len(m.history) {
				m.historyIndex++
				if m.historyIndex == len(m.history) {
					m.setInput(m.historyDraft)
				} else {
					m.setInput(m.history[m.historyIndex])
				}
			}
		}

	case responseMsg:
		m.isLoading = false
		var botMsg ChatMessage

		if msg.err != nil {
			util.Debug("chat response error: %v", msg.err)
			botMsg = ChatMessage{Role: "Error", Text: msg.err.Error(), IsError: true}
		} else {
			botMsg = ChatMessage{Role: "docent", Text: msg.content, ToolLogs: msg.toolLogs}
			m.lastAnswer = msg.content
		}

		m.messages = append(m.messages, botMsg)
		m.appendView(botMsg)
		m.textInput.Focus()
		return m, textinput.Blink

	case clipboardDoneMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Clipboard error: %v", msg.err)
			return m, clearStatusAfter(3 * time.Second)
		}
		m.statusMsg = "Copied to clipboard!"
		return m, clearStatusAfter(2 * time.Second)

	case statusClearMsg:
		m.statusMsg = ""

	case spinner.TickMsg:
		if m.isLoading {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m *model) setInput(s string) {
	m.textInput.SetValue(s)
	m.textInput.SetCursor(len(s))
}

// rebuildView re-renders the entire history (used for toggles and resize).
func (m *model) rebuildView() {
	m.rendered = ""
	for i, msg := range m.messages {
		if i > 0 {
			m.rendered += "\n" + dividerStyle.Render(strings.Repeat("─", m.width/2)) + "\n"
		}
		m.renderMessage(msg)
	}
	m.viewport.SetContent(m.rendered)
	m.viewport.GotoBottom()
}

// appendView renders a single new message.
func (m *model) appendView(msg ChatMessage) {
	if len(m.messages) > 1 {
		m.rendered += "\n" + dividerStyle.Render(strings.Repeat("─", m.width/2)) + "\n"
	}
	m.renderMessage(msg)
	m.viewport.SetContent(m.rendered)
	m.viewport.GotoBottom()
}

func (m *model) renderMessage(msg ChatMessage) {
	var style lipgloss.Style
	switch msg.Role {
	case "You":
		style = userStyle
	case "Error":
		style = errorStyle
	default:
		style = botStyle
	}

	body := ""
	if m.showToolLogs && len(msg.ToolLogs) > 0 {
		var toolText strings.Builder
		toolText.WriteString("\n")
		for _, log := range msg.ToolLogs {
			argsJSON, _ := json.Marshal(log.Args)
			toolText.WriteString(fmt.Sprintf("%s(%s)\n", log.Name, string(argsJSON)))
		}
		body += toolLogStyle.Render(toolText.String()) + "\n"
	}

	if msg.Role == "docent" {
		body += m.renderMarkdown(msg.Text)
	} else {
		body += fmt.Sprintf("\n%s\n", msg.Text)
	}

	m.rendered += fmt.Sprintf("%s\n%s", style.Render(msg.Role), body)
}

// renderMarkdown renders assistant answers with glamour, falling back to
// plain text when the renderer is unavailable.
func (m *model) renderMarkdown(text string) string {
	if text == "" {
		return "(No content)\n"
	}

	width := m.width - 4
	if width < 20 {
		width = 20
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text + "\n"
	}
	rendered, err := renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return strings.TrimSpace(rendered) + "\n"
}

func (m model) View() string {
	status := " "
	if m.isLoading {
		status = m.spinner.View() + " Thinking..."
	} else if m.statusMsg != "" {
		status = statusStyle.Render(m.statusMsg)
	}

	return fmt.Sprintf(
		"%s\n%s\n%s",
		m.viewport.View(),
		status,
		m.textInput.View(),
	)
}

// copyToClipboardCmd writes the last answer to the system clipboard without
// blocking the UI loop.
func copyToClipboardCmd(content string) tea.Cmd {
	return func() tea.Msg {
		if strings.TrimSpace(content) == "" {
			return clipboardDoneMsg{err: fmt.Errorf("empty content")}
		}

		// Init fails when the platform has no clipboard support
		if err := clipboard.Init(); err != nil {
			return clipboardDoneMsg{err: fmt.Errorf("clipboard init failed: %v", err)}
		}

		select {
		case <-clipboard.Write(clipboard.FmtText, []byte(content)):
			return clipboardDoneMsg{}
		case <-time.After(time.Second):
			// The cgo path can hang; give up rather than freeze the UI
			return clipboardDoneMsg{err: fmt.Errorf("timeout waiting for clipboard write")}
		}
	}
}
