package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/fractured-truths/pkg/world"
)

const (
	PlaceHolderText = "type description, e.g. policy_change King raises tax"
	historyLimit    = 10
)

type feedKind int

const (
	feedSystem feedKind = iota
	feedNarrative
	feedAction
	feedError
)

type feedLine struct {
	kind feedKind
	text string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	api          *APIClient
	frames       <-chan world.Message
	view         *ViewResponse
	feed         []feedLine
	feedViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	loading      bool

	showQuitModal bool
	progressTick  int
}

type frameMsg struct {
	msg world.Message
	ok  bool
}

type actionDoneMsg struct {
	err error
}

type viewMsg struct {
	view *ViewResponse
	err  error
}

type infoMsg struct {
	lines []string
	err   error
}

type progressTickMsg struct{}

var (
	feedPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	narrativeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, api *APIClient, frames <-chan world.Message) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false

	feedVp := viewport.New(50, 20)
	feedVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:       cfg,
		api:          api,
		frames:       frames,
		textarea:     ta,
		feedViewport: feedVp,
		metaViewport: viewport.New(20, 20),
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.refreshView(), waitForFrame(m.frames))
}

func waitForFrame(frames <-chan world.Message) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-frames
		return frameMsg{msg: msg, ok: ok}
	}
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.feedViewport, vpCmd = m.feedViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		feedWidth, metaWidth := m.panelWidths()
		m.feedViewport.Width = feedWidth - 2
		m.feedViewport.Height = m.height - 7
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(feedWidth - 4)
		m.ready = true
		m.render()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			actionType, payload := parseAction(input)
			m.addLine(feedAction, "You: "+input)
			m.loading = true
			m.progressTick = 0
			m.render()
			return m, tea.Batch(m.sendAction(actionType, payload), progressTick())
		}

	case frameMsg:
		if !msg.ok {
			m.addLine(feedError, "Realtime connection closed.")
			m.render()
			return m, nil
		}
		m.applyFrame(msg.msg)
		m.render()
		return m, tea.Batch(waitForFrame(m.frames), m.refreshView())

	case actionDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.addLine(feedError, "Error: "+msg.err.Error())
		}
		m.render()
		return m, m.refreshView()

	case viewMsg:
		if msg.err != nil {
			m.addLine(feedError, "Error: "+msg.err.Error())
		} else {
			m.view = msg.view
		}
		m.render()

	case infoMsg:
		if msg.err != nil {
			m.addLine(feedError, "Error: "+msg.err.Error())
		}
		for _, line := range msg.lines {
			m.addLine(feedSystem, line)
		}
		m.render()

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.render()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.feedViewport, vpCmd = m.feedViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) addLine(kind feedKind, text string) {
	m.feed = append(m.feed, feedLine{kind: kind, text: text})
}

// applyFrame turns a realtime frame into feed lines. Frames carrying other
// players' narratives (global broadcast mode) are shown by display name.
func (m *ConsoleUI) applyFrame(msg world.Message) {
	switch msg.Type {
	case world.MessageHello:
		m.addLine(feedSystem, msg.Message)
	case world.MessageNarratives:
		if text, ok := msg.ByPlayer[m.config.PlayerID]; ok {
			m.addLine(feedNarrative, text)
		} else if msg.Event != nil {
			m.addLine(feedSystem, fmt.Sprintf("Something happened: %s", msg.Event.Type))
		}
		others := make([]string, 0, len(msg.ByPlayer))
		for id := range msg.ByPlayer {
			if id != m.config.PlayerID {
				others = append(others, id)
			}
		}
		sort.Strings(others)
		for _, id := range others {
			m.addLine(feedSystem, fmt.Sprintf("[%s] %s", shortID(id), msg.ByPlayer[id]))
		}
	}
}

func (m ConsoleUI) panelWidths() (int, int) {
	feedWidth := int(float64(m.width)*0.70) - 4
	return feedWidth, m.width - feedWidth - 6
}

// render rebuilds both viewports for the current width.
func (m *ConsoleUI) render() {
	width := m.feedViewport.Width - 6
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("FRACTURED TRUTHS") + "\n\n")
	content.WriteString("Describe an action as: <type> <description>. /help lists commands.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	for _, line := range m.feed {
		wrapped := wordwrap.String(line.text, width)
		switch line.kind {
		case feedNarrative:
			wrapped = narrativeStyle.Render(wrapped)
		case feedAction:
			wrapped = actionStyle.Render(wrapped)
		case feedError:
			wrapped = errorStyle.Render(wrapped)
		}
		content.WriteString(wrapped + "\n\n")
	}
	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.feedViewport.SetContent(content.String())
	m.feedViewport.GotoBottom()
	m.metaViewport.SetContent(writeMetadata(m.config, m.view, m.metaViewport.Width))
}

func writeMetadata(cfg *ConsoleConfig, view *ViewResponse, width int) string {
	if width < 10 {
		width = 10
	}
	var content strings.Builder
	content.WriteString(titleStyle.Render("YOUR VIEW") + "\n\n")
	content.WriteString("Player:\n" + shortID(cfg.PlayerID) + "...\n\n")

	if view == nil {
		content.WriteString("Loading...\n")
		return content.String()
	}
	content.WriteString("Name:\n" + view.DisplayName + "\n\n")

	if brief := view.View.String("brief"); brief != "" {
		content.WriteString("Brief:\n" + wordwrap.String(brief, width) + "\n\n")
	}
	if narrative := view.View.String(world.NarrativeKey); narrative != "" {
		content.WriteString("Latest:\n" + wordwrap.String(narrative, width) + "\n\n")
	}
	writeList(&content, "Rumors", view.View["rumors"], width)
	writeList(&content, "Visible", view.View["visibleEntities"], width)

	content.WriteString("Commands:\n")
	content.WriteString("• Enter: Act\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /copyid: Copy ID\n")
	content.WriteString("• Ctrl+C: Quit\n")
	return content.String()
}

// writeList renders a view array whose items are strings or small objects.
func writeList(b *strings.Builder, title string, raw any, width int) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return
	}
	b.WriteString(title + ":\n")
	for _, item := range items {
		var text string
		switch v := item.(type) {
		case string:
			text = v
		case map[string]any:
			parts := make([]string, 0, len(v))
			for _, k := range []string{"id", "factionId", "kind", "note", "text"} {
				if s, ok := v[k].(string); ok && s != "" {
					parts = append(parts, s)
				}
			}
			text = strings.Join(parts, " · ")
		default:
			text = fmt.Sprint(v)
		}
		b.WriteString(wordwrap.String("• "+text, width) + "\n")
	}
	b.WriteString("\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.Fields(input)[0])

	switch cmd {
	case "/help":
		m.addLine(feedSystem, `Commands:
• /help - Show this help
• /view - Refresh your view
• /players - List players
• /history - Show recent events
• /copyid - Copy your player id to the clipboard
• /quit - Quit

Anything else is an action: the first word is its type, the rest describes it.`)
	case "/view":
		m.render()
		return m, m.refreshView()
	case "/players":
		return m, m.listPlayers()
	case "/history":
		return m, m.listHistory()
	case "/copyid":
		if err := clipboard.WriteAll(m.config.PlayerID); err != nil {
			m.addLine(feedError, "Error: clipboard unavailable: "+err.Error())
		} else {
			m.addLine(feedSystem, "Player id copied to clipboard.")
		}
	case "/quit":
		m.showQuitModal = true
		return m, nil
	default:
		m.addLine(feedError, "Unknown command "+cmd)
	}
	m.render()
	return m, nil
}

func (m ConsoleUI) sendAction(actionType string, payload world.Document) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{err: m.api.Act(m.config.PlayerID, actionType, payload)}
	}
}

func (m ConsoleUI) refreshView() tea.Cmd {
	return func() tea.Msg {
		view, err := m.api.View(m.config.PlayerID)
		return viewMsg{view: view, err: err}
	}
}

func (m ConsoleUI) listPlayers() tea.Cmd {
	return func() tea.Msg {
		players, err := m.api.Players()
		if err != nil {
			return infoMsg{err: err}
		}
		lines := []string{fmt.Sprintf("%d players:", len(players))}
		for _, p := range players {
			alignment := string(p.Alignment)
			if alignment == "" {
				alignment = "unaligned"
			}
			lines = append(lines, fmt.Sprintf("• %s (%s) %s", p.DisplayName, alignment, shortID(p.ID)))
		}
		return infoMsg{lines: lines}
	}
}

func (m ConsoleUI) listHistory() tea.Cmd {
	return func() tea.Msg {
		events, err := m.api.History(historyLimit)
		if err != nil {
			return infoMsg{err: err}
		}
		if len(events) == 0 {
			return infoMsg{lines: []string{"No events yet."}}
		}
		lines := make([]string, 0, len(events))
		for _, evt := range events {
			desc := evt.Payload.String("description")
			lines = append(lines, strings.TrimSpace(fmt.Sprintf("#%d %s by %s %s", evt.Seq, evt.Type, shortID(evt.PlayerID), desc)))
		}
		return infoMsg{lines: lines}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave the realm?"))
	content.WriteString("\n\n")
	content.WriteString("Your player stays registered; rejoin with --player " + shortID(m.config.PlayerID) + "...")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	feedWidth, metaWidth := m.panelWidths()

	feedPanel := feedPanelStyle.Width(feedWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.feedViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(feedWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, feedPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.feedViewport.Width - 6
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
