// Package tui implements the optional watch mode: a live terminal view of the
// loop driven by engine lifecycle events. The engine runs in a goroutine and
// publishes events through an Observer that forwards them as Bubble Tea
// messages; the model itself holds no loop logic.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ralphloop/internal/loop"
)

// Message types sent by the observer bridge.
type iterationStartedMsg struct {
	iter    int
	maxIter int
	taskID  string
	repo    string
}

type iterationFinishedMsg struct {
	iter      int
	taskID    string
	kind      loop.FailureKind
	willRetry bool
	duration  time.Duration
}

type runFinishedMsg struct {
	summary *loop.Summary
}

type runErrorMsg struct {
	err error
}

// styles for the watch view.
type styles struct {
	title   lipgloss.Style
	status  lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		status:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// Model is the Bubble Tea model for watch mode.
type Model struct {
	styles  styles
	spin    spinner.Model
	history viewport.Model
	lines   []string

	status  string
	running bool
	done    bool
	summary *loop.Summary
	err     error

	width  int
	height int
	ready  bool
}

// NewModel creates the watch model.
func NewModel() *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	return &Model{
		styles: defaultStyles(),
		spin:   sp,
		status: "waiting for first iteration",
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.spin.Tick
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "j", "down", "k", "up":
			var cmd tea.Cmd
			m.history, cmd = m.history.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		historyHeight := msg.Height - 4
		if historyHeight < 5 {
			historyHeight = 5
		}
		if !m.ready {
			m.history = viewport.New(msg.Width, historyHeight)
			m.ready = true
		} else {
			m.history.Width = msg.Width
			m.history.Height = historyHeight
		}
		m.syncHistory()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case iterationStartedMsg:
		m.running = true
		m.status = fmt.Sprintf("[%d/%d] working on %s @%s",
			msg.iter, msg.maxIter, displayTask(msg.taskID), msg.repo)

	case iterationFinishedMsg:
		line := m.formatHistoryLine(msg)
		m.lines = append(m.lines, line)
		m.syncHistory()

	case runFinishedMsg:
		m.running = false
		m.done = true
		m.summary = msg.summary
		m.status = fmt.Sprintf("finished: %s", msg.summary.StopReason)

	case runErrorMsg:
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.err != nil {
		return m.styles.failure.Render(fmt.Sprintf("error: %v", m.err)) + "\n"
	}

	var b strings.Builder
	b.WriteString(m.styles.title.Render("ralph watch"))
	b.WriteString("\n")

	if m.ready {
		b.WriteString(m.history.View())
		b.WriteString("\n")
	}

	if m.done {
		b.WriteString(m.renderSummary())
		b.WriteString("\n")
		b.WriteString(m.styles.muted.Render("press q to quit"))
	} else {
		b.WriteString(m.spin.View())
		b.WriteString(" ")
		b.WriteString(m.styles.status.Render(m.status))
	}

	return b.String()
}

func (m *Model) formatHistoryLine(msg iterationFinishedMsg) string {
	mark := m.styles.success.Render("✓")
	label := ""
	if msg.kind != loop.FailNone {
		mark = m.styles.failure.Render("✗")
		label = " " + msg.kind.String()
		if msg.willRetry {
			label += " (will retry)"
		}
	}
	return fmt.Sprintf("%s [%d] %s%s %s",
		mark, msg.iter, displayTask(msg.taskID), label,
		m.styles.muted.Render(msg.duration.Round(time.Second).String()))
}

func (m *Model) renderSummary() string {
	s := m.summary
	line := fmt.Sprintf("%d iteration(s), %d commit(s), %d retry(ies)",
		s.Iterations, s.Commits, s.Retries)
	switch s.StopReason {
	case loop.StopCompleted:
		return m.styles.success.Render("all tasks complete: " + line)
	case loop.StopFailure:
		return m.styles.failure.Render(fmt.Sprintf("stopped on %s failure: %s (%s)",
			s.Failure, s.FailureDetail, line))
	default:
		return m.styles.status.Render(fmt.Sprintf("stopped (%s): %s", s.StopReason, line))
	}
}

func (m *Model) syncHistory() {
	if !m.ready {
		return
	}
	m.history.SetContent(strings.Join(m.lines, "\n"))
	m.history.GotoBottom()
}

func displayTask(taskID string) string {
	if taskID == "" {
		return "(bootstrap)"
	}
	return taskID
}

// observer forwards engine lifecycle events into the running program.
type observer struct {
	program *tea.Program
}

func (o *observer) IterationStarted(iter, maxIter int, taskID, repo string) {
	o.program.Send(iterationStartedMsg{iter: iter, maxIter: maxIter, taskID: taskID, repo: repo})
}

func (o *observer) IterationFinished(iter int, taskID string, kind loop.FailureKind, willRetry bool, duration time.Duration) {
	o.program.Send(iterationFinishedMsg{iter: iter, taskID: taskID, kind: kind, willRetry: willRetry, duration: duration})
}

func (o *observer) RunFinished(summary *loop.Summary) {
	o.program.Send(runFinishedMsg{summary: summary})
}
