package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nathanbeddoewebdev/sdcomfy/internal/domain"
	"nathanbeddoewebdev/sdcomfy/internal/services/stack"
	"nathanbeddoewebdev/sdcomfy/internal/tui/components"
	"nathanbeddoewebdev/sdcomfy/internal/tui/styles"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// maxWatchEvents is how many recent events the watch view keeps.
const maxWatchEvents = 200

// --- Messages ---

type progressMsg stack.Progress

type awaitDoneMsg struct {
	stack *domain.Stack
	err   error
}

type elapsedTickMsg time.Time

// --- Stack watch model ---

type stackWatchModel struct {
	op       *stack.Operation
	provider string

	progress <-chan stack.Progress
	done     <-chan awaitDoneMsg

	spinner spinner.Model
	status  string
	events  []domain.StackEvent
	started time.Time
	now     time.Time

	result   *awaitDoneMsg
	detached bool

	width  int
	height int
}

// WatchResult is the outcome of a watched operation.
type WatchResult struct {
	Stack *domain.Stack
	Err   error
	// Detached is set when the user stopped watching before the operation
	// settled. The operation keeps running and can be resumed.
	Detached bool
}

// RunStackWatch awaits op in the background while rendering its status
// and events full-screen. Quitting early detaches from the operation
// without cancelling it on the engine side.
func RunStackWatch(ctx context.Context, svc *stack.Service, op *stack.Operation) (*WatchResult, error) {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	progress := make(chan stack.Progress, 16)
	done := make(chan awaitDoneMsg, 1)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		observe := func(p stack.Progress) {
			select {
			case progress <- p:
			case <-watchCtx.Done():
			}
		}
		s, err := svc.Await(watchCtx, op, observe)
		close(progress)
		done <- awaitDoneMsg{stack: s, err: err}
	}()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Blue)

	now := time.Now()
	m := stackWatchModel{
		op:       op,
		provider: svc.Provider().GetDisplayName() + " " + svc.Provider().Region(),
		progress: progress,
		done:     done,
		spinner:  sp,
		started:  op.StartedAt,
		now:      now,
	}
	if m.started.IsZero() {
		m.started = now
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		cancel()
		<-finished
		return nil, fmt.Errorf("failed to run stack watch: %w", err)
	}

	fm := final.(stackWatchModel)
	if fm.result != nil {
		return &WatchResult{Stack: fm.result.stack, Err: fm.result.err}, nil
	}

	// Detached: stop polling and let Await return so the record stays
	// pending.
	cancel()
	<-finished
	return &WatchResult{Detached: true}, nil
}

func (m stackWatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForProgress(), m.waitForDone(), elapsedTick())
}

func (m stackWatchModel) waitForProgress() tea.Cmd {
	ch := m.progress
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return progressMsg(p)
	}
}

func (m stackWatchModel) waitForDone() tea.Cmd {
	ch := m.done
	return func() tea.Msg {
		return <-ch
	}
}

func elapsedTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return elapsedTickMsg(t)
	})
}

func (m stackWatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.result == nil {
				m.detached = true
			}
			return m, tea.Quit
		case "enter":
			if m.result != nil {
				return m, tea.Quit
			}
		}
		return m, nil

	case progressMsg:
		m = m.applyProgress(stack.Progress(msg))
		return m, m.waitForProgress()

	case awaitDoneMsg:
		m.result = &msg
		if msg.stack != nil {
			m.status = msg.stack.Status
		} else if msg.err == nil {
			m.status = domain.StatusDeleteComplete
		}
		return m, nil

	case elapsedTickMsg:
		if m.result != nil {
			return m, nil
		}
		m.now = time.Time(msg)
		return m, elapsedTick()

	case spinner.TickMsg:
		if m.result != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m stackWatchModel) applyProgress(p stack.Progress) stackWatchModel {
	if p.Stack != nil {
		m.status = p.Stack.Status
	}
	m.events = append(m.events, p.Events...)
	if len(m.events) > maxWatchEvents {
		m.events = m.events[len(m.events)-maxWatchEvents:]
	}
	return m
}

func (m stackWatchModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	bindings := []components.KeyBinding{{Key: "q", Desc: "detach"}}
	if m.result != nil {
		bindings = []components.KeyBinding{{Key: "enter", Desc: "close"}}
	}
	screen := components.Screen{
		Width:         m.width,
		Height:        m.height,
		Breadcrumb:    fmt.Sprintf("stack %s", m.op.Kind),
		Target:        m.provider,
		Bindings:      bindings,
		Status:        m.statusMessage(),
		StatusIsError: m.result != nil && m.result.err != nil,
	}
	return screen.Render(m.renderContent)
}

func (m stackWatchModel) statusMessage() string {
	if m.result == nil {
		return ""
	}
	if m.result.err != nil {
		return m.result.err.Error()
	}
	return fmt.Sprintf("%s of %s finished.", m.op.Kind, m.op.StackName)
}

func (m stackWatchModel) renderContent(height int) string {
	var b strings.Builder

	status := m.status
	if status == "" {
		status = "waiting for first status"
	}
	indicator := m.spinner.View() + " "
	if m.result != nil {
		indicator = m.resultMark(status) + " "
	}
	elapsed := m.now.Sub(m.started).Truncate(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}

	fmt.Fprintf(&b, "  %s%s  %s  %s\n\n",
		indicator,
		styles.Title.Render(m.op.StackName),
		styles.StatusStyle(status).Render(status),
		styles.MutedText.Render(elapsed.String()),
	)

	lines := height - 3
	if lines < 1 {
		return b.String()
	}
	events := m.events
	if len(events) > lines {
		events = events[len(events)-lines:]
	}
	width := max(m.width-4, 10)
	for _, e := range events {
		b.WriteString("  " + ansi.Truncate(formatEvent(e), width, "…") + "\n")
	}
	return b.String()
}

func (m stackWatchModel) resultMark(status string) string {
	if m.result.err != nil || styles.StatusTone(status) == styles.ToneFailed {
		return styles.ErrorText.Render("✗")
	}
	return styles.SuccessText.Render("✓")
}

func formatEvent(e domain.StackEvent) string {
	line := fmt.Sprintf("%s  %-22s %s",
		styles.MutedText.Render(e.Timestamp.Local().Format("15:04:05")),
		e.LogicalID,
		styles.StatusStyle(e.Status).Render(e.Status),
	)
	if e.Reason != "" {
		line += "  " + styles.MutedText.Render(e.Reason)
	}
	return line
}
