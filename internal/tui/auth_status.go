package tui

import (
	"strings"

	"nathanbeddoewebdev/sdcomfy/internal/services/auth"
	"nathanbeddoewebdev/sdcomfy/internal/tui/components"
	"nathanbeddoewebdev/sdcomfy/internal/tui/styles"

	tea "github.com/charmbracelet/bubbletea"
)

// --- Auth status model ---

type authStatusModel struct {
	sources []auth.Source

	width  int
	height int
}

// RunAuthStatus starts the full-window credential status TUI.
func RunAuthStatus(sources []auth.Source) error {
	p := tea.NewProgram(authStatusModel{sources: sources}, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m authStatusModel) Init() tea.Cmd {
	return nil
}

func (m authStatusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m authStatusModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	screen := components.Screen{
		Width:      m.width,
		Height:     m.height,
		Breadcrumb: "auth status",
		Target:     "AWS",
		Bindings:   []components.KeyBinding{{Key: "q", Desc: "quit"}},
	}
	return screen.Render(m.renderContent)
}

func (m authStatusModel) renderContent(height int) string {
	rows := make([]string, 0, len(m.sources))
	for _, src := range m.sources {
		marker, detail := "  ", styles.MutedText.Render(src.Detail)
		if src.Active {
			marker, detail = styles.AccentText.Render("> "), styles.SuccessText.Render(src.Detail)
		}
		rows = append(rows, marker+styles.Label.Width(14).Render(src.Name)+detail)
	}

	note := styles.MutedText.Render("> marks the source used for API calls")
	card := styles.Card.Width(56).Render(strings.Join(rows, "\n"))
	return components.Centered(m.width, height, styles.Title.Render("AWS Credentials"), "", card, note)
}
