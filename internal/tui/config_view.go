package tui

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/sdcomfy/internal/config"
	"nathanbeddoewebdev/sdcomfy/internal/tui/components"
	"nathanbeddoewebdev/sdcomfy/internal/tui/styles"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// --- Config messages ---

type configSavedMsg struct{}

type configSaveErrorMsg struct {
	err error
}

// --- Config model ---

type configViewModel struct {
	cfg  *config.Config
	keys []config.KeySpec

	cursor  int
	editing bool
	editor  textinput.Model

	width  int
	height int

	status  string
	isError bool
}

// RunConfigView starts the interactive config viewer/editor TUI.
func RunConfigView() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	m := configViewModel{
		cfg:  cfg,
		keys: config.Keys,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func (m configViewModel) Init() tea.Cmd {
	return nil
}

func (m configViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case configSavedMsg:
		m.editing = false
		m.status = "Configuration saved"
		m.isError = false
		return m, nil

	case configSaveErrorMsg:
		m.status = "Error: " + msg.err.Error()
		m.isError = true
		return m, nil
	}

	if m.editing {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m configViewModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m.handleEditKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.keys)-1 {
			m.cursor++
		}
	case "x":
		spec := m.keys[m.cursor]
		if spec.Get(m.cfg) == "" {
			return m, nil
		}
		if err := spec.Set(m.cfg, ""); err != nil {
			m.status = "Cannot reset " + spec.Name + ": " + err.Error()
			m.isError = true
			return m, nil
		}
		return m, m.saveConfig()
	case "enter", "e":
		spec := m.keys[m.cursor]
		ti := textinput.New()
		ti.SetValue(spec.Get(m.cfg))
		ti.Focus()
		ti.Width = 40
		ti.Placeholder = spec.Display(&config.Config{})
		m.editor = ti
		m.editing = true
		m.status = ""
		return m, textinput.Blink
	}

	return m, nil
}

func (m configViewModel) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.editor.Value())
		spec := m.keys[m.cursor]
		if err := spec.Set(m.cfg, value); err != nil {
			m.status = "Invalid " + spec.Name + ": " + err.Error()
			m.isError = true
			return m, nil
		}
		return m, m.saveConfig()
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m configViewModel) saveConfig() tea.Cmd {
	return func() tea.Msg {
		if err := m.cfg.Save(); err != nil {
			return configSaveErrorMsg{err: err}
		}
		return configSavedMsg{}
	}
}

func (m configViewModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	bindings := []components.KeyBinding{
		{Key: "j/k", Desc: "navigate"},
		{Key: "e", Desc: "edit"},
		{Key: "x", Desc: "reset to default"},
		{Key: "q", Desc: "quit"},
	}
	if m.editing {
		bindings = []components.KeyBinding{
			{Key: "enter", Desc: "save"},
			{Key: "esc", Desc: "cancel"},
		}
	}

	path, _ := config.Path()
	screen := components.Screen{
		Width:         m.width,
		Height:        m.height,
		Breadcrumb:    "config",
		Target:        path,
		Bindings:      bindings,
		Status:        m.status,
		StatusIsError: m.isError,
	}
	return screen.Render(m.renderContent)
}

const configLabelWidth = 20

func (m configViewModel) renderContent(height int) string {
	title := styles.Title.Render("Deployment defaults")

	rows := make([]string, 0, len(m.keys)+1)
	for i, spec := range m.keys {
		if i != m.cursor {
			rows = append(rows, "  "+styles.MutedText.Width(configLabelWidth).Render(spec.Name)+m.renderValue(spec, false))
			continue
		}

		row := styles.AccentText.Render("> ") + styles.Label.Width(configLabelWidth).Render(spec.Name)
		if m.editing {
			rows = append(rows, row+m.editor.View())
			continue
		}
		rows = append(rows, row+m.renderValue(spec, true),
			"    "+styles.MutedText.Italic(true).Render(spec.Description))
	}

	card := styles.Card.Width(68).Render(strings.Join(rows, "\n"))
	return components.Centered(m.width, height, title, "", card)
}

// renderValue dims values that come from a default rather than the file.
func (m configViewModel) renderValue(spec config.KeySpec, selected bool) string {
	text := spec.Display(m.cfg)
	switch {
	case spec.Get(m.cfg) == "":
		return styles.MutedText.Render(text)
	case selected:
		return styles.Value.Bold(true).Render(text)
	default:
		return styles.Value.Render(text)
	}
}
