package tui

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/sdcomfy/internal/services/auth"
	"nathanbeddoewebdev/sdcomfy/internal/tui/components"
	"nathanbeddoewebdev/sdcomfy/internal/tui/styles"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// --- Messages ---

type credentialsSavedMsg struct{}

type credentialsSaveErrorMsg struct {
	err error
}

// Field order of the login form.
const (
	fieldAccessKeyID = iota
	fieldSecretAccessKey
	fieldSessionToken
	fieldCount
)

// --- Auth login model ---

type authLoginModel struct {
	store auth.Store

	inputs []textinput.Model
	focus  int

	width  int
	height int

	err      error
	saved    bool
	quitting bool
}

// AuthLoginResult holds the outcome of the login TUI.
type AuthLoginResult struct {
	Saved       bool
	Credentials auth.AWSCredentials
}

func newAuthLoginModel(store auth.Store) authLoginModel {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.Width = 50
		inputs[i] = ti
	}

	inputs[fieldAccessKeyID].Placeholder = "AKIA..."
	inputs[fieldSecretAccessKey].Placeholder = "secret access key"
	inputs[fieldSecretAccessKey].EchoMode = textinput.EchoPassword
	inputs[fieldSecretAccessKey].EchoCharacter = '*'
	inputs[fieldSessionToken].Placeholder = "session token (optional)"
	inputs[fieldSessionToken].EchoMode = textinput.EchoPassword
	inputs[fieldSessionToken].EchoCharacter = '*'
	inputs[fieldAccessKeyID].Focus()

	return authLoginModel{store: store, inputs: inputs}
}

// RunAuthLogin starts the interactive AWS credentials login TUI.
func RunAuthLogin(store auth.Store) (*AuthLoginResult, error) {
	p := tea.NewProgram(newAuthLoginModel(store), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to run auth login: %w", err)
	}

	final := result.(authLoginModel)
	if final.quitting && !final.saved {
		return nil, nil
	}
	return &AuthLoginResult{Saved: final.saved, Credentials: final.credentials()}, nil
}

func (m authLoginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m authLoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case credentialsSavedMsg:
		m.saved = true
		return m, tea.Quit

	case credentialsSaveErrorMsg:
		m.err = msg.err
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m authLoginModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "tab", "down":
		return m.setFocus((m.focus + 1) % fieldCount), textinput.Blink
	case "shift+tab", "up":
		return m.setFocus((m.focus + fieldCount - 1) % fieldCount), textinput.Blink
	case "enter":
		if m.focus < fieldSecretAccessKey {
			return m.setFocus(m.focus + 1), textinput.Blink
		}
		creds := m.credentials()
		if err := creds.Validate(); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		return m, m.saveCredentials(creds)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	m.err = nil
	return m, cmd
}

func (m authLoginModel) setFocus(i int) authLoginModel {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
	return m
}

func (m authLoginModel) credentials() auth.AWSCredentials {
	return auth.AWSCredentials{
		AccessKeyID:     strings.TrimSpace(m.inputs[fieldAccessKeyID].Value()),
		SecretAccessKey: strings.TrimSpace(m.inputs[fieldSecretAccessKey].Value()),
		SessionToken:    strings.TrimSpace(m.inputs[fieldSessionToken].Value()),
	}
}

func (m authLoginModel) saveCredentials(creds auth.AWSCredentials) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		if err := auth.SaveAWSCredentials(store, creds); err != nil {
			return credentialsSaveErrorMsg{err: err}
		}
		return credentialsSavedMsg{}
	}
}

func (m authLoginModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	screen := components.Screen{
		Width:      m.width,
		Height:     m.height,
		Breadcrumb: "auth login",
		Target:     "AWS",
		Bindings: []components.KeyBinding{
			{Key: "tab", Desc: "next field"},
			{Key: "enter", Desc: "save"},
			{Key: "esc", Desc: "cancel"},
		},
	}
	return screen.Render(m.renderContent)
}

func (m authLoginModel) renderContent(height int) string {
	title := styles.Title.Render("AWS Access Key")
	hint := styles.MutedText.Render("Stored in the OS keychain and used instead of the default credential chain")

	labels := []string{"Access key ID", "Secret access key", "Session token"}
	rows := make([]string, 0, fieldCount*2)
	for i, label := range labels {
		style := styles.InputBlurred
		labelStyle := styles.MutedText
		if i == m.focus {
			style = styles.InputFocused
			labelStyle = styles.Label
		}
		rows = append(rows, labelStyle.Render(label), style.Render(m.inputs[i].View()))
	}

	var errLine string
	if m.err != nil {
		errLine = styles.ErrorText.Render(m.err.Error())
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{title, hint, ""}, append(rows, "", errLine)...)...,
	)
	return components.Centered(m.width, height, form)
}
