package tui

import (
	"path/filepath"
	"strings"
	"testing"

	"nathanbeddoewebdev/sdcomfy/internal/config"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

func TestConfigView_RejectsInvalidValue(t *testing.T) {
	spec := config.Lookup("variant")
	if spec == nil {
		t.Fatal("variant key not registered")
	}

	editor := textinput.New()
	editor.SetValue("cloud")
	m := configViewModel{
		cfg:     &config.Config{},
		keys:    []config.KeySpec{*spec},
		editing: true,
		editor:  editor,
	}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got := updated.(configViewModel)
	if cmd != nil {
		t.Error("expected no save for an invalid value")
	}
	if !got.isError || !strings.Contains(got.status, "Invalid variant") {
		t.Errorf("expected validation error status, got %q", got.status)
	}
	if got.cfg.Variant != "" {
		t.Errorf("expected config to stay unchanged, got %q", got.cfg.Variant)
	}
}

func TestConfigView_ResetClearsAndSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	config.SetPath(path)
	t.Cleanup(config.ResetPath)

	m := configViewModel{
		cfg:    &config.Config{InstanceType: "g5.xlarge"},
		keys:   []config.KeySpec{*config.Lookup("instance-type")},
		width:  100,
		height: 30,
	}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	got := updated.(configViewModel)
	if cmd == nil {
		t.Fatal("expected a save command")
	}
	if got.cfg.InstanceType != "" {
		t.Errorf("expected instance type cleared, got %q", got.cfg.InstanceType)
	}

	updated, _ = got.Update(cmd())
	got = updated.(configViewModel)
	if got.status != "Configuration saved" || got.isError {
		t.Errorf("unexpected status %q (error=%v)", got.status, got.isError)
	}
	if view := got.View(); !strings.Contains(view, "g6e.xlarge (default)") {
		t.Errorf("expected default in view, got:\n%s", view)
	}

	saved, err := config.LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if saved.InstanceType != "" {
		t.Errorf("expected saved config to drop instance type, got %q", saved.InstanceType)
	}
}
