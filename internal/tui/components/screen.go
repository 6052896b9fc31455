// Package components holds render-only building blocks shared by the
// full-window sdcomfy views.
package components

import (
	"strings"

	"nathanbeddoewebdev/sdcomfy/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// minWidth is the narrowest terminal the header and footer render in.
const minWidth = 10

// KeyBinding is one entry of the footer help bar.
type KeyBinding struct {
	Key  string
	Desc string
}

// Screen is the chrome around a full-window view:
//
//	sdcomfy > stack create                AWS us-west-2
//	──────────────────────────────────────────────────
//	<body>
//	<status line>
//	──────────────────────────────────────────────────
//	q detach
type Screen struct {
	Width  int
	Height int

	// Breadcrumb follows the program name on the left of the header.
	Breadcrumb string
	// Target is shown on the right of the header, usually the provider
	// and region the view talks to.
	Target string

	Bindings []KeyBinding

	Status        string
	StatusIsError bool
}

// Render lays out the header, body, status line and footer. body is called
// with the number of lines left between them, never less than one.
func (s Screen) Render(body func(height int) string) string {
	var top, bottom []string
	if h := s.header(); h != "" {
		top = append(top, h)
	}
	if st := s.statusLine(); st != "" {
		bottom = append(bottom, st)
	}
	if f := s.footer(); f != "" {
		bottom = append(bottom, f)
	}

	used := 0
	for _, part := range append(append([]string{}, top...), bottom...) {
		used += lipgloss.Height(part)
	}

	parts := append(top, body(max(s.Height-used, 1)))
	parts = append(parts, bottom...)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (s Screen) header() string {
	if s.Width < minWidth {
		return ""
	}

	left := styles.Title.Foreground(styles.Blue).Render("sdcomfy")
	if s.Breadcrumb != "" {
		left += styles.MutedText.Render(" > ") + styles.Title.Render(s.Breadcrumb)
	}
	right := ""
	if s.Target != "" {
		right = styles.Subtitle.Render(s.Target)
	}

	gap := max(s.Width-4-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return rule(s.Width, false).Render(left + strings.Repeat(" ", gap) + right)
}

func (s Screen) footer() string {
	if s.Width < minWidth || len(s.Bindings) == 0 {
		return ""
	}

	parts := make([]string, len(s.Bindings))
	for i, b := range s.Bindings {
		parts[i] = styles.FormatKeyBinding(b.Key, b.Desc)
	}
	return rule(s.Width, true).Render(strings.Join(parts, styles.KeySepStyle.Render("  ")))
}

func (s Screen) statusLine() string {
	if s.Status == "" {
		return ""
	}
	style := styles.MutedText
	if s.StatusIsError {
		style = styles.ErrorText
	}
	return lipgloss.NewStyle().Width(s.Width).Padding(0, 2).Render(style.Render(s.Status))
}

// rule is a padded full-width bar with a single divider line above or
// below it.
func rule(width int, above bool) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 2).
		BorderStyle(lipgloss.Border{Top: "─", Bottom: "─"}).
		BorderTop(above).
		BorderBottom(!above).
		BorderForeground(styles.DimGray)
}

// Centered stacks blocks vertically and places them in the middle of a
// width x height area.
func Centered(width, height int, blocks ...string) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, blocks...))
}
