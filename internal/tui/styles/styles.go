// Package styles holds the palette and text styles of the sdcomfy views.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	White   = lipgloss.Color("#E2E2E2")
	Gray    = lipgloss.Color("#888888")
	Muted   = lipgloss.Color("#555555")
	DimGray = lipgloss.Color("#444444")
	Blue    = lipgloss.Color("#5FAFFF")
	Green   = lipgloss.Color("#5FD787")
	Yellow  = lipgloss.Color("#FFD787")
	Red     = lipgloss.Color("#FF8787")
)

var (
	Title    = lipgloss.NewStyle().Bold(true).Foreground(White)
	Subtitle = lipgloss.NewStyle().Foreground(Gray)

	// Label and Value render name/value rows in cards.
	Label = lipgloss.NewStyle().Bold(true).Foreground(Gray)
	Value = lipgloss.NewStyle().Foreground(White)

	MutedText   = lipgloss.NewStyle().Foreground(Muted)
	AccentText  = lipgloss.NewStyle().Foreground(Blue)
	ErrorText   = lipgloss.NewStyle().Bold(true).Foreground(Red)
	SuccessText = lipgloss.NewStyle().Bold(true).Foreground(Green)
	WarningText = lipgloss.NewStyle().Bold(true).Foreground(Yellow)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(DimGray).
		Padding(1, 2)

	InputFocused = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Blue).
			Padding(0, 1)
	InputBlurred = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimGray).
			Padding(0, 1)

	KeySepStyle = lipgloss.NewStyle().Foreground(DimGray)
	keyStyle    = lipgloss.NewStyle().Bold(true).Foreground(Blue)
	keyDesc     = lipgloss.NewStyle().Foreground(Muted)
)

// FormatKeyBinding renders one footer hint such as "q detach".
func FormatKeyBinding(key, desc string) string {
	return keyStyle.Render(key) + " " + keyDesc.Render(desc)
}

// Tone groups stack and resource statuses by how they should read.
type Tone int

const (
	ToneUnknown Tone = iota
	TonePending
	ToneDone
	ToneFailed
)

// StatusTone classifies a stack or resource status. Any rollback counts as
// a failure even when the rollback itself completed.
func StatusTone(status string) Tone {
	switch {
	case strings.HasSuffix(status, "_FAILED"), strings.Contains(status, "ROLLBACK"):
		return ToneFailed
	case strings.HasSuffix(status, "_IN_PROGRESS"):
		return TonePending
	case strings.HasSuffix(status, "_COMPLETE"):
		return ToneDone
	default:
		return ToneUnknown
	}
}

// StatusStyle returns the style a status is printed in.
func StatusStyle(status string) lipgloss.Style {
	switch StatusTone(status) {
	case ToneFailed:
		return ErrorText
	case TonePending:
		return lipgloss.NewStyle().Foreground(Yellow)
	case ToneDone:
		return SuccessText
	default:
		return Subtitle
	}
}
