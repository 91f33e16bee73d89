// Package style provides shared colors and icons for terminal output.
package style

import "github.com/charmbracelet/lipgloss"

// Colors.
var (
	Iris   = lipgloss.Color("#8B5CF6")
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Dot     = "●"
	Circle  = "○"
	Skip    = "-"
)

// Hex returns the color as the hex string termenv expects.
func Hex(c lipgloss.Color) string {
	return string(c)
}
