package tui

import (
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// NewRenderer returns a function that renders markdown using glamour.
// Plain output skips styling, for pipes and files.
func NewRenderer(plain bool) func(string) (string, error) {
	if plain {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(120),
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// StateBadge colors a session state for terminal output.
func StateBadge(state domain.SessionState) string {
	p := termenv.ColorProfile()
	color := "#9ca3af"
	switch state {
	case domain.StateCertified:
		color = "#22c55e"
	case domain.StateResolved:
		color = "#eab308"
	case domain.StateFailed:
		color = "#ef4444"
	}
	return termenv.String(string(state)).Foreground(p.Color(color)).Bold().String()
}
