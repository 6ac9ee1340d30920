package tui

import (
	"github.com/aretw0/tickstory/pkg/sender"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown answers using glamour.
// The style follows the terminal background unless style names a glamour theme.
func NewRenderer(style string, width int) (sender.RenderFunc, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if style != "" {
		opts = []glamour.TermRendererOption{glamour.WithStandardStyle(style)}
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}
