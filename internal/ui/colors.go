// package ui styles CLI output
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	help  lipgloss.Style
}

// DefaultPalette returns the standard command-line palette.
func DefaultPalette() *Palette {
	return NewPalette("#1DB954", "#04B575", "#FF0000", "#626262")
}

func NewPalette(t, s, e, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		help:  NewEm(h),
	}
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Err(s string) string   { return p.err.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
