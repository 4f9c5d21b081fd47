package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/focusync/internal/timer"
)

// Styles is the default palette.
var Styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// interface Painter defines coloring text with [lipgloss] styles
type Painter interface {
	On(string, lipgloss.Color) string // Sets background color
	As(string, lipgloss.Color) string // Sets foreground color
}

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

func (p *Palette) On(s string, c lipgloss.Color) string { return lipgloss.NewStyle().Background(c).Render(s) }
func (p *Palette) As(s string, c lipgloss.Color) string { return lipgloss.NewStyle().Foreground(c).Render(s) }

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Err(s string) string   { return p.err.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

// Timer renders a one-line timer status, e.g. "running 24:59 write".
func (p *Palette) Timer(s timer.Snapshot) string {
	var status string
	switch {
	case s.Status == timer.Running:
		status = p.ok.Render("running")
	case s.Status == timer.Completed:
		status = p.title.UnsetMarginBottom().Render("completed")
	case s.Paused():
		status = p.warn.Render("paused")
	default:
		status = p.help.Render("idle")
	}

	line := fmt.Sprintf("%s %s", status, Clock(s.Remaining))
	if s.Label != "" {
		line += " " + p.help.Render(s.Label)
	}
	return line
}

// Clock formats d as mm:ss, or h:mm:ss past an hour. Partial seconds round up so a running timer never shows 00:00.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	if secs >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
