package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/rotation"
	"github.com/desertthunder/focusync/internal/timer"
)

// MsgKind enumerates all message types in the dashboard.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTick MsgKind = iota
	MsgTimerChanged
	MsgQuoteSelected
	MsgTasksChanged
	MsgFailed
)

// Kind returns the message type.
func (m Msg) Kind() MsgKind { return m.kind }

// tickMsg is the constructor for [MsgTick]
func tickMsg(t time.Time) Msg { return Msg{kind: MsgTick, data: t} }

// timerChangedMsg is the constructor for [MsgTimerChanged]
func timerChangedMsg(s timer.Snapshot) Msg { return Msg{kind: MsgTimerChanged, data: s} }

// quoteSelectedMsg is the constructor for [MsgQuoteSelected]. ok is false when there is nothing to show.
func quoteSelectedMsg(sel rotation.Selection[models.Quote], ok bool) Msg {
	return Msg{
		kind: MsgQuoteSelected,
		data: struct {
			selection rotation.Selection[models.Quote]
			ok        bool
		}{sel, ok},
	}
}

// tasksChangedMsg is the constructor for [MsgTasksChanged]
func tasksChangedMsg(tasks []models.Task) Msg { return Msg{kind: MsgTasksChanged, data: tasks} }

// failedMsg is the constructor for [MsgFailed]
func failedMsg(err error) Msg { return Msg{kind: MsgFailed, data: err} }
