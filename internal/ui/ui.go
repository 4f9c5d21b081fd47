package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/pipeline"
	"github.com/desertthunder/focusync/internal/rotation"
	"github.com/desertthunder/focusync/internal/timer"
)

// Timer is the focus timer driven by the dashboard.
type Timer interface {
	Observe() timer.Snapshot
	Start(d time.Duration, label string) (timer.Snapshot, error)
	Pause() (timer.Snapshot, error)
	Resume() (timer.Snapshot, error)
	Reset() timer.Snapshot
}

// QuoteSource selects the quote shown in the quote pane.
type QuoteSource interface {
	Next(activePlaylistID string) (rotation.Selection[models.Quote], bool)
}

// TaskList is the task collection shown in the task pane.
type TaskList interface {
	Merged() []models.Task
	Update(ctx context.Context, id string, patch models.Patch) (bool, *pipeline.Pending[models.Task])
}

// Options configures a [Model].
type Options struct {
	Duration time.Duration // Duration is used by the start key
	Label    string
	Playlist string        // Playlist overrides the record's active playlist for quote rotation
	Tick     time.Duration // Tick is the timer refresh interval, one second when zero
}

// Model represents the dashboard state.
type Model struct {
	ctx    context.Context
	timer  Timer
	quotes QuoteSource
	tasks  TaskList
	opts   Options

	snapshot  timer.Snapshot
	selection rotation.Selection[models.Quote]
	hasQuote  bool
	taskList  list.Model
	err       error

	width  int
	height int
	help   help.Model
	keys   keyMap
}

// NewModel creates a dashboard over the provided collaborators.
func NewModel(ctx context.Context, t Timer, quotes QuoteSource, tasks TaskList, opts Options) *Model {
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.Duration <= 0 {
		opts.Duration = 25 * time.Minute
	}

	l := list.New(nil, list.NewDefaultDelegate(), 60, 14)
	l.Title = "Tasks"
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return &Model{
		ctx:      ctx,
		timer:    t,
		quotes:   quotes,
		tasks:    tasks,
		opts:     opts,
		snapshot: t.Observe(),
		taskList: l,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init loads the first quote and task list and starts the tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.nextQuote(), m.loadTasks(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.taskList.SetSize(msg.Width-4, max(msg.Height-12, 4))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTick:
		m.snapshot = m.timer.Observe()
		return m, m.tick()
	case MsgTimerChanged:
		m.snapshot = msg.data.(timer.Snapshot)
	case MsgQuoteSelected:
		data := msg.data.(struct {
			selection rotation.Selection[models.Quote]
			ok        bool
		})
		m.selection, m.hasQuote = data.selection, data.ok
	case MsgTasksChanged:
		m.setTasks(msg.data.([]models.Task))
	case MsgFailed:
		m.err = msg.data.(error)
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.start):
		m.applyTimer(func() (timer.Snapshot, error) { return m.timer.Start(m.opts.Duration, m.opts.Label) })
		return m, nil
	case key.Matches(msg, m.keys.pause):
		if m.snapshot.Paused() {
			m.applyTimer(m.timer.Resume)
		} else {
			m.applyTimer(m.timer.Pause)
		}
		return m, nil
	case key.Matches(msg, m.keys.reset):
		m.err = nil
		m.snapshot = m.timer.Reset()
		return m, nil
	case key.Matches(msg, m.keys.next):
		return m, m.nextQuote()
	case key.Matches(msg, m.keys.toggle):
		return m, m.toggleSelected()
	}

	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	return m, cmd
}

// applyTimer runs fn immediately so the pane reflects the change before the next tick.
func (m *Model) applyTimer(fn func() (timer.Snapshot, error)) {
	snap, err := fn()
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.snapshot = snap
}

func (m *Model) toggleSelected() tea.Cmd {
	item, ok := m.taskList.SelectedItem().(taskItem)
	if !ok {
		return nil
	}

	applied, pending := m.tasks.Update(m.ctx, item.task.ID, models.Patch{"done": !item.task.Done})
	m.setTasks(m.tasks.Merged())
	if !applied {
		res, _ := pending.Wait(m.ctx)
		m.err = res.Err
		return nil
	}

	return func() tea.Msg {
		res, err := pending.Wait(m.ctx)
		if err != nil {
			return failedMsg(err)
		}
		if res.Err != nil {
			return failedMsg(res.Err)
		}
		return tasksChangedMsg(m.tasks.Merged())
	}
}

func (m *Model) setTasks(tasks []models.Task) {
	index := m.taskList.Index()
	m.taskList.SetItems(taskItems(tasks))
	if index < len(tasks) {
		m.taskList.Select(index)
	}
}

func (m *Model) nextQuote() tea.Cmd {
	return func() tea.Msg {
		sel, ok := m.quotes.Next(m.opts.Playlist)
		return quoteSelectedMsg(sel, ok)
	}
}

func (m *Model) loadTasks() tea.Cmd {
	return func() tea.Msg { return tasksChangedMsg(m.tasks.Merged()) }
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// View renders the three panes and the help line.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(Styles.Title("focusync"))
	b.WriteString("\n")
	b.WriteString(Styles.Timer(m.snapshot))
	b.WriteString("\n\n")
	b.WriteString(m.renderQuote())
	b.WriteString("\n\n")
	b.WriteString(m.taskList.View())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(Styles.Err(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderQuote() string {
	if !m.hasQuote {
		return Styles.Help("No quotes yet. Add one with `focusync quotes add`.")
	}

	q := m.selection.Entity
	line := fmt.Sprintf("\"%s\"", q.Text)
	if q.Author != "" {
		line += "\n  -- " + q.Author
	}
	if m.selection.Source == rotation.SourcePlaylist && m.selection.PlaylistName != "" {
		line += "\n" + Styles.Help("from "+m.selection.PlaylistName)
	}
	return line
}

// TimerChanged converts a snapshot into a message for [tea.Program.Send].
func TimerChanged(s timer.Snapshot) tea.Msg { return timerChangedMsg(s) }

// Watch forwards every timer change to p until the returned function is called.
func Watch(p *tea.Program, t *timer.Timer) func() {
	return t.Subscribe(func(s timer.Snapshot) { p.Send(TimerChanged(s)) })
}
