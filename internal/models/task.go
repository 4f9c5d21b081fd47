package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/focusync/internal/shared"
)

// Task is a to-do item. Higher priority values sort first in priority views.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	Done      bool      `json:"done"`
	Priority  int       `json:"priority"`
	LocalOnly bool      `json:"local_only"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTask creates an unsaved task stamped with the current time.
func NewTask(title, notes string, priority int) Task {
	now := time.Now()
	return Task{Title: title, Notes: notes, Priority: priority, CreatedAt: now, UpdatedAt: now}
}

func (t Task) EntityID() string   { return t.ID }
func (t Task) Created() time.Time { return t.CreatedAt }
func (t Task) IsLocalOnly() bool  { return t.LocalOnly }

// SortValue returns a lexicographically comparable form of title, notes, done or priority.
//
// Priority is inverted and zero-padded so that ascending order lists the most urgent task first.
func (t Task) SortValue(field string) string {
	switch field {
	case "title":
		return strings.ToLower(t.Title)
	case "notes":
		return strings.ToLower(t.Notes)
	case "done":
		if t.Done {
			return "1"
		}
		return "0"
	case "priority":
		return fmt.Sprintf("%010d", 1_000_000_000-t.Priority)
	}
	return ""
}

func (t Task) WithID(id string) Task           { t.ID = id; return t }
func (t Task) WithLocalOnly(local bool) Task   { t.LocalOnly = local; return t }
func (t Task) WithCreatedAt(ts time.Time) Task { t.CreatedAt = ts; return t }
func (t Task) References() []string            { return nil }
func (t Task) Rewrite(_, _ string) Task        { return t }

func (t Task) Fields() Patch {
	return Patch{"title": t.Title, "notes": t.Notes, "done": t.Done, "priority": t.Priority}
}

// Apply returns a patched copy and the previous values of the touched fields.
func (t Task) Apply(p Patch) (Task, Patch, error) {
	next := t
	prev := make(Patch, len(p))
	for field, v := range p {
		switch field {
		case "title", "notes":
			s, err := patchString(field, v)
			if err != nil {
				return t, nil, err
			}
			if field == "title" {
				prev[field], next.Title = next.Title, s
			} else {
				prev[field], next.Notes = next.Notes, s
			}
		case "done":
			b, err := patchBool(field, v)
			if err != nil {
				return t, nil, err
			}
			prev[field], next.Done = next.Done, b
		case "priority":
			n, err := patchInt(field, v)
			if err != nil {
				return t, nil, err
			}
			prev[field], next.Priority = next.Priority, n
		default:
			return t, nil, unknownField(KindTask, field)
		}
	}
	if err := next.Validate(); err != nil {
		return t, nil, err
	}
	return next, prev, nil
}

// Validate checks that the task has a title.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: task title is required", shared.ErrInvalidInput)
	}
	return nil
}
