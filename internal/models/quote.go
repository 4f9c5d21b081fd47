package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/focusync/internal/shared"
)

// Quote is a saved quote with an optional author and category.
type Quote struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author,omitempty"`
	Category  string    `json:"category,omitempty"`
	LocalOnly bool      `json:"local_only"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewQuote creates an unsaved quote stamped with the current time.
func NewQuote(text, author, category string) Quote {
	now := time.Now()
	return Quote{Text: text, Author: author, Category: category, CreatedAt: now, UpdatedAt: now}
}

func (q Quote) EntityID() string   { return q.ID }
func (q Quote) Created() time.Time { return q.CreatedAt }
func (q Quote) IsLocalOnly() bool  { return q.LocalOnly }

// SortValue returns the lower-cased text, author or category.
func (q Quote) SortValue(field string) string {
	switch field {
	case "text":
		return strings.ToLower(q.Text)
	case "author":
		return strings.ToLower(q.Author)
	case "category":
		return strings.ToLower(q.Category)
	}
	return ""
}

func (q Quote) WithID(id string) Quote          { q.ID = id; return q }
func (q Quote) WithLocalOnly(local bool) Quote  { q.LocalOnly = local; return q }
func (q Quote) WithCreatedAt(t time.Time) Quote { q.CreatedAt = t; return q }
func (q Quote) References() []string            { return nil }
func (q Quote) Rewrite(_, _ string) Quote       { return q }

// Fields returns the patchable fields of the quote.
func (q Quote) Fields() Patch {
	return Patch{"text": q.Text, "author": q.Author, "category": q.Category}
}

// Apply validates every entry before changing anything, so a rejected patch leaves q untouched.
func (q Quote) Apply(p Patch) (Quote, Patch, error) {
	next := q
	prev := make(Patch, len(p))
	for field, v := range p {
		var target *string
		switch field {
		case "text":
			target = &next.Text
		case "author":
			target = &next.Author
		case "category":
			target = &next.Category
		default:
			return q, nil, unknownField(KindQuote, field)
		}
		s, err := patchString(field, v)
		if err != nil {
			return q, nil, err
		}
		prev[field], *target = *target, s
	}
	if err := next.Validate(); err != nil {
		return q, nil, err
	}
	return next, prev, nil
}

// Validate checks that the quote has text.
func (q Quote) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: quote text is required", shared.ErrInvalidInput)
	}
	return nil
}
