package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
)

// QuoteDTO is the wire shape of a quote.
type QuoteDTO struct {
	ID        string `json:"id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Text      string `json:"text"`
	Author    string `json:"author,omitempty"`
	Category  string `json:"category,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// TaskDTO is the wire shape of a task.
type TaskDTO struct {
	ID        string `json:"id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Title     string `json:"title"`
	Notes     string `json:"notes,omitempty"`
	Done      bool   `json:"done"`
	Priority  int    `json:"priority"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// PlaylistDTO is the wire shape of a playlist.
type PlaylistDTO struct {
	ID        string   `json:"id,omitempty"`
	UserID    string   `json:"user_id,omitempty"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
	CreatedAt string   `json:"created_at,omitempty"`
}

// Codec converts between one entity type and its wire shape.
type Codec[E any] struct {
	Kind   models.Kind
	Decode func(data json.RawMessage) (E, error) // Decode normalizes a wire payload into the canonical entity
	Encode func(userID string, entity E) any     // Encode builds the wire payload for entity
}

// DecodeList decodes every element of a JSON array.
func (c Codec[E]) DecodeList(items []json.RawMessage) ([]E, error) {
	out := make([]E, 0, len(items))
	for i, raw := range items {
		e, err := c.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", c.Kind, i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// QuoteCodec normalizes [QuoteDTO] payloads.
var QuoteCodec = Codec[models.Quote]{
	Kind: models.KindQuote,
	Decode: func(data json.RawMessage) (models.Quote, error) {
		var dto QuoteDTO
		if err := json.Unmarshal(data, &dto); err != nil {
			return models.Quote{}, fmt.Errorf("%w: quote: %v", shared.ErrMalformedResponse, err)
		}
		return dto.Normalize()
	},
	Encode: func(userID string, q models.Quote) any { return QuoteToDTO(userID, q) },
}

// TaskCodec normalizes [TaskDTO] payloads.
var TaskCodec = Codec[models.Task]{
	Kind: models.KindTask,
	Decode: func(data json.RawMessage) (models.Task, error) {
		var dto TaskDTO
		if err := json.Unmarshal(data, &dto); err != nil {
			return models.Task{}, fmt.Errorf("%w: task: %v", shared.ErrMalformedResponse, err)
		}
		return dto.Normalize()
	},
	Encode: func(userID string, t models.Task) any { return TaskToDTO(userID, t) },
}

// PlaylistCodec normalizes [PlaylistDTO] payloads.
var PlaylistCodec = Codec[models.Playlist]{
	Kind: models.KindPlaylist,
	Decode: func(data json.RawMessage) (models.Playlist, error) {
		var dto PlaylistDTO
		if err := json.Unmarshal(data, &dto); err != nil {
			return models.Playlist{}, fmt.Errorf("%w: playlist: %v", shared.ErrMalformedResponse, err)
		}
		return dto.Normalize()
	},
	Encode: func(userID string, p models.Playlist) any { return PlaylistToDTO(userID, p) },
}

// Normalize converts the DTO into a confirmed [models.Quote].
func (d QuoteDTO) Normalize() (models.Quote, error) {
	created, err := parseTime(d.CreatedAt)
	if err != nil {
		return models.Quote{}, err
	}
	updated, err := parseTime(d.UpdatedAt)
	if err != nil {
		return models.Quote{}, err
	}
	return models.Quote{
		ID:        d.ID,
		Text:      strings.TrimSpace(d.Text),
		Author:    strings.TrimSpace(d.Author),
		Category:  strings.TrimSpace(d.Category),
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

// Normalize converts the DTO into a confirmed [models.Task].
func (d TaskDTO) Normalize() (models.Task, error) {
	created, err := parseTime(d.CreatedAt)
	if err != nil {
		return models.Task{}, err
	}
	updated, err := parseTime(d.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}
	return models.Task{
		ID:        d.ID,
		Title:     strings.TrimSpace(d.Title),
		Notes:     d.Notes,
		Done:      d.Done,
		Priority:  d.Priority,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

// Normalize converts the DTO into a confirmed [models.Playlist]. A null member list becomes empty.
func (d PlaylistDTO) Normalize() (models.Playlist, error) {
	created, err := parseTime(d.CreatedAt)
	if err != nil {
		return models.Playlist{}, err
	}
	members := d.MemberIDs
	if members == nil {
		members = []string{}
	}
	return models.Playlist{
		ID:        d.ID,
		Name:      strings.TrimSpace(d.Name),
		MemberIDs: members,
		CreatedAt: created,
	}, nil
}

func QuoteToDTO(userID string, q models.Quote) QuoteDTO {
	return QuoteDTO{
		ID:        remoteID(q.ID),
		UserID:    userID,
		Text:      q.Text,
		Author:    q.Author,
		Category:  q.Category,
		CreatedAt: formatTime(q.CreatedAt),
		UpdatedAt: formatTime(q.UpdatedAt),
	}
}

func TaskToDTO(userID string, t models.Task) TaskDTO {
	return TaskDTO{
		ID:        remoteID(t.ID),
		UserID:    userID,
		Title:     t.Title,
		Notes:     t.Notes,
		Done:      t.Done,
		Priority:  t.Priority,
		CreatedAt: formatTime(t.CreatedAt),
		UpdatedAt: formatTime(t.UpdatedAt),
	}
}

func PlaylistToDTO(userID string, p models.Playlist) PlaylistDTO {
	members := p.MemberIDs
	if members == nil {
		members = []string{}
	}
	return PlaylistDTO{
		ID:        remoteID(p.ID),
		UserID:    userID,
		Name:      p.Name,
		MemberIDs: members,
		CreatedAt: formatTime(p.CreatedAt),
	}
}

// remoteID hides temporary identifiers from the backend.
func remoteID(id string) string {
	if shared.IsTempID(id) {
		return ""
	}
	return id
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q", shared.ErrMalformedResponse, s)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
