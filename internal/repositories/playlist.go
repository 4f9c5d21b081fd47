package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
)

const playlistColumns = `id, name, member_ids, created_at`

// PlaylistRepository implements [models.Repository] for playlists.
//
// Member identifiers are stored as a JSON array; the backend does not check that they exist.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a playlist owned by userID with a generated ID and sequence
func (r *PlaylistRepository) Create(userID string, p models.Playlist) (models.Playlist, error) {
	if err := p.Validate(); err != nil {
		return models.Playlist{}, fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return models.Playlist{}, fmt.Errorf("failed to generate sequence: %w", err)
	}

	members, err := encodeMembers(p.MemberIDs)
	if err != nil {
		return models.Playlist{}, err
	}

	now := time.Now().UTC()
	p.ID = shared.GenerateID()
	p.LocalOnly = false
	p.CreatedAt = createdAt(p.CreatedAt, now)
	if p.MemberIDs == nil {
		p.MemberIDs = []string{}
	}

	query := `
		INSERT INTO playlists (id, sequence, user_id, name, member_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, p.ID, sequence, userID, p.Name, members, p.CreatedAt, now)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("failed to insert playlist: %w", err)
	}

	return p, nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ? AND deleted_at IS NULL`

	p, err := scanPlaylist(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Playlist{}, fmt.Errorf("%w: playlist %s", shared.ErrPlaylistNotFound, id)
	}
	return p, err
}

// Update applies patch to a stored playlist. A member_ids entry replaces the whole list.
func (r *PlaylistRepository) Update(id string, patch models.Patch) (models.Playlist, error) {
	current, err := r.Get(id)
	if err != nil {
		return models.Playlist{}, err
	}

	p, _, err := current.Apply(patch)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("validation failed: %w", err)
	}

	members, err := encodeMembers(p.MemberIDs)
	if err != nil {
		return models.Playlist{}, err
	}

	query := `
		UPDATE playlists
		SET name = ?, member_ids = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, p.Name, members, time.Now().UTC(), id)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("failed to update playlist: %w", err)
	}
	if err := checkAffected(result, models.KindPlaylist, id); err != nil {
		return models.Playlist{}, err
	}

	return p, nil
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	return softDelete(r.db, "playlists", models.KindPlaylist, id)
}

// List retrieves the playlists owned by userID in creation order, excluding soft-deleted playlists.
//
// The "name" criterion matches exactly.
func (r *PlaylistRepository) List(userID string, criteria map[string]any) ([]models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE deleted_at IS NULL`
	query, args := ownerClause(query, nil, userID)

	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND name = ?"
		args = append(args, name)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

func encodeMembers(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode members: %w", err)
	}
	return string(data), nil
}

func scanPlaylist(row scanner) (models.Playlist, error) {
	var (
		p       models.Playlist
		members string
	)

	err := row.Scan(&p.ID, &p.Name, &members, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Playlist{}, err
	}
	if err != nil {
		return models.Playlist{}, fmt.Errorf("failed to scan playlist: %w", err)
	}

	if err := json.Unmarshal([]byte(members), &p.MemberIDs); err != nil {
		return models.Playlist{}, fmt.Errorf("failed to decode members of playlist %s: %w", p.ID, err)
	}
	if p.MemberIDs == nil {
		p.MemberIDs = []string{}
	}
	return p, nil
}
