package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
)

const quoteColumns = `id, text, author, category, created_at, updated_at`

// QuoteRepository implements [models.Repository] for quotes.
type QuoteRepository struct {
	db *sql.DB
}

// NewQuoteRepository creates a new QuoteRepository with the given database connection
func NewQuoteRepository(db *sql.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// Create inserts a quote owned by userID with a generated ID and sequence
func (r *QuoteRepository) Create(userID string, q models.Quote) (models.Quote, error) {
	if err := q.Validate(); err != nil {
		return models.Quote{}, fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "quotes")
	if err != nil {
		return models.Quote{}, fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now().UTC()
	q.ID = shared.GenerateID()
	q.LocalOnly = false
	q.CreatedAt = createdAt(q.CreatedAt, now)
	q.UpdatedAt = now

	query := `
		INSERT INTO quotes (id, sequence, user_id, text, author, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, q.ID, sequence, userID, q.Text, q.Author, q.Category, q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return models.Quote{}, fmt.Errorf("failed to insert quote: %w", err)
	}

	return q, nil
}

// Get retrieves a quote by ID, excluding soft-deleted quotes
func (r *QuoteRepository) Get(id string) (models.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE id = ? AND deleted_at IS NULL`

	q, err := scanQuote(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Quote{}, fmt.Errorf("%w: quote %s", shared.ErrEntityNotFound, id)
	}
	return q, err
}

// Update applies patch to a stored quote
func (r *QuoteRepository) Update(id string, patch models.Patch) (models.Quote, error) {
	current, err := r.Get(id)
	if err != nil {
		return models.Quote{}, err
	}

	q, _, err := current.Apply(patch)
	if err != nil {
		return models.Quote{}, fmt.Errorf("validation failed: %w", err)
	}
	q.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE quotes
		SET text = ?, author = ?, category = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, q.Text, q.Author, q.Category, q.UpdatedAt, id)
	if err != nil {
		return models.Quote{}, fmt.Errorf("failed to update quote: %w", err)
	}
	if err := checkAffected(result, models.KindQuote, id); err != nil {
		return models.Quote{}, err
	}

	return q, nil
}

// Delete soft-deletes a quote by ID
func (r *QuoteRepository) Delete(id string) error {
	return softDelete(r.db, "quotes", models.KindQuote, id)
}

// List retrieves the quotes owned by userID in creation order, excluding soft-deleted quotes.
//
// Supported criteria are "author" and "category" (exact match).
func (r *QuoteRepository) List(userID string, criteria map[string]any) ([]models.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE deleted_at IS NULL`
	query, args := ownerClause(query, nil, userID)

	for _, field := range []string{"author", "category"} {
		if v, ok := criteria[field].(string); ok && v != "" {
			query += " AND " + field + " = ?"
			args = append(args, v)
		}
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	quotes := []models.Quote{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return quotes, nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanQuote(row scanner) (models.Quote, error) {
	var q models.Quote
	err := row.Scan(&q.ID, &q.Text, &q.Author, &q.Category, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Quote{}, err
	}
	if err != nil {
		return models.Quote{}, fmt.Errorf("failed to scan quote: %w", err)
	}
	return q, nil
}
