package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
)

var (
	_ models.Repository[models.Quote]    = (*QuoteRepository)(nil)
	_ models.Repository[models.Task]     = (*TaskRepository)(nil)
	_ models.Repository[models.Playlist] = (*PlaylistRepository)(nil)
)

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers order list results. They are not exposed over the API.
func NextSequence(db *sql.DB, table string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	_, err = tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// softDelete marks a row deleted. Deleting a missing or already deleted row fails with [shared.ErrEntityNotFound].
func softDelete(db *sql.DB, table string, kind models.Kind, id string) error {
	query := fmt.Sprintf("UPDATE %s SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", table)

	result, err := db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	return checkAffected(result, kind, id)
}

func checkAffected(result sql.Result, kind models.Kind, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s not found or already deleted", shared.ErrEntityNotFound, kind, id)
	}
	return nil
}

// createdAt keeps a caller-supplied creation time so imported entities retain their order.
func createdAt(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}

// ownerClause appends the user filter shared by every List.
func ownerClause(query string, args []any, userID string) (string, []any) {
	if userID == "" {
		return query, args
	}
	return query + " AND user_id = ?", append(args, userID)
}
