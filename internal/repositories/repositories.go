package repositories

import (
	"database/sql"
	"fmt"
)

// NextSequence increments and returns the per-table sequence counter.
//
// Sequence numbers give entities a stable human-readable ordering (track #42,
// run #15). They stay internal; ids surfaced to users are uuids.
func NextSequence(db *sql.DB, table string) (int, error) {
	var sequence int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	if err := db.QueryRow(query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence: %w", table, err)
	}
	return sequence, nil
}

// ensureAffected maps a zero-row UPDATE to the repository's not-found
// sentinel. Soft-deleted rows are filtered by every UPDATE's WHERE clause, so
// a miss means the row is gone either way.
func ensureAffected(result sql.Result, missing error, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w or already deleted: %s", missing, id)
	}
	return nil
}
