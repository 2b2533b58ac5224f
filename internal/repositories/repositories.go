// package repositories provides SQLite-backed implementations of the application's storage interfaces.
package repositories

import (
	"database/sql"
	"fmt"
)

// withTx runs fn inside a transaction, committing when it returns nil.
func withTx(db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
