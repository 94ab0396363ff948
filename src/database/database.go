package database

import (
	"database/sql"
	"fmt"

	"github.com/username/painthouse/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// InitDB opens the database at databasePath into DB and ensures the schema.
func InitDB(databasePath string) error {
	db, err := Open(databasePath)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open opens a SQLite database and ensures the sheet_rows table exists.
func Open(databasePath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", databasePath, err)
	}
	// A single connection keeps position renumbering inside one writer.
	db.SetMaxOpenConns(1)

	logger.L.Info("Ensuring database schema", "databasePath", databasePath)

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS sheet_rows (
		sheet TEXT NOT NULL,
		position INTEGER NOT NULL,
		cells TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (sheet, position)
	);
	`
	if _, err := db.Exec(createTableStatement); err != nil {
		db.Close()
		logger.L.Error("failed to create tables", "error", err)
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	logger.L.Info("Database tables ensured/created.")
	return db, nil
}
