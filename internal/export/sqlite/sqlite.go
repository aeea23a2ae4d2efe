package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robalyx/warden/internal/export/types"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// FileName is the name of the database written to the output directory.
const FileName = "entries.db"

const batchSize = 1000

// Exporter handles exporting entries to a SQLite database.
type Exporter struct {
	outDir string
}

// New creates a new SQLite exporter instance.
func New(outDir string) *Exporter {
	return &Exporter{outDir: outDir}
}

// Export writes all records to entries.db, replacing any previous file.
func (e *Exporter) Export(records []*types.ExportRecord) error {
	path := filepath.Join(e.outDir, FileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing file %s: %w", FileName, err)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	defer conn.Close()

	err = sqlitex.ExecuteScript(conn, `
		CREATE TABLE entries (
			id INTEGER PRIMARY KEY,
			channel TEXT NOT NULL,
			mode TEXT NOT NULL,
			mask TEXT NOT NULL,
			setter TEXT NOT NULL,
			created_at TEXT NOT NULL,
			expires_at TEXT,
			removed_at TEXT,
			remover TEXT,
			reason TEXT,
			comments INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX entries_channel_idx ON entries (channel);
	`, nil)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))
		if err := insertBatch(conn, records[i:end]); err != nil {
			return err
		}
	}

	return nil
}

// insertBatch inserts records inside a single transaction.
func insertBatch(conn *sqlite.Conn, records []*types.ExportRecord) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer endFn(&err)

	for _, record := range records {
		err = sqlitex.Execute(conn, `
			INSERT INTO entries (id, channel, mode, mask, setter, created_at,
				expires_at, removed_at, remover, reason, comments)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{
					record.ID,
					record.Channel,
					record.Mode,
					record.Mask,
					record.Setter,
					record.CreatedAt.UTC().Format(time.RFC3339),
					nullable(types.FormatTime(record.ExpiresAt)),
					nullable(types.FormatTime(record.RemovedAt)),
					nullable(record.Remover),
					nullable(record.Reason),
					record.Comments,
				},
			})
		if err != nil {
			return fmt.Errorf("failed to insert record %d: %w", record.ID, err)
		}
	}

	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
