package sqlite

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/robalyx/warden/internal/export/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

type row struct {
	id        int64
	channel   string
	mode      string
	mask      string
	expiresAt string
	removedAt string
	remover   string
	reason    string
	nullable  []bool
	comments  int
}

// readRows loads every row of the entries table ordered by id.
func readRows(t *testing.T, path string) []row {
	t.Helper()

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	require.NoError(t, err)
	defer conn.Close()

	var rows []row
	err = sqlitex.ExecuteTransient(conn, `
		SELECT id, channel, mode, mask, expires_at, removed_at, remover, reason, comments
		FROM entries ORDER BY id`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			rows = append(rows, row{
				id:        stmt.ColumnInt64(0),
				channel:   stmt.ColumnText(1),
				mode:      stmt.ColumnText(2),
				mask:      stmt.ColumnText(3),
				expiresAt: stmt.ColumnText(4),
				removedAt: stmt.ColumnText(5),
				remover:   stmt.ColumnText(6),
				reason:    stmt.ColumnText(7),
				nullable: []bool{
					stmt.ColumnType(4) == sqlite.TypeNull,
					stmt.ColumnType(5) == sqlite.TypeNull,
					stmt.ColumnType(6) == sqlite.TypeNull,
					stmt.ColumnType(7) == sqlite.TypeNull,
				},
				comments: stmt.ColumnInt(8),
			})
			return nil
		},
	})
	require.NoError(t, err)

	return rows
}

func TestExporter_Export(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := created.Add(time.Hour)

	records := []*types.ExportRecord{
		{
			ID: 7, Channel: "#chan", Mode: "b", Mask: "*!*@spam.host", Setter: "op!o@host",
			CreatedAt: created, ExpiresAt: &expires, Reason: "spam", Comments: 3,
		},
		{
			ID: 9, Channel: "#chan", Mode: "q", Mask: "troll!*@*", Setter: "op!o@host",
			CreatedAt: created, RemovedAt: &expires, Remover: "other!o@host",
		},
	}

	dir := t.TempDir()
	require.NoError(t, New(dir).Export(records))

	rows := readRows(t, filepath.Join(dir, FileName))
	require.Len(t, rows, 2)

	assert.Equal(t, row{
		id: 7, channel: "#chan", mode: "b", mask: "*!*@spam.host",
		expiresAt: "2024-03-01T13:00:00Z", reason: "spam",
		nullable: []bool{false, true, true, false}, comments: 3,
	}, rows[0])
	assert.Equal(t, row{
		id: 9, channel: "#chan", mode: "q", mask: "troll!*@*",
		removedAt: "2024-03-01T13:00:00Z", remover: "other!o@host",
		nullable: []bool{true, false, false, true},
	}, rows[1])
}

func TestExporter_Batches(t *testing.T) {
	t.Parallel()

	records := make([]*types.ExportRecord, batchSize+5)
	for i := range records {
		records[i] = &types.ExportRecord{
			ID:        int64(i + 1),
			Channel:   "#big",
			Mode:      "b",
			Mask:      fmt.Sprintf("user%d!*@*", i),
			Setter:    "op!o@host",
			CreatedAt: time.Now(),
		}
	}

	dir := t.TempDir()
	exporter := New(dir)
	require.NoError(t, exporter.Export(records))

	// A second run replaces the database instead of failing on the existing table.
	require.NoError(t, exporter.Export(records[:1]))

	rows := readRows(t, filepath.Join(dir, FileName))
	assert.Len(t, rows, 1)

	require.NoError(t, exporter.Export(records))
	assert.Len(t, readRows(t, filepath.Join(dir, FileName)), batchSize+5)
}
