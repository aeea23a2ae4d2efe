package csv_test

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	exportCSV "github.com/robalyx/warden/internal/export/csv"
	"github.com/robalyx/warden/internal/export/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporter_Export(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := created.Add(24 * time.Hour)

	tests := []struct {
		name    string
		records []*types.ExportRecord
		want    [][]string
	}{
		{
			name: "active and removed entries",
			records: []*types.ExportRecord{
				{
					ID: 1, Channel: "#chan", Mode: "b", Mask: "*!*@spam.host",
					Setter: "op!o@host", CreatedAt: created, ExpiresAt: &expires,
					Reason: "spam, again", Comments: 2,
				},
				{
					ID: 2, Channel: "#other", Mode: "q", Mask: "troll!*@*",
					Setter: "op!o@host", CreatedAt: created, RemovedAt: &expires, Remover: "op2!o@host",
				},
			},
			want: [][]string{
				{
					"1", "#chan", "b", "*!*@spam.host", "op!o@host", "2024-03-01T12:00:00Z",
					"2024-03-02T12:00:00Z", "", "", "spam, again", "2",
				},
				{
					"2", "#other", "q", "troll!*@*", "op!o@host", "2024-03-01T12:00:00Z",
					"", "2024-03-02T12:00:00Z", "op2!o@host", "", "0",
				},
			},
		},
		{
			name:    "no entries",
			records: nil,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			require.NoError(t, exportCSV.New(dir).Export(tt.records))

			file, err := os.Open(filepath.Join(dir, exportCSV.FileName))
			require.NoError(t, err)
			defer file.Close()

			reader := csv.NewReader(file)

			header, err := reader.Read()
			require.NoError(t, err)
			assert.Equal(t, exportCSV.Header, header)

			for _, want := range tt.want {
				row, err := reader.Read()
				require.NoError(t, err)
				assert.Equal(t, want, row)
			}

			_, err = reader.Read()
			assert.Equal(t, io.EOF, err, "expected EOF after last record")
		})
	}
}

func TestExporter_ReplacesExistingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	exporter := exportCSV.New(dir)

	first := []*types.ExportRecord{{ID: 1, Channel: "#a", Mode: "b", CreatedAt: time.Now()}}
	require.NoError(t, exporter.Export(first))
	require.NoError(t, exporter.Export(nil))

	data, err := os.ReadFile(filepath.Join(dir, exportCSV.FileName))
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
