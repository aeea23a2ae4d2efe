package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/robalyx/warden/internal/export/types"
)

// FileName is the name of the csv file written to the output directory.
const FileName = "entries.csv"

// Header is the column layout of the csv file.
var Header = []string{
	"id", "channel", "mode", "mask", "setter", "created_at",
	"expires_at", "removed_at", "remover", "reason", "comments",
}

// Exporter handles exporting entries to a csv file.
type Exporter struct {
	outDir string
}

// New creates a new csv exporter instance.
func New(outDir string) *Exporter {
	return &Exporter{outDir: outDir}
}

// Export writes all records to entries.csv, replacing any previous file.
func (e *Exporter) Export(records []*types.ExportRecord) error {
	path := filepath.Join(e.outDir, FileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing file %s: %w", FileName, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, record := range records {
		if err := writer.Write([]string{
			strconv.FormatInt(record.ID, 10),
			record.Channel,
			record.Mode,
			record.Mask,
			record.Setter,
			record.CreatedAt.UTC().Format(time.RFC3339),
			types.FormatTime(record.ExpiresAt),
			types.FormatTime(record.RemovedAt),
			record.Remover,
			record.Reason,
			strconv.Itoa(record.Comments),
		}); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	return nil
}
