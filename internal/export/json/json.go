package json

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/robalyx/warden/internal/export/types"
)

// FileName is the name of the json file written to the output directory.
const FileName = "entries.json"

// Exporter handles exporting entries to a json array.
type Exporter struct {
	outDir string
}

// New creates a new json exporter instance.
func New(outDir string) *Exporter {
	return &Exporter{outDir: outDir}
}

// Export writes all records to entries.json as an indented array.
func (e *Exporter) Export(records []*types.ExportRecord) error {
	if records == nil {
		records = []*types.ExportRecord{}
	}

	data, err := sonic.ConfigStd.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	if err := os.WriteFile(filepath.Join(e.outDir, FileName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write json file: %w", err)
	}

	return nil
}
