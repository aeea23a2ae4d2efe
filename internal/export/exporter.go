package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/warden/internal/database"
	dbTypes "github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/export/csv"
	"github.com/robalyx/warden/internal/export/json"
	"github.com/robalyx/warden/internal/export/sqlite"
	"github.com/robalyx/warden/internal/export/types"
	"github.com/robalyx/warden/pkg/utils"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format represents a supported export format.
type Format string

const (
	FormatSQLite Format = "sqlite"
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
)

const (
	// EngineVersion represents the version of the export engine.
	// This should be updated when making breaking changes to the export format.
	EngineVersion = "1.0.0"

	// ConfigFileName is the metadata file written next to the exports.
	ConfigFileName = "export_config.json"

	pageSize = 500
)

// Config holds the configuration for exports.
type Config struct {
	Description string   `json:"description"`
	Formats     []Format `json:"formats"`
	ActiveOnly  bool     `json:"activeOnly"`
}

// Exporter handles exporting tracked entries.
type Exporter struct {
	db     database.Client
	outDir string
	config *Config
	logger *zap.Logger
	now    func() time.Time
}

// New creates a new exporter instance. All formats are written when none are configured.
func New(db database.Client, outDir string, config *Config, logger *zap.Logger) *Exporter {
	if len(config.Formats) == 0 {
		config.Formats = []Format{FormatSQLite, FormatCSV, FormatJSON}
	}

	return &Exporter{
		db:     db,
		outDir: outDir,
		config: config,
		logger: logger.Named("exporter"),
		now:    time.Now,
	}
}

// ExportAll loads every entry and writes it in each configured format.
func (e *Exporter) ExportAll(ctx context.Context) error {
	e.logger.Info("Starting export",
		zap.String("outDir", e.outDir),
		zap.Any("formats", e.config.Formats),
		zap.Bool("activeOnly", e.config.ActiveOnly),
		zap.String("engineVersion", EngineVersion))

	records, err := e.loadRecords(ctx)
	if err != nil {
		return err
	}

	e.logger.Info("Loaded entries", zap.Int("count", len(records)))

	if err := e.writeConfig(len(records)); err != nil {
		return err
	}

	p := pool.New().WithErrors().WithContext(ctx)
	for _, format := range e.config.Formats {
		p.Go(func(_ context.Context) error {
			start := time.Now()
			if err := e.export(format, records); err != nil {
				return fmt.Errorf("failed to export %s format: %w", format, err)
			}

			e.logger.Info("Wrote export",
				zap.String("format", string(format)),
				zap.Duration("duration", time.Since(start)))

			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return err
	}

	e.logger.Info("Export completed", zap.String("outDir", e.outDir))

	return nil
}

// loadRecords pages through entries in id order and joins channel names and comment counts.
func (e *Exporter) loadRecords(ctx context.Context) ([]*types.ExportRecord, error) {
	channels, err := e.db.Model().Channel().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get channels: %w", err)
	}

	names := make(map[int64]string, len(channels))
	for _, channel := range channels {
		names[channel.ID] = channel.Name
	}

	var (
		records []*types.ExportRecord
		afterID int64
	)

	for {
		if utils.ContextGuard(ctx) {
			return nil, ctx.Err()
		}

		entries, err := e.db.Model().Entry().GetAfter(ctx, afterID, pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to get entries after %d: %w", afterID, err)
		}

		if len(entries) == 0 {
			break
		}

		ids := make([]int64, len(entries))
		for i, entry := range entries {
			ids[i] = entry.ID
		}

		counts, err := e.db.Model().Comment().CountByEntries(ctx, ids)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			if e.config.ActiveOnly && !entry.IsActive() {
				continue
			}
			records = append(records, toRecord(entry, names[entry.ChannelID], counts[entry.ID]))
		}

		afterID = entries[len(entries)-1].ID
		if len(entries) < pageSize {
			break
		}
	}

	return records, nil
}

// writeConfig saves export metadata alongside the data files.
func (e *Exporter) writeConfig(count int) error {
	jsonConfig := struct {
		*Config

		EngineVersion string    `json:"engineVersion"`
		ExportedAt    time.Time `json:"exportedAt"`
		Entries       int       `json:"entries"`
	}{
		Config:        e.config,
		EngineVersion: EngineVersion,
		ExportedAt:    e.now().UTC(),
		Entries:       count,
	}

	configData, err := sonic.MarshalIndent(jsonConfig, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal export config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(e.outDir, ConfigFileName), configData, 0o600); err != nil {
		return fmt.Errorf("failed to write export config: %w", err)
	}

	return nil
}

// export handles exporting data in the specified format.
func (e *Exporter) export(format Format, records []*types.ExportRecord) error {
	var exporter interface {
		Export(records []*types.ExportRecord) error
	}

	switch format {
	case FormatSQLite:
		exporter = sqlite.New(e.outDir)
	case FormatCSV:
		exporter = csv.New(e.outDir)
	case FormatJSON:
		exporter = json.New(e.outDir)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return exporter.Export(records)
}

func toRecord(entry *dbTypes.Entry, channel string, comments int) *types.ExportRecord {
	record := &types.ExportRecord{
		ID:        entry.ID,
		Channel:   channel,
		Mode:      entry.Mode.String(),
		Mask:      entry.MaskOrEmpty(),
		Setter:    entry.Setter,
		CreatedAt: entry.CreatedAt,
		ExpiresAt: entry.ExpiresAt,
		RemovedAt: entry.RemovedAt,
		Comments:  comments,
	}
	if entry.Remover != nil {
		record.Remover = *entry.Remover
	}
	if entry.Reason != nil {
		record.Reason = *entry.Reason
	}

	return record
}
