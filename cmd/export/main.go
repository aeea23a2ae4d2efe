package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robalyx/warden/internal/export"
	"github.com/robalyx/warden/internal/setup"
	"github.com/robalyx/warden/internal/setup/telemetry"
	"github.com/urfave/cli/v3"
)

const (
	// ExportLogDir specifies where export log files are stored.
	ExportLogDir = "logs/export_logs"
)

var ErrInvalidFormat = errors.New("invalid export format")

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "export",
		Usage: "Export tracked channel entries to various file formats",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "exports",
				Usage:   "Base output directory for export files",
			},
			&cli.StringFlag{
				Name:    "description",
				Aliases: []string{"d"},
				Value:   "Warden Export",
				Usage:   "Export description",
			},
			&cli.StringSliceFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Formats to write (sqlite, csv, json); all when omitted",
			},
			&cli.BoolFlag{
				Name:  "active-only",
				Usage: "Only export entries that are still set",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			config, err := getExportConfig(c)
			if err != nil {
				return err
			}

			// Initialize application with required dependencies
			app, err := setup.InitializeApp(ctx, telemetry.ServiceExport, ExportLogDir)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Cleanup()

			// Create timestamped output directory
			timestamp := time.Now().UTC().Format("2006-01-02_150405")
			outDir := filepath.Join(c.String("output"), timestamp)
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			exporter := export.New(app.DB, outDir, config, app.Logger)
			if err := exporter.ExportAll(ctx); err != nil {
				return fmt.Errorf("failed to export data: %w", err)
			}

			fmt.Printf("Files written to: %s\n", outDir)

			return nil
		},
	}

	return app.Run(context.Background(), os.Args)
}

// getExportConfig builds the export configuration from CLI flags.
func getExportConfig(c *cli.Command) (*export.Config, error) {
	config := &export.Config{
		Description: c.String("description"),
		ActiveOnly:  c.Bool("active-only"),
	}

	for _, name := range c.StringSlice("format") {
		format := export.Format(strings.ToLower(strings.TrimSpace(name)))
		switch format {
		case export.FormatSQLite, export.FormatCSV, export.FormatJSON:
			config.Formats = append(config.Formats, format)
		default:
			return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, name)
		}
	}

	return config, nil
}
