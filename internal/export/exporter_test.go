package export_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/warden/internal/database/dbtest"
	dbTypes "github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/export"
	exportCSV "github.com/robalyx/warden/internal/export/csv"
	exportJSON "github.com/robalyx/warden/internal/export/json"
	"github.com/robalyx/warden/internal/export/sqlite"
	"github.com/robalyx/warden/internal/export/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr[T any](v T) *T {
	return &v
}

func TestExporter_ExportAll(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	db := dbtest.NewClient(t)

	channel, err := db.Model().Channel().Add(ctx, "#chan")
	require.NoError(t, err)

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	active := &dbTypes.Entry{
		ChannelID: channel.ID,
		Setter:    "op!o@host",
		Mode:      enum.ListModeBan,
		CreatedAt: created,
		Mask:      ptr("*!*@spam.host"),
		Reason:    ptr("spam"),
	}
	require.NoError(t, db.Model().Entry().Create(ctx, active))

	removed := &dbTypes.Entry{
		ChannelID: channel.ID,
		Setter:    "op!o@host",
		Mode:      enum.ListModeQuiet,
		CreatedAt: created,
		Mask:      ptr("troll!*@*"),
	}
	require.NoError(t, db.Model().Entry().Create(ctx, removed))

	closed, err := db.Model().Entry().Close(ctx, removed.ID, ptr("op!o@host"), created.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, closed)

	for _, msg := range []string{"first", "second"} {
		require.NoError(t, db.Model().Comment().Add(ctx, &dbTypes.Comment{
			EntryID:   active.ID,
			ByMask:    "op!o@host",
			CreatedAt: created,
			Message:   msg,
		}))
	}

	t.Run("all formats", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		exporter := export.New(db, dir, &export.Config{Description: "test"}, zap.NewNop())
		require.NoError(t, exporter.ExportAll(t.Context()))

		for _, name := range []string{
			export.ConfigFileName, sqlite.FileName, exportCSV.FileName, exportJSON.FileName,
		} {
			assert.FileExists(t, filepath.Join(dir, name))
		}

		data, err := os.ReadFile(filepath.Join(dir, exportJSON.FileName))
		require.NoError(t, err)

		var records []*types.ExportRecord
		require.NoError(t, sonic.Unmarshal(data, &records))
		require.Len(t, records, 2)

		assert.Equal(t, active.ID, records[0].ID)
		assert.Equal(t, "#chan", records[0].Channel)
		assert.Equal(t, "spam", records[0].Reason)
		assert.Equal(t, 2, records[0].Comments)
		assert.True(t, records[0].Active())

		assert.Equal(t, removed.ID, records[1].ID)
		assert.Equal(t, "q", records[1].Mode)
		assert.Equal(t, "op!o@host", records[1].Remover)
		assert.False(t, records[1].Active())

		configData, err := os.ReadFile(filepath.Join(dir, export.ConfigFileName))
		require.NoError(t, err)

		var meta struct {
			EngineVersion string `json:"engineVersion"`
			Entries       int    `json:"entries"`
		}
		require.NoError(t, sonic.Unmarshal(configData, &meta))
		assert.Equal(t, export.EngineVersion, meta.EngineVersion)
		assert.Equal(t, 2, meta.Entries)
	})

	t.Run("active only json", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		exporter := export.New(db, dir, &export.Config{
			Formats:    []export.Format{export.FormatJSON},
			ActiveOnly: true,
		}, zap.NewNop())
		require.NoError(t, exporter.ExportAll(t.Context()))

		assert.NoFileExists(t, filepath.Join(dir, sqlite.FileName))

		data, err := os.ReadFile(filepath.Join(dir, exportJSON.FileName))
		require.NoError(t, err)

		var records []*types.ExportRecord
		require.NoError(t, sonic.Unmarshal(data, &records))
		require.Len(t, records, 1)
		assert.Equal(t, active.ID, records[0].ID)
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()

		exporter := export.New(db, t.TempDir(), &export.Config{
			Formats: []export.Format{"xml"},
		}, zap.NewNop())
		require.ErrorIs(t, exporter.ExportAll(t.Context()), export.ErrUnsupportedFormat)
	})
}
