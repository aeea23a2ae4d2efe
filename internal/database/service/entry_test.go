package service_test

import (
	"testing"
	"time"

	"github.com/robalyx/warden/internal/database/dbtest"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type key struct {
	mode enum.ListMode
	mask string
}

func activeKeys(t *testing.T, entries []*types.Entry) map[key]string {
	t.Helper()

	keys := make(map[key]string, len(entries))
	for _, entry := range entries {
		keys[key{entry.Mode, entry.MaskOrEmpty()}] = entry.Setter
	}
	return keys
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		stored      []types.ListedMode
		live        []types.ListedMode
		wantActive  map[key]string
		wantClosed  int
		wantCreated int
	}{
		{
			name: "adds missing and closes stale",
			stored: []types.ListedMode{
				{Mode: enum.ListModeBan, Mask: "x!*@*", Setter: "alice"},
				{Mode: enum.ListModeQuiet, Mask: "y!*@*", Setter: "alice"},
			},
			live: []types.ListedMode{
				{Mode: enum.ListModeBan, Mask: "x!*@*", Setter: "someone-else"},
				{Mode: enum.ListModeBan, Mask: "z!*@*", Setter: "op!o@host"},
			},
			wantActive: map[key]string{
				{enum.ListModeBan, "x!*@*"}: "alice",
				{enum.ListModeBan, "z!*@*"}: "op!o@host",
			},
			wantClosed:  1,
			wantCreated: 1,
		},
		{
			name: "same mask under a different mode is distinct",
			stored: []types.ListedMode{
				{Mode: enum.ListModeBan, Mask: "x!*@*", Setter: "alice"},
			},
			live: []types.ListedMode{
				{Mode: enum.ListModeQuiet, Mask: "x!*@*", Setter: "bob"},
			},
			wantActive: map[key]string{
				{enum.ListModeQuiet, "x!*@*"}: "bob",
			},
			wantClosed:  1,
			wantCreated: 1,
		},
		{
			name: "duplicate live triples keep the first setter",
			live: []types.ListedMode{
				{Mode: enum.ListModeBan, Mask: "x!*@*", Setter: "first"},
				{Mode: enum.ListModeBan, Mask: "x!*@*", Setter: "second"},
			},
			wantActive: map[key]string{
				{enum.ListModeBan, "x!*@*"}: "first",
			},
			wantCreated: 1,
		},
		{
			name: "empty live list closes everything",
			stored: []types.ListedMode{
				{Mode: enum.ListModeBan, Mask: "x!*@*", Setter: "alice"},
				{Mode: enum.ListModeInvite, Mask: "y!*@*", Setter: "alice"},
			},
			wantActive: map[key]string{},
			wantClosed: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := t.Context()
			db := dbtest.NewClient(t)

			channel, err := db.Model().Channel().Add(ctx, "#reconcile")
			require.NoError(t, err)

			now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
			for _, stored := range tt.stored {
				mask := stored.Mask
				require.NoError(t, db.Model().Entry().Create(ctx, &types.Entry{
					ChannelID: channel.ID,
					Setter:    stored.Setter,
					Mode:      stored.Mode,
					CreatedAt: now.Add(-time.Hour),
					Mask:      &mask,
				}))
			}

			result, err := db.Service().Entry().Reconcile(ctx, channel.ID, nil, tt.live, now)
			require.NoError(t, err)
			assert.Len(t, result.Closed, tt.wantClosed)
			assert.Len(t, result.Created, tt.wantCreated)

			for _, closed := range result.Closed {
				stored, err := db.Model().Entry().GetByID(ctx, closed.ID)
				require.NoError(t, err)
				require.NotNil(t, stored.RemovedAt)
				assert.Nil(t, stored.Remover)
			}

			active, err := db.Model().Entry().GetActiveByChannel(ctx, channel.ID, nil, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.wantActive, activeKeys(t, active))

			// A second pass with the same list changes nothing
			again, err := db.Service().Entry().Reconcile(ctx, channel.ID, nil, tt.live, now.Add(time.Minute))
			require.NoError(t, err)
			assert.True(t, again.IsZero())

			activeAgain, err := db.Model().Entry().GetActiveByChannel(ctx, channel.ID, nil, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.wantActive, activeKeys(t, activeAgain))
		})
	}
}

func TestReconcileLeavesClosedEntriesAlone(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	db := dbtest.NewClient(t)

	channel, err := db.Model().Channel().Add(ctx, "#closed")
	require.NoError(t, err)

	mask := "x!*@*"
	entry := &types.Entry{
		ChannelID: channel.ID,
		Setter:    "alice",
		Mode:      enum.ListModeBan,
		CreatedAt: time.Now(),
		Mask:      &mask,
	}
	require.NoError(t, db.Model().Entry().Create(ctx, entry))

	remover := "bob"
	removedAt := time.Now().Add(-time.Minute)
	_, err = db.Model().Entry().Close(ctx, entry.ID, &remover, removedAt)
	require.NoError(t, err)

	_, err = db.Service().Entry().Reconcile(ctx, channel.ID, nil, nil, time.Now())
	require.NoError(t, err)

	stored, err := db.Model().Entry().GetByID(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Remover)
	assert.Equal(t, "bob", *stored.Remover)
	assert.True(t, stored.RemovedAt.Equal(removedAt.UTC().Truncate(time.Second)))
}

func TestReconcileOnlyTouchesRequestedModes(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	db := dbtest.NewClient(t)

	channel, err := db.Model().Channel().Add(ctx, "#modes")
	require.NoError(t, err)

	mask := "friend!*@*"
	require.NoError(t, db.Model().Entry().Create(ctx, &types.Entry{
		ChannelID: channel.ID,
		Setter:    "alice",
		Mode:      enum.ListModeException,
		CreatedAt: time.Now(),
		Mask:      &mask,
	}))

	result, err := db.Service().Entry().Reconcile(ctx, channel.ID,
		[]enum.ListMode{enum.ListModeBan, enum.ListModeQuiet}, nil, time.Now())
	require.NoError(t, err)
	assert.True(t, result.IsZero())

	active, err := db.Model().Entry().GetActiveByChannel(ctx, channel.ID, nil, 0)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
