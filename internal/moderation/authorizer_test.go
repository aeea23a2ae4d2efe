package moderation_test

import (
	"testing"
	"time"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuthorizer(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	db, _ := newEnv(t)

	channel, err := db.Model().Channel().Add(ctx, "#chan")
	require.NoError(t, err)

	_, err = db.Model().ChanOp().Grant(ctx, channel.ID, "bobby")
	require.NoError(t, err)

	mask := "troll!*@*"
	entry := &types.Entry{
		ChannelID: channel.ID,
		Setter:    "alice!a@host",
		Mode:      enum.ListModeBan,
		CreatedAt: time.Now(),
		Mask:      &mask,
	}
	require.NoError(t, db.Model().Entry().Create(ctx, entry))

	authorizer, err := moderation.NewAuthorizer([]string{"admin!*@staff/*", "[op]!*@*"}, db, zap.NewNop())
	require.NoError(t, err)

	tests := []struct {
		name   string
		caller moderation.Caller
		want   bool
	}{
		{name: "setter", caller: moderation.Caller{Source: "alice!a@host"}, want: true},
		{name: "setter with different case", caller: moderation.Caller{Source: "ALICE!a@HOST"}, want: true},
		{name: "granted chanop", caller: moderation.Caller{Source: "bob!b@elsewhere", Account: "Bobby"}, want: true},
		{name: "no account", caller: moderation.Caller{Source: "bob!b@elsewhere"}, want: false},
		{name: "ungranted account", caller: moderation.Caller{Source: "eve!e@host", Account: "eve"}, want: false},
		{name: "admin glob", caller: moderation.Caller{Source: "admin!root@staff/admin"}, want: true},
		{name: "brackets are literal", caller: moderation.Caller{Source: "{op}!x@y"}, want: true},
		{name: "brackets do not act as a class", caller: moderation.Caller{Source: "o!x@y"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, err := authorizer.IsAuthorized(t.Context(), entry, tt.caller)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
