package moderation_test

import (
	"testing"

	"github.com/robalyx/warden/internal/moderation"
	"github.com/robalyx/warden/internal/preference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReporter(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	db, prefs := newEnv(t)

	_, err := db.Model().Channel().Add(ctx, "#chan")
	require.NoError(t, err)

	session := newFakeSession("#chan")
	reporter := moderation.NewReporter(prefs, zap.NewNop())

	// Nothing is sent until a report channel is configured
	sent, err := reporter.Report(ctx, session, "", "", "hello")
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, prefs.Set(ctx, preference.KeyReportChannel, "#reports", "", true))
	require.NoError(t, prefs.Set(ctx, preference.KeyReportOn, "+new", "#chan", false))

	tests := []struct {
		name    string
		kind    string
		channel string
		want    bool
	}{
		{name: "bot event", want: true},
		{name: "enabled kind", kind: preference.ReportNew, channel: "#CHAN", want: true},
		{name: "disabled kind", kind: preference.ReportRemoved, channel: "#chan", want: false},
		{name: "unknown channel", kind: preference.ReportNew, channel: "#other", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sent, err := reporter.Report(ctx, session, tt.kind, tt.channel, "msg")
			require.NoError(t, err)
			assert.Equal(t, tt.want, sent)
		})
	}

	reports := session.sentCommands("PRIVMSG")
	require.Len(t, reports, 2)
	assert.Equal(t, []string{"#reports", "msg"}, reports[0].Params)
}
