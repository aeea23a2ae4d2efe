package bot

import (
	"testing"
	"time"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
)

func TestFormatTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2021, 10, 21, 17, 30, 15, 0, time.UTC)

	tests := []struct {
		name string
		ts   time.Time
		want string
	}{
		{name: "past", ts: now.Add(-65 * time.Second), want: "\x022021-10-21T17:29:10\x02 (1m5s ago)"},
		{name: "future", ts: now.Add(8 * 24 * time.Hour), want: "\x022021-10-29T17:30:15\x02 (1w1d from now)"},
		{name: "now", ts: now, want: "\x022021-10-21T17:30:15\x02 (0s from now)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, formatTime(tt.ts, now))
		})
	}
}

func TestFormatEntry(t *testing.T) {
	t.Parallel()

	now := time.Date(2021, 10, 21, 18, 0, 0, 0, time.UTC)
	created := now.Add(-time.Hour)
	removed := now.Add(-time.Minute)
	mask := "troll!*@*"
	reason := "flooding"

	entry := &types.Entry{
		ID:        7,
		Setter:    "alice!a@host",
		Mode:      enum.ListModeBan,
		CreatedAt: created,
		Mask:      &mask,
		Reason:    &reason,
		RemovedAt: &removed,
	}

	assert.Equal(t,
		"#7 (#chan +b troll!*@*) was set by \x02alice!a@host\x02 at \x022021-10-21T17:00:00\x02 (1h ago)"+
			" with the reason: \x1dflooding\x1d"+
			". It was removed on \x022021-10-21T17:59:00\x02 (1m ago) by \x02(unknown)\x02.",
		formatEntry(entry, "#chan", now))
}
