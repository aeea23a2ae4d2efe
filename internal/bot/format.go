package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/robalyx/warden/pkg/utils"
)

const isoLayout = "2006-01-02T15:04:05"

// formatTime renders ts as bold ISO time with a relative hint, such as
// "\x022021-10-21T17:29:10\x02 (1m5s ago)".
func formatTime(ts, now time.Time) string {
	var relative string
	if now.After(ts) {
		relative = utils.FormatPrettyDuration(now.Sub(ts)) + " ago"
	} else {
		relative = utils.FormatPrettyDuration(ts.Sub(now)) + " from now"
	}
	return fmt.Sprintf("\x02%s\x02 (%s)", ts.UTC().Format(isoLayout), relative)
}

// formatEntry describes the full history of an entry in one line.
func formatEntry(entry *types.Entry, channel string, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s was set by \x02%s\x02 at %s",
		moderation.Describe(entry, channel), entry.Setter, formatTime(entry.CreatedAt, now))

	if entry.Reason != nil {
		fmt.Fprintf(&b, " with the reason: \x1d%s\x1d", *entry.Reason)
	}

	if entry.ExpiresAt != nil {
		fmt.Fprintf(&b, " and had an expiry time of %s", formatTime(*entry.ExpiresAt, now))
	}

	if entry.RemovedAt != nil {
		remover := "(unknown)"
		if entry.Remover != nil {
			remover = *entry.Remover
		}
		fmt.Fprintf(&b, ". It was removed on %s by \x02%s\x02", formatTime(*entry.RemovedAt, now), remover)
	}

	b.WriteString(".")

	return b.String()
}

// formatComment renders one comment line of the info command.
func formatComment(comment *types.Comment) string {
	who := comment.ByMask
	if comment.ByAccount != nil {
		who = fmt.Sprintf("%s (%s)", comment.ByMask, *comment.ByAccount)
	}
	return fmt.Sprintf(" %s by \x02%s\x02: %s", comment.CreatedAt.UTC().Format(isoLayout), who, comment.Message)
}
