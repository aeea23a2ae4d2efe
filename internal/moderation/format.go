package moderation

import (
	"fmt"

	"github.com/robalyx/warden/internal/database/types"
)

// Describe renders an entry as "#12 (#chan +b mask)".
func Describe(entry *types.Entry, channel string) string {
	mask := ""
	if entry.Mask != nil {
		mask = " " + *entry.Mask
	}
	return fmt.Sprintf("#%d (%s +%s%s)", entry.ID, channel, entry.Mode, mask)
}
