package types

import (
	"time"

	"github.com/robalyx/warden/internal/database/types/enum"
)

// Entry is a tracked ban, quiet or exception placed on a channel.
// An entry is active while RemovedAt is nil; it is never deleted.
type Entry struct {
	ID        int64         `bun:",pk,autoincrement"`
	ChannelID int64         `bun:",notnull"`
	Setter    string        `bun:",notnull"`  // nick!user@host of whoever set the mode
	Mode      enum.ListMode `bun:",notnull"`  // List mode letter
	CreatedAt time.Time     `bun:",notnull"`  // When the mode was set
	Mask      *string       `bun:",nullzero"` // Mode argument, nil when the mode had none
	ExpiresAt *time.Time    `bun:",nullzero"` // When the expiry worker should lift the mode
	RemovedAt *time.Time    `bun:",nullzero"` // When the mode was lifted
	Remover   *string       `bun:",nullzero"` // Who lifted it; nil when lifted while we were away
	Reason    *string       `bun:",nullzero"`
}

// IsActive reports whether the entry has not been removed.
func (e *Entry) IsActive() bool {
	return e.RemovedAt == nil
}

// IsExpired reports whether the entry has an expiry at or before now.
func (e *Entry) IsExpired(now time.Time) bool {
	return e.ExpiresAt != nil && !e.ExpiresAt.After(now)
}

// MaskOrEmpty returns the mask or an empty string when there is none.
func (e *Entry) MaskOrEmpty() string {
	if e.Mask == nil {
		return ""
	}
	return *e.Mask
}

// ListedMode is a list entry as reported by the server when the list is requested.
type ListedMode struct {
	Mode   enum.ListMode
	Mask   string
	Setter string
}

// ReconcileResult summarises what a reconciliation pass changed.
type ReconcileResult struct {
	Closed  []*Entry // Entries that were active but are no longer set
	Created []*Entry // Entries that are set but were not tracked
}

// IsZero reports whether the reconciliation made no changes.
func (r *ReconcileResult) IsZero() bool {
	return len(r.Closed) == 0 && len(r.Created) == 0
}
