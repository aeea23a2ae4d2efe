package types

import "time"

// Comment is a note attached to an entry. Comments are append-only.
type Comment struct {
	ID        int64     `bun:",pk,autoincrement"`
	EntryID   int64     `bun:",notnull"`
	ByMask    string    `bun:",notnull"` // nick!user@host of the author
	ByAccount *string   `bun:",nullzero"`
	CreatedAt time.Time `bun:",notnull"`
	Message   string    `bun:",notnull"`
}
