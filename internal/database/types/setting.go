package types

import "time"

// BotSetting stores a global runtime setting override.
// Value holds the JSON encoding produced by the setting's codec.
type BotSetting struct {
	Key       string    `bun:",pk"`
	Value     string    `bun:",notnull"`
	UpdatedAt time.Time `bun:",notnull"`
}

// ChannelSetting stores a per-channel runtime setting override.
type ChannelSetting struct {
	ChannelID int64     `bun:",pk"`
	Key       string    `bun:",pk"`
	Value     string    `bun:",notnull"`
	UpdatedAt time.Time `bun:",notnull"`
}
