package types

// Channel is a channel the bot administers.
type Channel struct {
	ID       int64  `bun:",pk,autoincrement"`
	Name     string `bun:",unique,notnull"` // Casefolded channel name
	AutoJoin bool   `bun:",notnull"`        // Whether to join on connect
}

// ChanOp records an account seen changing modes in a channel.
type ChanOp struct {
	ID        int64  `bun:",pk,autoincrement"`
	ChannelID int64  `bun:",notnull,unique:chan_ops_channel_account"`
	Account   string `bun:",notnull,unique:chan_ops_channel_account"` // Casefolded services account
}
