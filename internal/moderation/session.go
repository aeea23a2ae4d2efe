// Package moderation keeps the entry store in step with channel list modes.
package moderation

import (
	"context"

	"github.com/robalyx/warden/internal/irc"
)

// Session is the part of a server connection the moderation engine needs.
type Session interface {
	Send(ctx context.Context, command string, params ...string) error
	Subscribe(match irc.MatchFunc) *irc.Subscription
	Nick() string
	Source() string
	Casefold(name string) string
	InChannel(channel string) bool
	HasMemberMode(channel, nick string, mode byte) bool
	ModesPerCommand() int
	ModeTakesArg(mode byte, adding bool) bool
}

var _ Session = (*irc.Session)(nil)

// Caller identifies whoever sent a command.
type Caller struct {
	Source  string // nick!user@host
	Nick    string
	Account string // Services account, empty when not logged in

	fold func(string) string
}

// NewCaller builds a caller from a line, folding names the way the session does.
func NewCaller(session Session, line irc.Line) Caller {
	account, _ := line.Account()

	return Caller{
		Source:  line.Source,
		Nick:    line.Nick(),
		Account: account,
		fold:    session.Casefold,
	}
}

// Fold casefolds a name using the caller's session mapping, or rfc1459 when detached.
func (c Caller) Fold(name string) string {
	if c.fold == nil {
		return irc.CaseMappingRFC1459.Fold(name)
	}
	return c.fold(name)
}

// HasAccount reports whether the caller is logged in to services.
func (c Caller) HasAccount() bool {
	return c.Account != ""
}
