package moderation_test

import (
	"context"
	"sync"
	"testing"

	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/database/dbtest"
	"github.com/robalyx/warden/internal/irc"
	"github.com/robalyx/warden/internal/preference"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSession records outgoing commands and lets tests script replies.
type fakeSession struct {
	mu       sync.Mutex
	nick     string
	isupport irc.ISupport
	channels map[string]struct{}
	members  map[string]string // "#chan nick" -> prefix modes
	sent     []irc.Line
	subs     []*irc.Subscription

	// onSend runs after a command is recorded and may deliver replies.
	onSend func(f *fakeSession, line irc.Line)
}

func newFakeSession(channels ...string) *fakeSession {
	f := &fakeSession{
		nick:     "warden",
		isupport: irc.NewISupport(),
		channels: make(map[string]struct{}),
		members:  make(map[string]string),
	}
	for _, channel := range channels {
		f.channels[f.Casefold(channel)] = struct{}{}
	}
	return f
}

func (f *fakeSession) Send(_ context.Context, command string, params ...string) error {
	line := irc.NewLine(nil, "", command, params...)

	f.mu.Lock()
	f.sent = append(f.sent, line)
	hook := f.onSend
	f.mu.Unlock()

	if hook != nil {
		hook(f, line)
	}
	return nil
}

func (f *fakeSession) Subscribe(match irc.MatchFunc) *irc.Subscription {
	sub := irc.NewSubscription(match)

	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()

	return sub
}

// deliver feeds a raw server line to every subscription.
func (f *fakeSession) deliver(t *testing.T, raw string) {
	t.Helper()

	line, err := irc.ParseLine(raw)
	require.NoError(t, err)

	f.mu.Lock()
	subs := append([]*irc.Subscription(nil), f.subs...)
	f.mu.Unlock()

	for _, sub := range subs {
		sub.Deliver(line)
	}
}

func (f *fakeSession) sentLines() []irc.Line {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]irc.Line(nil), f.sent...)
}

func (f *fakeSession) sentCommands(command string) []irc.Line {
	var out []irc.Line
	for _, line := range f.sentLines() {
		if line.Command == command {
			out = append(out, line)
		}
	}
	return out
}

func (f *fakeSession) setMemberMode(channel, nick, modes string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[f.Casefold(channel)+" "+f.Casefold(nick)] = modes
}

func (f *fakeSession) Nick() string   { return f.nick }
func (f *fakeSession) Source() string { return f.nick + "!warden@warden.host" }

func (f *fakeSession) Casefold(name string) string {
	return irc.CaseMappingRFC1459.Fold(name)
}

func (f *fakeSession) InChannel(channel string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.channels[f.Casefold(channel)]
	return ok
}

func (f *fakeSession) HasMemberMode(channel, nick string, mode byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	modes := f.members[f.Casefold(channel)+" "+f.Casefold(nick)]
	for i := range len(modes) {
		if modes[i] == mode {
			return true
		}
	}
	return false
}

func (f *fakeSession) ModesPerCommand() int { return f.isupport.Modes }

func (f *fakeSession) ModeTakesArg(mode byte, adding bool) bool {
	return f.isupport.ModeTakesArg(mode, adding)
}

// newEnv returns a migrated database and a preference store over it.
func newEnv(t *testing.T) (database.Client, *preference.Store) {
	t.Helper()

	db := dbtest.NewClient(t)
	prefs := preference.NewStore(preference.DefaultRegistry(), db, nil, zap.NewNop())
	return db, prefs
}
