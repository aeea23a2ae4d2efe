package bot_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/robalyx/warden/internal/bot"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/database/dbtest"
	"github.com/robalyx/warden/internal/irc"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/robalyx/warden/internal/preference"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSession records outgoing commands and lets tests script server replies.
type fakeSession struct {
	mu       sync.Mutex
	isupport irc.ISupport
	channels map[string]bool
	sent     []irc.Line
	subs     []*irc.Subscription
	joinErr  error

	onSend func(f *fakeSession, line irc.Line)
}

func newFakeSession(channels ...string) *fakeSession {
	f := &fakeSession{isupport: irc.NewISupport(), channels: make(map[string]bool)}
	for _, channel := range channels {
		f.channels[f.Casefold(channel)] = true
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

func (f *fakeSession) Join(_ context.Context, channel string, _ time.Duration) error {
	if f.joinErr != nil {
		return f.joinErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[f.Casefold(channel)] = true
	return nil
}

func (f *fakeSession) Nick() string                { return "warden" }
func (f *fakeSession) Source() string              { return "warden!warden@warden.host" }
func (f *fakeSession) Casefold(name string) string { return irc.CaseMappingRFC1459.Fold(name) }
func (f *fakeSession) IsChannel(target string) bool {
	return f.isupport.IsChannel(target)
}
func (f *fakeSession) ModesPerCommand() int { return f.isupport.Modes }

func (f *fakeSession) ModeTakesArg(mode byte, adding bool) bool {
	return f.isupport.ModeTakesArg(mode, adding)
}

func (f *fakeSession) InChannel(channel string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[f.Casefold(channel)]
}

func (f *fakeSession) HasMemberMode(string, string, byte) bool { return true }

// take returns and forgets the lines sent so far.
func (f *fakeSession) take() []irc.Line {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.sent
	f.sent = nil
	return out
}

func filter(lines []irc.Line, command string) []irc.Line {
	var out []irc.Line
	for _, line := range lines {
		if line.Command == command {
			out = append(out, line)
		}
	}
	return out
}

type env struct {
	db    database.Client
	prefs *preference.Store
	bot   *bot.Bot
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := dbtest.NewClient(t)
	logger := zap.NewNop()
	prefs := preference.NewStore(preference.DefaultRegistry(), db, nil, logger)

	authorizer, err := moderation.NewAuthorizer([]string{"admin!*@staff.host"}, db, logger)
	require.NoError(t, err)

	reporter := moderation.NewReporter(prefs, logger)
	b := bot.New(
		db, prefs, authorizer,
		moderation.NewSynchronizer(db, logger),
		moderation.NewObserver(db, prefs, reporter, logger),
		reporter, time.Second, logger,
	)

	return &env{db: db, prefs: prefs, bot: b}
}

// handle feeds a raw line to the bot.
func (e *env) handle(t *testing.T, session *fakeSession, raw string) {
	t.Helper()

	line, err := irc.ParseLine(raw)
	require.NoError(t, err)
	e.bot.Handle(t.Context(), session, line)
}

// command sends a private message from prefix and returns the NOTICE replies
// along with everything else that was sent.
func (e *env) command(t *testing.T, session *fakeSession, prefix, text string) ([]string, []irc.Line) {
	t.Helper()

	session.take()
	e.handle(t, session, prefix+" PRIVMSG warden :"+text)

	sent := session.take()

	var replies []string
	for _, line := range filter(sent, "NOTICE") {
		replies = append(replies, line.Param(1))
	}
	return replies, sent
}
