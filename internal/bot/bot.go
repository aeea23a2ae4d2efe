// Package bot routes server lines to the moderation engine and answers commands.
package bot

import (
	"context"
	"strings"
	"time"

	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/irc"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/robalyx/warden/internal/preference"
	"go.uber.org/zap"
)

// Session is the connection surface the command handlers need.
type Session interface {
	moderation.Session
	IsChannel(target string) bool
	Join(ctx context.Context, channel string, timeout time.Duration) error
}

var _ Session = (*irc.Session)(nil)

// Bot handles every line of a session in order.
type Bot struct {
	db           database.Client
	prefs        *preference.Store
	authorizer   *moderation.Authorizer
	synchronizer *moderation.Synchronizer
	observer     *moderation.Observer
	reporter     *moderation.Reporter
	commands     map[string]command
	joinTimeout  time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// New creates a Bot over the moderation components.
func New(
	db database.Client,
	prefs *preference.Store,
	authorizer *moderation.Authorizer,
	synchronizer *moderation.Synchronizer,
	observer *moderation.Observer,
	reporter *moderation.Reporter,
	joinTimeout time.Duration,
	logger *zap.Logger,
) *Bot {
	b := &Bot{
		db:           db,
		prefs:        prefs,
		authorizer:   authorizer,
		synchronizer: synchronizer,
		observer:     observer,
		reporter:     reporter,
		joinTimeout:  joinTimeout,
		logger:       logger.Named("bot"),
		now:          time.Now,
	}
	b.commands = b.commandTable()

	return b
}

// HandleLine implements irc.Handler.
func (b *Bot) HandleLine(ctx context.Context, s *irc.Session, line irc.Line) {
	b.Handle(ctx, s, line)
}

// Handle processes one line. Panics are logged and swallowed so a single bad
// line cannot take the connection down.
func (b *Bot) Handle(ctx context.Context, session Session, line irc.Line) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Panic in line handler",
				zap.String("command", line.Command),
				zap.Any("panic", r))
		}
		b.logger.Debug("Line handled",
			zap.String("command", line.Command),
			zap.Duration("duration", time.Since(start)))
	}()

	switch line.Command {
	case irc.RplWelcome:
		b.joinAutoJoinChannels(ctx, session)
	case "PRIVMSG":
		b.handlePrivmsg(ctx, session, line)
	case "JOIN":
		b.handleJoin(ctx, session, line)
	case "MODE":
		if session.IsChannel(line.Param(0)) {
			b.handleMode(ctx, session, line)
		}
	}
}

func (b *Bot) joinAutoJoinChannels(ctx context.Context, session Session) {
	channels, err := b.db.Model().Channel().GetAutoJoin(ctx)
	if err != nil {
		b.logger.Error("Failed to load autojoin channels", zap.Error(err))
		return
	}

	for _, channel := range channels {
		if err := session.Send(ctx, "JOIN", channel.Name); err != nil {
			b.logger.Error("Failed to join channel", zap.String("channel", channel.Name), zap.Error(err))
			return
		}
	}

	b.logger.Info("Joining autojoin channels", zap.Int("count", len(channels)))
}

func (b *Bot) handlePrivmsg(ctx context.Context, session Session, line irc.Line) {
	me := session.Casefold(session.Nick())
	if session.Casefold(line.Nick()) == me || session.Casefold(line.Param(0)) != me {
		return
	}

	text := line.Param(1)
	if text == "" || text[0] == '\x01' {
		return
	}

	name, args, _ := strings.Cut(strings.TrimSpace(text), " ")
	caller := moderation.NewCaller(session, line)

	for _, out := range b.runCommand(ctx, session, caller, name, strings.TrimSpace(args)) {
		if err := session.Send(ctx, "NOTICE", caller.Nick, out); err != nil {
			b.logger.Error("Failed to send reply", zap.String("nick", caller.Nick), zap.Error(err))
			return
		}
	}
}

func (b *Bot) handleJoin(ctx context.Context, session Session, line irc.Line) {
	if session.Casefold(line.Nick()) != session.Casefold(session.Nick()) {
		return
	}

	name := session.Casefold(line.Param(0))

	channel, err := b.db.Model().Channel().GetByName(ctx, name)
	if err != nil {
		b.logger.Error("Failed to look up joined channel", zap.String("channel", name), zap.Error(err))
		return
	}
	if channel == nil {
		return
	}

	result, err := b.synchronizer.Reconcile(ctx, session, channel)
	if err != nil {
		b.logger.Error("Failed to synchronize channel modes", zap.String("channel", name), zap.Error(err))
		return
	}

	b.logger.Info("Synchronized channel modes",
		zap.String("channel", name),
		zap.Int("closed", len(result.Closed)),
		zap.Int("created", len(result.Created)))
}

func (b *Bot) handleMode(ctx context.Context, session Session, line irc.Line) {
	if _, err := b.observer.OnModeEvent(ctx, session, line); err != nil {
		b.logger.Error("Failed to record mode change",
			zap.String("channel", line.Param(0)),
			zap.Error(err))
	}
}
