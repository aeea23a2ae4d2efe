package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robalyx/warden/internal/irc"
	"github.com/robalyx/warden/internal/preference"
	"go.uber.org/zap"
)

// ModeCommand is one MODE line worth of changes.
type ModeCommand struct {
	Modes string
	Args  []string
}

// PairModes pairs mode letters with their arguments the way the server will
// read them. All letters share the given polarity.
func PairModes(session Session, add bool, modes string, args []string) []irc.ModeChange {
	sign := "-"
	if add {
		sign = "+"
	}
	return irc.ParseModeChanges(session.ModeTakesArg, sign+modes, args)
}

// SplitBatches groups changes into MODE commands of at most size letters,
// keeping their order. A non-positive size is treated as 1.
func SplitBatches(add bool, changes []irc.ModeChange, size int) []ModeCommand {
	if size <= 0 {
		size = 1
	}

	sign := byte('-')
	if add {
		sign = '+'
	}

	commands := make([]ModeCommand, 0, (len(changes)+size-1)/size)
	for start := 0; start < len(changes); start += size {
		end := min(start+size, len(changes))

		var modes strings.Builder
		modes.WriteByte(sign)
		args := make([]string, 0, end-start)

		for _, change := range changes[start:end] {
			modes.WriteByte(change.Mode)
			if change.HasArg {
				args = append(args, change.Arg)
			}
		}

		commands = append(commands, ModeCommand{Modes: modes.String(), Args: args})
	}

	return commands
}

// Batcher sends mode changes in server-sized batches, asking services for
// operator status first when it is needed to remove modes.
type Batcher struct {
	prefs    *preference.Store
	chanServ string
	logger   *zap.Logger
}

// NewBatcher creates a Batcher. chanServ is the nickname of the services bot
// that grants operator status.
func NewBatcher(prefs *preference.Store, chanServ string, logger *zap.Logger) *Batcher {
	return &Batcher{
		prefs:    prefs,
		chanServ: chanServ,
		logger:   logger.Named("batcher"),
	}
}

// Apply sends the given modes for a channel. When removing modes without
// operator status it asks services for op and waits up to the opTimeout
// setting; if op was granted, the final command also drops it again.
// It returns the commands that were sent.
func (b *Batcher) Apply(
	ctx context.Context, session Session, channel string, add bool, modes string, args []string,
) ([]ModeCommand, error) {
	changes := PairModes(session, add, modes, args)
	if len(changes) == 0 {
		return nil, nil
	}

	commands := SplitBatches(add, changes, session.ModesPerCommand())

	if !add && !session.HasMemberMode(channel, session.Nick(), 'o') {
		acquired, err := b.acquireOp(ctx, session, channel)
		if err != nil {
			return nil, err
		}
		if acquired {
			last := &commands[len(commands)-1]
			last.Modes += "o"
			last.Args = append(last.Args, session.Nick())
		}
	}

	for _, cmd := range commands {
		params := append([]string{channel, cmd.Modes}, cmd.Args...)
		if err := session.Send(ctx, "MODE", params...); err != nil {
			return nil, fmt.Errorf("failed to send mode batch: %w", err)
		}
	}

	b.logger.Debug("Sent mode batches",
		zap.String("channel", channel),
		zap.Bool("add", add),
		zap.Int("changes", len(changes)),
		zap.Int("commands", len(commands)))

	return commands, nil
}

// acquireOp asks services for operator status and waits for the grant.
// A timeout is not an error; it reports false and the caller carries on.
func (b *Batcher) acquireOp(ctx context.Context, session Session, channel string) (bool, error) {
	seconds, err := b.prefs.Float(ctx, preference.KeyOpTimeout, "")
	if err != nil {
		return false, err
	}
	timeout := time.Duration(seconds * float64(time.Second))

	folded := session.Casefold(channel)
	sub := session.Subscribe(func(l irc.Line) bool {
		return l.Command == "MODE" &&
			session.Casefold(l.Nick()) == session.Casefold(b.chanServ) &&
			session.Casefold(l.Param(0)) == folded &&
			l.Param(1) == "+o" &&
			session.Casefold(l.Param(2)) == session.Casefold(session.Nick())
	})
	defer sub.Close()

	if err := session.Send(ctx, "PRIVMSG", b.chanServ, "OP "+channel); err != nil {
		return false, err
	}

	if _, err := sub.Next(ctx, timeout); err != nil {
		if errors.Is(err, irc.ErrTimeout) {
			b.logger.Debug("Timed out waiting for operator status",
				zap.String("channel", channel),
				zap.Duration("timeout", timeout))
			return false, nil
		}
		return false, err
	}

	return true, nil
}
