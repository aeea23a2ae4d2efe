package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/robalyx/warden/internal/preference"
	"github.com/robalyx/warden/pkg/utils"
	"go.uber.org/zap"
)

const (
	msgDone             = "done!"
	msgPermissionDenied = "Permission denied"
	msgInternalError    = "Something went wrong. Please report this to the bot admin."
)

// usageError is answered with its message followed by the command's usage lines.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func newUsageError(msg string) error {
	return &usageError{msg: msg}
}

type commandFunc func(ctx context.Context, session Session, caller moderation.Caller, args []string) ([]string, error)

type command struct {
	run   commandFunc
	usage []string
}

func (b *Bot) commandTable() map[string]command {
	return map[string]command{
		"config": {run: b.cmdConfig, usage: []string{"[channel] <setting> [value]"}},
		"unset":  {run: b.cmdUnset, usage: []string{"[channel] <setting>"}},
		"info":   {run: b.cmdInfo, usage: []string{"<id>"}},
		"comment": {run: b.cmdComment, usage: []string{
			"<id>|^ [+duration|~duration] [reason]",
		}},
		"join": {run: b.cmdJoin, usage: []string{"<channel>"}},
		"part": {run: b.cmdPart, usage: []string{"<channel>"}},
	}
}

// runCommand executes a command and returns the lines to send back.
func (b *Bot) runCommand(
	ctx context.Context, session Session, caller moderation.Caller, name, args string,
) []string {
	cmd, ok := b.commands[strings.ToLower(name)]
	if !ok {
		return []string{fmt.Sprintf("\x02%s\x02 is not a valid command", strings.ToUpper(name))}
	}

	out, err := cmd.run(ctx, session, caller, strings.Fields(args))
	if err == nil {
		return out
	}

	var usageErr *usageError
	if errors.As(err, &usageErr) {
		out = []string{usageErr.msg}
		for _, usage := range cmd.usage {
			out = append(out, fmt.Sprintf("usage: %s %s", strings.ToUpper(name), usage))
		}
		return out
	}

	b.logger.Error("Command failed",
		zap.String("command", name),
		zap.String("caller", caller.Source),
		zap.Error(err))

	return []string{msgInternalError}
}

// settingTarget splits an optional leading channel off the config arguments
// and checks the caller may change that channel's settings.
func (b *Bot) settingTarget(
	ctx context.Context, session Session, caller moderation.Caller, args []string,
) (string, []string, string, error) {
	if len(args) > 1 && session.IsChannel(args[0]) {
		name := session.Casefold(args[0])

		channel, err := b.db.Model().Channel().GetByName(ctx, name)
		if err != nil {
			return "", nil, "", err
		}
		if channel == nil {
			return "", nil, fmt.Sprintf("%s is not a valid channel name", args[0]), nil
		}

		if !b.authorizer.IsAdmin(caller) {
			granted, err := b.authorizer.IsChanOp(ctx, channel.ID, caller)
			if err != nil {
				return "", nil, "", err
			}
			if !granted {
				return "", nil, msgPermissionDenied, nil
			}
		}

		return name, args[1:], "", nil
	}

	return "", args, "", nil
}

// settingError turns a preference error into a reply, or passes through anything else.
func settingError(err error) ([]string, error) {
	switch {
	case errors.Is(err, preference.ErrUnknownSetting),
		errors.Is(err, preference.ErrRestricted),
		errors.Is(err, preference.ErrScope),
		errors.Is(err, preference.ErrInvalidValue),
		errors.Is(err, preference.ErrUnknownChannel):
		return []string{"Error: " + err.Error()}, nil
	default:
		return nil, err
	}
}

func (b *Bot) cmdConfig(
	ctx context.Context, session Session, caller moderation.Caller, args []string,
) ([]string, error) {
	if len(args) == 0 {
		return nil, newUsageError("Not enough parameters")
	}

	channel, args, denied, err := b.settingTarget(ctx, session, caller, args)
	if err != nil {
		return nil, err
	}
	if denied != "" {
		return []string{denied}, nil
	}

	privileged := b.authorizer.IsAdmin(caller)
	key := args[0]

	if len(args) == 1 {
		value, err := b.prefs.GetPretty(ctx, key, channel)
		if err != nil {
			return settingError(err)
		}
		return []string{fmt.Sprintf("%s = %s", key, value)}, nil
	}

	// Global values apply to every channel
	if channel == "" && !privileged {
		return []string{msgPermissionDenied}, nil
	}

	if err := b.prefs.Set(ctx, key, strings.Join(args[1:], " "), channel, privileged); err != nil {
		return settingError(err)
	}
	return []string{msgDone}, nil
}

func (b *Bot) cmdUnset(
	ctx context.Context, session Session, caller moderation.Caller, args []string,
) ([]string, error) {
	if len(args) == 0 {
		return nil, newUsageError("Not enough parameters")
	}

	channel, args, denied, err := b.settingTarget(ctx, session, caller, args)
	if err != nil {
		return nil, err
	}
	if denied != "" {
		return []string{denied}, nil
	}

	privileged := b.authorizer.IsAdmin(caller)
	if channel == "" && !privileged {
		return []string{msgPermissionDenied}, nil
	}

	if err := b.prefs.Unset(ctx, args[0], channel, privileged); err != nil {
		return settingError(err)
	}
	return []string{msgDone}, nil
}

// authorizedEntry loads an entry the caller is allowed to act on, or nil.
func (b *Bot) authorizedEntry(ctx context.Context, id int64, caller moderation.Caller) (*types.Entry, error) {
	entry, err := b.db.Model().Entry().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	ok, err := b.authorizer.IsAuthorized(ctx, entry, caller)
	if err != nil || !ok {
		return nil, err
	}
	return entry, nil
}

func (b *Bot) cmdInfo(
	ctx context.Context, _ Session, caller moderation.Caller, args []string,
) ([]string, error) {
	if len(args) == 0 {
		return nil, newUsageError("Please provide an id")
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, newUsageError("That's not a number")
	}

	entry, err := b.authorizedEntry(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return []string{fmt.Sprintf("#%d does not exist or you do not have permission to see it", id)}, nil
	}

	channel, err := b.db.Model().Channel().GetByID(ctx, entry.ChannelID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return []string{msgInternalError}, nil
	}

	out := []string{formatEntry(entry, channel.Name, b.now())}

	comments, err := b.db.Model().Comment().GetByEntry(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	if len(comments) > 0 {
		out = append(out, "\x02comments:\x02")
		for _, comment := range comments {
			out = append(out, formatComment(comment))
		}
	}

	return out, nil
}

// commentRequest is a parsed comment command.
type commentRequest struct {
	ids         []int64
	duration    time.Duration
	hasDuration bool
	fromCreated bool // ~duration counts from the entry's creation instead of now
	reason      string
}

func (b *Bot) parseComment(ctx context.Context, caller moderation.Caller, args []string) (*commentRequest, string, error) {
	if len(args) == 0 {
		return nil, "", newUsageError("Please provide an id")
	}

	req := &commentRequest{}
	target := args[0]
	args = args[1:]

	if strings.Trim(target, "^") == "" {
		entries, err := b.db.Model().Entry().GetLastBySetter(ctx, caller.Source, len(target))
		if err != nil {
			return nil, "", err
		}
		if len(entries) == 0 {
			return nil, "could not find any previous entries from you", nil
		}
		for _, entry := range entries {
			req.ids = append(req.ids, entry.ID)
		}
	} else {
		id, err := strconv.ParseInt(target, 10, 64)
		if err != nil {
			return nil, "", newUsageError("id must be a number")
		}
		req.ids = []int64{id}
	}

	if len(args) > 0 && (args[0][0] == '+' || args[0][0] == '~') {
		duration, err := utils.ParsePrettyDuration(args[0][1:])
		if err != nil {
			return nil, "invalid time", nil
		}
		req.duration = duration
		req.hasDuration = true
		req.fromCreated = args[0][0] == '~'
		args = args[1:]
	}

	req.reason = strings.Join(args, " ")
	if !req.hasDuration && req.reason == "" {
		return nil, "", newUsageError("Please provide a duration or a reason")
	}

	return req, "", nil
}

func (b *Bot) cmdComment(
	ctx context.Context, _ Session, caller moderation.Caller, args []string,
) ([]string, error) {
	req, reply, err := b.parseComment(ctx, caller, args)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return []string{reply}, nil
	}

	out := make([]string, 0, len(req.ids))
	for _, id := range req.ids {
		line, err := b.commentEntry(ctx, caller, id, req)
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}

	return out, nil
}

// commentEntry applies a comment request to a single entry and returns the reply.
func (b *Bot) commentEntry(ctx context.Context, caller moderation.Caller, id int64, req *commentRequest) (string, error) {
	// Writes below must land even if the connection drops mid-command
	ctx = context.WithoutCancel(ctx)

	entry, err := b.authorizedEntry(ctx, id, caller)
	if err != nil {
		return "", err
	}
	if entry == nil {
		return fmt.Sprintf("#%d does not exist or you do not have permission to modify it", id), nil
	}
	if !entry.IsActive() {
		return fmt.Sprintf("#%d is no longer active", id), nil
	}

	now := b.now()

	if req.hasDuration {
		expiresAt := now.Add(req.duration)
		if req.fromCreated {
			expiresAt = entry.CreatedAt.Add(req.duration)
			if !expiresAt.After(now) {
				return fmt.Sprintf("#%d would already have expired. Please set a longer duration.", id), nil
			}
		}

		if err := b.db.Model().Entry().SetExpiry(ctx, id, &expiresAt); err != nil {
			return "", err
		}
		msg := fmt.Sprintf("set expiry to \x02%s\x02", expiresAt.UTC().Format(isoLayout))
		if err := b.addComment(ctx, caller, id, msg, now); err != nil {
			return "", err
		}
	}

	if req.reason != "" {
		if err := b.db.Model().Entry().SetReason(ctx, id, req.reason); err != nil {
			return "", err
		}
		msg := fmt.Sprintf("set reason to \x1d%s\x1d", req.reason)
		if err := b.addComment(ctx, caller, id, msg, now); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("#%d has been commented", id), nil
}

func (b *Bot) addComment(ctx context.Context, caller moderation.Caller, id int64, msg string, now time.Time) error {
	comment := &types.Comment{
		EntryID:   id,
		ByMask:    caller.Source,
		CreatedAt: now,
		Message:   msg,
	}
	if caller.HasAccount() {
		account := caller.Account
		comment.ByAccount = &account
	}
	return b.db.Model().Comment().Add(ctx, comment)
}

func (b *Bot) cmdJoin(
	ctx context.Context, session Session, caller moderation.Caller, args []string,
) ([]string, error) {
	if !b.authorizer.IsAdmin(caller) {
		return []string{msgPermissionDenied}, nil
	}
	if len(args) == 0 {
		return nil, newUsageError("Please provide a channel to join")
	}

	name := args[0]
	if session.InChannel(name) {
		return []string{fmt.Sprintf("I'm already in %s", name)}, nil
	}

	if err := session.Join(ctx, name, b.joinTimeout); err != nil {
		b.logger.Warn("Failed to join channel", zap.String("channel", name), zap.Error(err))
		return []string{fmt.Sprintf("Failed to join %s - see the error log for more information", name)}, nil
	}

	// Our JOIN echo is handled after this command returns, so the channel is
	// known by the time it gets synchronized
	if _, err := b.db.Model().Channel().Add(context.WithoutCancel(ctx), session.Casefold(name)); err != nil {
		return nil, err
	}

	b.report(ctx, session, fmt.Sprintf("%s JOIN: \x02%s\x02", caller.Source, name))

	return []string{fmt.Sprintf("Successfully joined %s", name)}, nil
}

func (b *Bot) cmdPart(
	ctx context.Context, session Session, caller moderation.Caller, args []string,
) ([]string, error) {
	if !b.authorizer.IsAdmin(caller) {
		return []string{msgPermissionDenied}, nil
	}
	if len(args) == 0 {
		return nil, newUsageError("Please provide a channel to part")
	}

	name := args[0]
	if !session.InChannel(name) {
		return []string{fmt.Sprintf("I'm not in %s", name)}, nil
	}

	channel, err := b.db.Model().Channel().GetByName(ctx, session.Casefold(name))
	if err != nil {
		return nil, err
	}
	if channel != nil {
		if err := b.db.Model().Channel().SetAutoJoin(context.WithoutCancel(ctx), channel.ID, false); err != nil {
			return nil, err
		}
	}

	if err := session.Send(ctx, "PART", name); err != nil {
		return nil, err
	}

	b.report(ctx, session, fmt.Sprintf("%s PART: \x02%s\x02", caller.Source, name))

	return []string{msgDone}, nil
}

// report posts an administrative event. Failures are only logged.
func (b *Bot) report(ctx context.Context, session Session, msg string) {
	if _, err := b.reporter.Report(ctx, session, "", "", msg); err != nil {
		b.logger.Error("Failed to send report", zap.Error(err))
	}
}
