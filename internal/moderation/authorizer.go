package moderation

import (
	"context"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/database/types"
	"go.uber.org/zap"
)

// globEscaper escapes glob syntax that is literal in hostmasks.
var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`[`, `\[`,
	`]`, `\]`,
	`{`, `\{`,
	`}`, `\}`,
)

// Authorizer decides who may inspect or modify an entry.
type Authorizer struct {
	admins []string
	db     database.Client
	logger *zap.Logger
}

// NewAuthorizer creates an Authorizer for the given admin hostmask globs.
func NewAuthorizer(admins []string, db database.Client, logger *zap.Logger) (*Authorizer, error) {
	for _, mask := range admins {
		if _, err := compileMask(mask); err != nil {
			return nil, fmt.Errorf("invalid admin mask %q: %w", mask, err)
		}
	}

	return &Authorizer{
		admins: admins,
		db:     db,
		logger: logger.Named("authorizer"),
	}, nil
}

// IsAdmin reports whether the caller's source matches an admin mask.
func (a *Authorizer) IsAdmin(caller Caller) bool {
	source := caller.Fold(caller.Source)

	for _, mask := range a.admins {
		g, err := compileMask(caller.Fold(mask))
		if err != nil {
			continue
		}
		if g.Match(source) {
			return true
		}
	}
	return false
}

// IsChanOp reports whether the caller's account holds a grant on the channel.
func (a *Authorizer) IsChanOp(ctx context.Context, channelID int64, caller Caller) (bool, error) {
	if !caller.HasAccount() {
		return false, nil
	}
	return a.db.Model().ChanOp().IsGranted(ctx, channelID, caller.Fold(caller.Account))
}

// IsAuthorized reports whether the caller may see or change an entry: admins,
// the entry's setter and granted channel operators are allowed.
func (a *Authorizer) IsAuthorized(ctx context.Context, entry *types.Entry, caller Caller) (bool, error) {
	if a.IsAdmin(caller) {
		return true, nil
	}
	if caller.Fold(entry.Setter) == caller.Fold(caller.Source) {
		return true, nil
	}
	return a.IsChanOp(ctx, entry.ChannelID, caller)
}

func compileMask(mask string) (glob.Glob, error) {
	return glob.Compile(globEscaper.Replace(mask))
}
