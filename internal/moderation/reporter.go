package moderation

import (
	"context"

	"github.com/robalyx/warden/internal/preference"
	"go.uber.org/zap"
)

// Reporter posts moderation events to the configured report channel.
type Reporter struct {
	prefs  *preference.Store
	logger *zap.Logger
}

// NewReporter creates a Reporter.
func NewReporter(prefs *preference.Store, logger *zap.Logger) *Reporter {
	return &Reporter{
		prefs:  prefs,
		logger: logger.Named("reporter"),
	}
}

// Report sends msg to the report channel. When channel is set, the report is
// only sent if the channel's reportOn setting includes kind. Returns whether
// a report was sent.
func (r *Reporter) Report(ctx context.Context, session Session, kind, channel, msg string) (bool, error) {
	target, err := r.prefs.String(ctx, preference.KeyReportChannel, "")
	if err != nil {
		return false, err
	}
	if target == "" {
		return false, nil
	}

	if channel != "" {
		kinds, err := r.prefs.StringSet(ctx, preference.KeyReportOn, session.Casefold(channel))
		if err != nil {
			return false, err
		}
		if !kinds.Has(kind) {
			return false, nil
		}
	}

	if err := session.Send(ctx, "PRIVMSG", target, msg); err != nil {
		return false, err
	}

	r.logger.Debug("Sent report",
		zap.String("kind", kind),
		zap.String("channel", channel),
		zap.String("target", target))

	return true, nil
}
