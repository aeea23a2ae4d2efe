package database

import (
	"github.com/robalyx/warden/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	entry   *models.EntryModel
	channel *models.ChannelModel
	chanOp  *models.ChanOpModel
	comment *models.CommentModel
	setting *models.SettingModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		entry:   models.NewEntry(db, logger),
		channel: models.NewChannel(db, logger),
		chanOp:  models.NewChanOp(db, logger),
		comment: models.NewComment(db, logger),
		setting: models.NewSetting(db, logger),
	}
}

// Entry returns the moderation entry model.
func (r *Repository) Entry() *models.EntryModel {
	return r.entry
}

// Channel returns the channel model.
func (r *Repository) Channel() *models.ChannelModel {
	return r.channel
}

// ChanOp returns the channel-operator grant model.
func (r *Repository) ChanOp() *models.ChanOpModel {
	return r.chanOp
}

// Comment returns the comment model.
func (r *Repository) Comment() *models.CommentModel {
	return r.comment
}

// Setting returns the runtime setting model.
func (r *Repository) Setting() *models.SettingModel {
	return r.setting
}
