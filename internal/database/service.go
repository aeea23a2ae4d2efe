package database

import (
	"github.com/robalyx/warden/internal/database/service"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Service provides access to all business logic services.
type Service struct {
	entry *service.EntryService
}

// NewService creates a new service instance with all services.
func NewService(db *bun.DB, repository *Repository, logger *zap.Logger) *Service {
	return &Service{
		entry: service.NewEntry(db, repository.Entry(), logger),
	}
}

// Entry returns the entry service.
func (s *Service) Entry() *service.EntryService {
	return s.entry
}
