package service

import (
	"context"

	"github.com/newsroom-authoring-api/internal/models"
	"github.com/newsroom-authoring-api/internal/profile"
	"github.com/newsroom-authoring-api/internal/repository"
	"github.com/rs/zerolog"
)

// autosaveService is the concrete implementation of AutosaveService
type autosaveService struct {
	autosaves repository.AutosaveRepository
	log       zerolog.Logger
}

func newAutosaveService(autosaves repository.AutosaveRepository, log zerolog.Logger) *autosaveService {
	return &autosaveService{
		autosaves: autosaves,
		log:       log.With().Str("service", "autosave").Logger(),
	}
}

func (s *autosaveService) Get(ctx context.Context, itemID string) (*models.AutosaveRecord, error) {
	return s.autosaves.Get(ctx, itemID)
}

func (s *autosaveService) Put(ctx context.Context, record *models.AutosaveRecord) error {
	s.log.Debug().Str("item_id", record.ItemID).Msg("Autosave record written")
	return s.autosaves.Upsert(ctx, record)
}

func (s *autosaveService) Delete(ctx context.Context, itemID string) error {
	return s.autosaves.Delete(ctx, itemID)
}

func (s *autosaveService) Count(ctx context.Context) (int, error) {
	return s.autosaves.Count(ctx)
}

// profileService is the concrete implementation of ProfileService
type profileService struct {
	profiles repository.ProfileRepository
}

func newProfileService(profiles repository.ProfileRepository) *profileService {
	return &profileService{profiles: profiles}
}

func (s *profileService) GetSchema(ctx context.Context, id string) (*profile.Schema, error) {
	return s.profiles.GetByID(ctx, id)
}
