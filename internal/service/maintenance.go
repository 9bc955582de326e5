package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TokenPurger removes dead refresh and reset tokens.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// MaintenanceService holds the periodic housekeeping jobs.
type MaintenanceService struct {
	tokens TokenPurger
	events *EventService
	window time.Duration
	log    zerolog.Logger
}

func NewMaintenanceService(tokens TokenPurger, events *EventService, reminderWindow time.Duration, log zerolog.Logger) *MaintenanceService {
	return &MaintenanceService{tokens: tokens, events: events, window: reminderWindow, log: log.With().Str("service", "maintenance").Logger()}
}

// PurgeTokens deletes expired or revoked refresh tokens and used or
// expired reset tokens.
func (s *MaintenanceService) PurgeTokens(ctx context.Context) error {
	n, err := s.tokens.PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		return fail(s.log, err, "purge tokens")
	}
	s.log.Info().Int64("rows", n).Msg("tokens purged")
	return nil
}

// SendReminders notifies ticket holders of events starting soon.
func (s *MaintenanceService) SendReminders(ctx context.Context) error {
	n, err := s.events.SendReminders(ctx, s.window)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info().Int("events", n).Msg("event reminders sent")
	}
	return nil
}
