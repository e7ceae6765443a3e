package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/tailortalk/server/internal/store"
)

// HousekeepingService periodically removes expired sessions and dead flow
// states so the tables don't grow without bound.
type HousekeepingService struct {
	Store    store.Store
	Sessions *SessionService
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, sessions *SessionService, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Sessions: sessions,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop() for a
// graceful shutdown.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the worker, blocking until any in-progress cleanup ends.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup deletes expired records. Each deletion is independent; a failure
// in one doesn't stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	if err := s.Sessions.PurgeExpired(ctx); err != nil {
		s.Logger.Error("failed to purge expired sessions", "error", err)
	}

	if err := s.Store.FlowStates().DeleteExpiredFlowStates(ctx, time.Now().UTC()); err != nil {
		s.Logger.Error("failed to delete expired flow states", "error", err)
	}

	s.Logger.Debug("housekeeping cleanup completed")
}
