package escalation

import (
	"context"
	"sync"
	"time"

	"SafeHaven/internal/directory"
	"SafeHaven/internal/geo"
	"SafeHaven/internal/models"
	"SafeHaven/internal/store"
	"SafeHaven/pkg/logger"
	"SafeHaven/pkg/metrics"
	"SafeHaven/pkg/notification"

	"go.uber.org/zap"
)

// Config tunes the escalation chain.
type Config struct {
	Timeout     time.Duration // wait per attempt before reassigning
	MaxAttempts int           // total assignments, initial dispatch included
}

// Scheduler owns one cancellable timer per pending alert. Each firing
// re-reads the alert and either reassigns it to the next-nearest
// untried responder or ends the chain. Writes go through the store's
// conditional updates, so a responder acting concurrently always wins
// over a stale timer.
type Scheduler struct {
	cfg      Config
	alerts   *store.AlertStore
	dir      *directory.Directory
	notifier notification.Notifier
	metrics  *metrics.Metrics
	clock    Clock

	mu     sync.Mutex
	timers map[uint]Timer
}

func NewScheduler(cfg Config, alerts *store.AlertStore, dir *directory.Directory, notifier notification.Notifier, m *metrics.Metrics, clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	if notifier == nil {
		notifier = notification.Nop{}
	}
	return &Scheduler{
		cfg:      cfg,
		alerts:   alerts,
		dir:      dir,
		notifier: notifier,
		metrics:  m,
		clock:    clock,
		timers:   make(map[uint]Timer),
	}
}

// Arm schedules the next escalation check for an alert. attempt is the
// number of assignments already made. An existing timer for the alert
// is replaced.
func (s *Scheduler) Arm(alertID uint, attempt int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[alertID]; ok {
		t.Stop()
	}
	s.timers[alertID] = s.clock.AfterFunc(s.cfg.Timeout, func() {
		s.fire(alertID, attempt)
	})
}

// Cancel releases the alert's timer, if any. Called when an alert
// reaches a state that no longer needs escalation. A firing that slips
// through anyway is harmless: it re-reads the status and stops.
func (s *Scheduler) Cancel(alertID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[alertID]; ok {
		t.Stop()
		delete(s.timers, alertID)
	}
}

// Armed reports whether the alert currently has a pending timer.
func (s *Scheduler) Armed(alertID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[alertID]
	return ok
}

// Stop cancels every pending timer. In-flight firings finish on their
// own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) fire(alertID uint, attempt int) {
	s.mu.Lock()
	delete(s.timers, alertID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		logger.Error("escalation: reload alert failed", zap.Uint("alert_id", alertID), zap.Error(err))
		return
	}
	if alert == nil {
		return
	}
	if alert.Status != models.StatusPending {
		// the responder acted or the requester cancelled; chain over
		s.metrics.EscalationSuperseded()
		return
	}

	if attempt >= s.cfg.MaxAttempts {
		s.exhaust(ctx, alertID, "max attempts reached")
		return
	}

	tried, attempts, err := s.alerts.AttemptedResponders(ctx, alertID)
	if err != nil {
		logger.Error("escalation: load routing history failed", zap.Uint("alert_id", alertID), zap.Error(err))
		return
	}
	if attempts > attempt {
		attempt = attempts
		if attempt >= s.cfg.MaxAttempts {
			s.exhaust(ctx, alertID, "max attempts reached")
			return
		}
	}

	origin := geo.Coordinate{Latitude: alert.Latitude, Longitude: alert.Longitude}
	next, err := s.dir.FindNearest(ctx, origin, tried)
	if err != nil {
		logger.Error("escalation: candidate lookup failed", zap.Uint("alert_id", alertID), zap.Error(err))
		return
	}
	if next == nil {
		s.exhaust(ctx, alertID, "no untried responder left")
		return
	}

	reassigned, err := s.alerts.Reassign(ctx, alertID, next.ID, s.clock.Now())
	if err != nil {
		logger.Error("escalation: reassign failed", zap.Uint("alert_id", alertID), zap.Error(err))
		return
	}
	if !reassigned {
		// lost the race against a status update between reload and write
		s.metrics.EscalationSuperseded()
		return
	}

	s.metrics.Escalated()
	logger.Info("alert escalated",
		zap.Uint("alert_id", alertID),
		zap.Uint("responder_id", next.ID),
		zap.Float64("distance_km", next.DistanceKM),
		zap.Int("attempt", attempt+1))

	notification.NotifyDispatch(s.notifier, next.PushToken, alertID, next.ID, alert.UserName)
	s.Arm(alertID, attempt+1)
}

func (s *Scheduler) exhaust(ctx context.Context, alertID uint, reason string) {
	if err := s.alerts.MarkExhausted(ctx, alertID); err != nil {
		logger.Error("escalation: mark exhausted failed", zap.Uint("alert_id", alertID), zap.Error(err))
	}
	s.metrics.EscalationExhausted()
	logger.Warn("escalation chain exhausted, alert needs manual intervention",
		zap.Uint("alert_id", alertID), zap.String("reason", reason))
}

// RearmPending re-creates timers for pending alerts that have none,
// e.g. after a restart dropped the in-memory state. Alerts younger than
// the timeout get a fresh full timer; older ones are evaluated now.
func (s *Scheduler) RearmPending(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.cfg.Timeout)
	stale, err := s.alerts.StalePending(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, alert := range stale {
		if s.Armed(alert.ID) {
			continue
		}
		_, attempts, err := s.alerts.AttemptedResponders(ctx, alert.ID)
		if err != nil {
			logger.Error("sweep: load routing history failed", zap.Uint("alert_id", alert.ID), zap.Error(err))
			continue
		}
		logger.Info("sweep: re-evaluating stale pending alert",
			zap.Uint("alert_id", alert.ID), zap.Int("attempts", attempts))
		s.fire(alert.ID, attempts)
	}
	return nil
}
