package dispatch

import (
	"context"
	"fmt"
	"io"
	"time"

	"SafeHaven/internal/directory"
	"SafeHaven/internal/escalation"
	"SafeHaven/internal/geo"
	"SafeHaven/internal/models"
	"SafeHaven/internal/store"
	"SafeHaven/pkg/errors"
	"SafeHaven/pkg/logger"
	"SafeHaven/pkg/metrics"
	"SafeHaven/pkg/notification"
	stores "SafeHaven/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateAlertInput is a requester's emergency request. Audio is
// optional; when present it is uploaded best-effort.
type CreateAlertInput struct {
	UserID    uint
	Latitude  *float64
	Longitude *float64

	Audio            io.Reader
	AudioContentType string
}

// Engine orchestrates alert creation and responder status updates.
// Media upload and push delivery are fire-and-forget: their failure is
// logged and never fails the alert.
type Engine struct {
	alerts   *store.AlertStore
	profiles *store.ProfileStore
	dir      *directory.Directory
	sched    *escalation.Scheduler
	media    stores.Store // nil disables uploads
	notifier notification.Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewEngine(alerts *store.AlertStore, profiles *store.ProfileStore, dir *directory.Directory, sched *escalation.Scheduler, media stores.Store, notifier notification.Notifier, m *metrics.Metrics) *Engine {
	if notifier == nil {
		notifier = notification.Nop{}
	}
	return &Engine{
		alerts:   alerts,
		profiles: profiles,
		dir:      dir,
		sched:    sched,
		media:    media,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

// CreateAlert validates the request, picks the nearest available
// responder, persists the alert with its first routing history entry,
// and arms the escalation timer.
func (e *Engine) CreateAlert(ctx context.Context, in CreateAlertInput) (*models.Alert, *directory.Candidate, error) {
	if in.Latitude == nil || in.Longitude == nil {
		return nil, nil, errors.Validation("Missing location data")
	}
	origin := geo.Coordinate{Latitude: *in.Latitude, Longitude: *in.Longitude}
	if !origin.Valid() {
		return nil, nil, errors.Validation("Coordinates out of range")
	}

	user, err := e.profiles.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, nil, errors.Internal(err, "load user")
	}
	if user == nil {
		return nil, nil, errors.NotFound("User not found")
	}

	nearest, err := e.dir.FindNearest(ctx, origin, nil)
	if err != nil {
		return nil, nil, errors.Internal(err, "find nearest responder")
	}
	if nearest == nil {
		e.metrics.NoResponderAvailable()
		return nil, nil, errors.Unavailable("No available security companies in your area")
	}

	audioURL := e.uploadAudio(in)

	alert := &models.Alert{
		UserID:      user.ID,
		ResponderID: nearest.ID,
		Latitude:    origin.Latitude,
		Longitude:   origin.Longitude,
		AudioURL:    audioURL,
		UserName:    user.FullName,
		UserPhone:   user.PhoneNumber,
	}
	if err := e.alerts.Create(ctx, alert, e.now()); err != nil {
		return nil, nil, errors.Internal(err, "persist alert")
	}

	e.metrics.AlertCreated()
	logger.Info("alert created",
		zap.Uint("alert_id", alert.ID),
		zap.Uint("user_id", user.ID),
		zap.Uint("responder_id", nearest.ID),
		zap.Float64("distance_km", nearest.DistanceKM))

	notification.NotifyDispatch(e.notifier, nearest.PushToken, alert.ID, nearest.ID, alert.UserName)
	e.sched.Arm(alert.ID, 1)

	return alert, nearest, nil
}

// UpdateStatus applies a responder-driven transition. The write is
// conditional on the status the responder observed; losing the race to
// an escalation timer yields the timer's outcome, not an error.
func (e *Engine) UpdateStatus(ctx context.Context, alertID, responderID uint, newStatus string) (*models.Alert, error) {
	if !models.ValidStatus(newStatus) {
		return nil, errors.Validation("Invalid status")
	}

	alert, err := e.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, errors.Internal(err, "load alert")
	}
	if alert == nil {
		return nil, errors.NotFound("Alert not found")
	}
	if alert.ResponderID != responderID {
		return nil, errors.Authorization("Only the assigned security company can update this alert")
	}
	if !models.CanTransition(alert.Status, newStatus) {
		return nil, errors.Validation(fmt.Sprintf("Cannot move alert from %s to %s", alert.Status, newStatus))
	}

	applied, err := e.alerts.TransitionStatus(ctx, alertID, responderID, alert.Status, newStatus, e.now())
	if err != nil {
		return nil, errors.Internal(err, "update alert status")
	}
	if applied {
		e.metrics.StatusTransition(newStatus)
		if newStatus == models.StatusDispatched || models.TerminalStatus(newStatus) {
			e.sched.Cancel(alertID)
		}
	}

	updated, err := e.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, errors.Internal(err, "reload alert")
	}
	return updated, nil
}

func (e *Engine) uploadAudio(in CreateAlertInput) string {
	if in.Audio == nil || e.media == nil {
		return ""
	}
	contentType := in.AudioContentType
	if contentType == "" {
		contentType = "audio/m4a"
	}
	key := fmt.Sprintf("%d_%s.m4a", in.UserID, uuid.NewString())
	if err := e.media.Write(key, in.Audio, contentType); err != nil {
		logger.Error("audio upload failed", zap.Uint("user_id", in.UserID), zap.Error(err))
		return ""
	}
	return e.media.PublicURL(key)
}
