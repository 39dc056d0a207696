package store

import (
	"context"
	"errors"
	"time"

	"SafeHaven/internal/models"

	"gorm.io/gorm"
)

// AlertStore persists alerts and their routing history. All status and
// assignee writes are conditional on the previously observed status, so
// a responder action and an escalation timer racing on the same alert
// resolve to exactly one effective transition; the loser sees a false
// return and treats it as a no-op.
type AlertStore struct {
	db *gorm.DB
}

func NewAlertStore(db *gorm.DB) *AlertStore {
	return &AlertStore{db: db}
}

// Create persists a new pending alert and its first routing history row
// in one transaction.
func (s *AlertStore) Create(ctx context.Context, alert *models.Alert, notifiedAt time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		alert.Status = models.StatusPending
		if err := tx.Create(alert).Error; err != nil {
			return err
		}
		entry := models.RoutingHistory{
			AlertID:     alert.ID,
			ResponderID: alert.ResponderID,
			NotifiedAt:  notifiedAt,
		}
		return tx.Create(&entry).Error
	})
}

// GetByID returns the alert, or nil when it does not exist.
func (s *AlertStore) GetByID(ctx context.Context, id uint) (*models.Alert, error) {
	var alert models.Alert
	err := s.db.WithContext(ctx).First(&alert, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// ListByUser returns a requester's alerts, newest first.
func (s *AlertStore) ListByUser(ctx context.Context, userID uint) ([]models.Alert, error) {
	var alerts []models.Alert
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&alerts).Error
	return alerts, err
}

// ListByResponder returns the alerts currently assigned to a responder,
// newest first, optionally filtered by status.
func (s *AlertStore) ListByResponder(ctx context.Context, responderID uint, status string) ([]models.Alert, error) {
	q := s.db.WithContext(ctx).
		Where("security_company_id = ?", responderID).
		Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var alerts []models.Alert
	err := q.Find(&alerts).Error
	return alerts, err
}

// History returns every assignment attempt for an alert in notification
// order.
func (s *AlertStore) History(ctx context.Context, alertID uint) ([]models.RoutingHistory, error) {
	var rows []models.RoutingHistory
	err := s.db.WithContext(ctx).
		Where("alert_id = ?", alertID).
		Order("notified_at ASC").
		Find(&rows).Error
	return rows, err
}

// AttemptedResponders returns the exclusion set for escalation: every
// responder already notified for this alert, plus the attempt count.
func (s *AlertStore) AttemptedResponders(ctx context.Context, alertID uint) (map[uint]struct{}, int, error) {
	rows, err := s.History(ctx, alertID)
	if err != nil {
		return nil, 0, err
	}
	tried := make(map[uint]struct{}, len(rows))
	for _, row := range rows {
		tried[row.ResponderID] = struct{}{}
	}
	return tried, len(rows), nil
}

// Reassign moves a still-pending alert to a new responder and appends
// the routing history row, atomically. Returns false without error when
// the alert left pending in the meantime.
func (s *AlertStore) Reassign(ctx context.Context, alertID, responderID uint, notifiedAt time.Time) (bool, error) {
	reassigned := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Alert{}).
			Where("id = ? AND status = ?", alertID, models.StatusPending).
			Update("security_company_id", responderID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		reassigned = true
		entry := models.RoutingHistory{
			AlertID:     alertID,
			ResponderID: responderID,
			NotifiedAt:  notifiedAt,
		}
		return tx.Create(&entry).Error
	})
	return reassigned, err
}

// TransitionStatus applies a responder-driven status change, guarded on
// both the expected prior status and the current assignee. The
// transition pending -> dispatched also flips the matching routing
// history row to responded. Returns false without error when the guard
// did not match.
func (s *AlertStore) TransitionStatus(ctx context.Context, alertID, responderID uint, from, to string, now time.Time) (bool, error) {
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": to}
		switch to {
		case models.StatusDispatched:
			updates["dispatched_at"] = now
		case models.StatusResolved:
			updates["resolved_at"] = now
		}

		res := tx.Model(&models.Alert{}).
			Where("id = ? AND status = ? AND security_company_id = ?", alertID, from, responderID).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		if to == models.StatusDispatched {
			return tx.Model(&models.RoutingHistory{}).
				Where("alert_id = ? AND security_company_id = ?", alertID, responderID).
				Updates(map[string]interface{}{"responded": true, "responded_at": now}).Error
		}
		return nil
	})
	return applied, err
}

// MarkExhausted stamps the operational marker on an alert whose
// escalation chain ended with nobody responding.
func (s *AlertStore) MarkExhausted(ctx context.Context, alertID uint) error {
	return s.db.WithContext(ctx).Model(&models.Alert{}).
		Where("id = ? AND status = ?", alertID, models.StatusPending).
		Update("escalation_exhausted", true).Error
}

// StalePending lists pending, non-exhausted alerts last updated before
// the cutoff. The restart sweep re-arms escalation timers for them.
func (s *AlertStore) StalePending(ctx context.Context, cutoff time.Time) ([]models.Alert, error) {
	var alerts []models.Alert
	err := s.db.WithContext(ctx).
		Where("status = ? AND escalation_exhausted = ? AND updated_at < ?",
			models.StatusPending, false, cutoff).
		Find(&alerts).Error
	return alerts, err
}
