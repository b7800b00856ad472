// Package tracking records successful logins to the tracking spreadsheet and
// keeps a local mirror so failed appends can be retried.
package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/1rvyn/movie-tier-predictor/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Tracker records one login.
type Tracker interface {
	TrackLogin(ctx context.Context, username string, at time.Time) error
}

// Recorder stores every login locally and forwards it to the sheet when one
// is configured. A nil sheet tracker keeps only the local mirror.
type Recorder struct {
	db    *gorm.DB
	sheet Tracker
	log   *zap.Logger
}

func NewRecorder(db *gorm.DB, sheet Tracker, log *zap.Logger) *Recorder {
	return &Recorder{db: db, sheet: sheet, log: log}
}

// TrackLogin stores the login and sends it to the sheet. With a sheet the
// row is created already claimed (synced), so a concurrent SyncPending never
// picks it up; a failed send releases it for retry.
func (r *Recorder) TrackLogin(ctx context.Context, username string, at time.Time) error {
	event := models.LoginEvent{Username: username, LoginTime: at, Synced: r.sheet != nil}
	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("failed to store login event: %w", err)
	}

	if r.sheet == nil {
		return nil
	}
	if err := r.sheet.TrackLogin(ctx, username, at); err != nil {
		r.release(event.ID)
		return fmt.Errorf("login stored locally but not in sheet: %w", err)
	}
	return nil
}

// claim marks an unsynced row as synced. It reports false when another
// sender got there first.
func (r *Recorder) claim(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.LoginEvent{}).
		Where("id = ? AND synced = ?", id, false).
		Update("synced", true)
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim login event: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// release hands a claimed row back to SyncPending. It runs on a fresh
// context so a cancelled request still leaves the row retryable.
func (r *Recorder) release(id string) {
	err := r.db.Model(&models.LoginEvent{}).
		Where("id = ?", id).
		Update("synced", false).Error
	if err != nil {
		r.log.Error("failed to release login event", zap.String("id", id), zap.Error(err))
	}
}

// SyncPending re-sends logins the sheet missed, oldest first. Each row is
// claimed before it is sent, so concurrent callers never send one twice. It
// stops at the first failure and returns how many rows were sent.
func (r *Recorder) SyncPending(ctx context.Context) (int, error) {
	if r.sheet == nil {
		return 0, nil
	}

	var pending []models.LoginEvent
	err := r.db.WithContext(ctx).
		Where("synced = ?", false).
		Order("login_time asc").
		Find(&pending).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list pending logins: %w", err)
	}

	sent := 0
	for _, event := range pending {
		ok, err := r.claim(ctx, event.ID)
		if err != nil {
			return sent, err
		}
		if !ok {
			continue
		}
		if err := r.sheet.TrackLogin(ctx, event.Username, event.LoginTime); err != nil {
			r.release(event.ID)
			return sent, fmt.Errorf("failed to sync login %s: %w", event.ID, err)
		}
		sent++
	}

	if sent > 0 {
		r.log.Info("synced pending logins", zap.Int("count", sent))
	}
	return sent, nil
}

// Recent lists the latest logins, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]models.LoginEvent, error) {
	var events []models.LoginEvent
	err := r.db.WithContext(ctx).Order("login_time desc").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list logins: %w", err)
	}
	return events, nil
}
