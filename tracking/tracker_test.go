package tracking

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/1rvyn/movie-tier-predictor/database"
	"github.com/1rvyn/movie-tier-predictor/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type appendCall struct {
	spreadsheetID string
	worksheet     string
	row           []any
}

// appendGate holds the next append open until release is closed.
type appendGate struct {
	entered chan struct{}
	release chan struct{}
}

func newAppendGate() *appendGate {
	return &appendGate{entered: make(chan struct{}), release: make(chan struct{})}
}

type fakeAppender struct {
	mu    sync.Mutex
	calls []appendCall
	err   error
	gate  *appendGate
}

func (f *fakeAppender) AppendRow(_ context.Context, id, ws string, row []any) error {
	f.mu.Lock()
	gate, err := f.gate, f.err
	f.gate = nil
	f.mu.Unlock()

	if gate != nil {
		close(gate.entered)
		<-gate.release
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, appendCall{id, ws, row})
	return nil
}

func (f *fakeAppender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "tracking.db"), zap.NewNop())
	require.NoError(t, err)
	return db
}

func TestLoginRow(t *testing.T) {
	at := time.Date(2024, 10, 5, 14, 3, 9, 0, time.Local)
	assert.Equal(t, []any{"jsmith", "2024-10-05 14:03:09"}, LoginRow("jsmith", at))
}

func TestSheetsTrackerAppends(t *testing.T) {
	app := &fakeAppender{}
	tr := NewSheetsTracker(app, "sheet-id", "movie_app")

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	require.NoError(t, tr.TrackLogin(context.Background(), "jsmith", at))

	require.Len(t, app.calls, 1)
	assert.Equal(t, "sheet-id", app.calls[0].spreadsheetID)
	assert.Equal(t, "movie_app", app.calls[0].worksheet)
	assert.Equal(t, []any{"jsmith", "2024-01-02 03:04:05"}, app.calls[0].row)
}

func TestRecorderSyncsToSheet(t *testing.T) {
	db := testDB(t)
	app := &fakeAppender{}
	r := NewRecorder(db, NewSheetsTracker(app, "id", "movie_app"), zap.NewNop())

	require.NoError(t, r.TrackLogin(context.Background(), "jsmith", time.Now()))

	assert.Len(t, app.calls, 1)
	var event models.LoginEvent
	require.NoError(t, db.First(&event).Error)
	assert.Equal(t, "jsmith", event.Username)
	assert.True(t, event.Synced)
}

func TestRecorderKeepsLoginWhenSheetFails(t *testing.T) {
	db := testDB(t)
	app := &fakeAppender{err: errors.New("quota exceeded")}
	r := NewRecorder(db, NewSheetsTracker(app, "id", "movie_app"), zap.NewNop())

	err := r.TrackLogin(context.Background(), "jsmith", time.Now())
	assert.Error(t, err)

	var event models.LoginEvent
	require.NoError(t, db.First(&event).Error)
	assert.False(t, event.Synced)

	app.err = nil
	sent, err := r.SyncPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.NoError(t, db.First(&event).Error)
	assert.True(t, event.Synced)

	sent, err = r.SyncPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestSyncPendingOrder(t *testing.T) {
	db := testDB(t)
	app := &fakeAppender{err: errors.New("offline")}
	r := NewRecorder(db, NewSheetsTracker(app, "id", "movie_app"), zap.NewNop())

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	_ = r.TrackLogin(context.Background(), "second", base.Add(time.Hour))
	_ = r.TrackLogin(context.Background(), "first", base)

	app.err = nil
	sent, err := r.SyncPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, sent)
	assert.Equal(t, "first", app.calls[0].row[0])
	assert.Equal(t, "second", app.calls[1].row[0])
}

func TestRecorderWithoutSheet(t *testing.T) {
	db := testDB(t)
	r := NewRecorder(db, nil, zap.NewNop())

	require.NoError(t, r.TrackLogin(context.Background(), "jsmith", time.Now()))
	require.NoError(t, r.TrackLogin(context.Background(), "rbriggs", time.Now().Add(time.Second)))

	sent, err := r.SyncPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	recent, err := r.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "rbriggs", recent[0].Username)
}

func TestSyncPendingSkipsLoginBeingSent(t *testing.T) {
	db := testDB(t)
	gate := newAppendGate()
	app := &fakeAppender{gate: gate}
	r := NewRecorder(db, NewSheetsTracker(app, "id", "movie_app"), zap.NewNop())

	done := make(chan error, 1)
	go func() {
		done <- r.TrackLogin(context.Background(), "jsmith", time.Now())
	}()
	<-gate.entered

	sent, err := r.SyncPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	close(gate.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, app.count())

	sent, err = r.SyncPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 1, app.count())
}

func TestConcurrentSyncPendingSendsOnce(t *testing.T) {
	db := testDB(t)
	app := &fakeAppender{err: errors.New("offline")}
	r := NewRecorder(db, NewSheetsTracker(app, "id", "movie_app"), zap.NewNop())
	require.Error(t, r.TrackLogin(context.Background(), "jsmith", time.Now()))

	gate := newAppendGate()
	app.err = nil
	app.gate = gate

	type result struct {
		sent int
		err  error
	}
	first := make(chan result, 1)
	go func() {
		sent, err := r.SyncPending(context.Background())
		first <- result{sent, err}
	}()
	<-gate.entered

	sent, err := r.SyncPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	close(gate.release)
	got := <-first
	require.NoError(t, got.err)
	assert.Equal(t, 1, got.sent)
	assert.Equal(t, 1, app.count())
}

func TestFailedSendIsReleasedForRetry(t *testing.T) {
	db := testDB(t)
	app := &fakeAppender{}
	r := NewRecorder(db, NewSheetsTracker(app, "id", "movie_app"), zap.NewNop())
	require.NoError(t, r.TrackLogin(context.Background(), "first", time.Now()))

	app.err = errors.New("offline")
	require.Error(t, r.TrackLogin(context.Background(), "second", time.Now()))
	sent, err := r.SyncPending(context.Background())
	assert.Error(t, err)
	assert.Zero(t, sent)

	var pending int64
	require.NoError(t, db.Model(&models.LoginEvent{}).Where("synced = ?", false).Count(&pending).Error)
	assert.Equal(t, int64(1), pending)
}
