// Package sessions mediates every state transition of a worker's shift:
// check-in, pause and resume, checklist and notes edits, and check-out.
package sessions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fieldcrew/shiftlog/pkg/activeguard"
	"github.com/fieldcrew/shiftlog/pkg/core/clock"
	"github.com/fieldcrew/shiftlog/pkg/core/model"
	"github.com/fieldcrew/shiftlog/pkg/core/shifterr"
	"github.com/fieldcrew/shiftlog/pkg/db"
	"github.com/fieldcrew/shiftlog/pkg/evidence"
)

// Policy holds the configurable lifecycle rules
type Policy struct {
	// RequireEndEvidence blocks check-out until an end photo is stored
	RequireEndEvidence bool
	// Location is used to derive the local calendar date of a shift. Defaults to time.Local.
	Location *time.Location
}

// StartShiftInput carries everything captured at check-in
type StartShiftInput struct {
	WorkerID     string `validate:"required"`
	LocationName string `validate:"required"`
	Address      string
	Checklist    map[string]bool
	Evidence     *evidence.Upload
	Location     *model.GeoLocation
	ScheduleID   string
	Notes        string
}

// EndShiftInput carries everything captured at check-out
type EndShiftInput struct {
	Evidence *evidence.Upload
	Location *model.GeoLocation
	Notes    string
}

// Manager owns the shift lifecycle for all workers
type Manager struct {
	store    db.RecordStore
	evidence evidence.Store
	guard    activeguard.Guard
	now      clock.Now
	logger   *zap.Logger
	policy   Policy
	validate *validator.Validate
}

// NewManager creates a Manager. A nil evidence store rejects any upload; a nil now uses time.Now.
func NewManager(
	store db.RecordStore,
	evidenceStore evidence.Store,
	guard activeguard.Guard,
	now clock.Now,
	logger *zap.Logger,
	policy Policy,
) *Manager {
	if now == nil {
		now = time.Now
	}
	if policy.Location == nil {
		policy.Location = time.Local
	}
	return &Manager{
		store:    store,
		evidence: evidenceStore,
		guard:    guard,
		now:      now,
		logger:   logger,
		policy:   policy,
		validate: validator.New(),
	}
}

// Policy returns the lifecycle rules the manager was built with
func (m *Manager) Policy() Policy {
	return m.policy
}

// GetActiveSession returns the worker's open shift, or nil if there is none.
// More than one open shift is corruption and is reported, never resolved.
func (m *Manager) GetActiveSession(ctx context.Context, workerID string) (*model.ShiftRecord, error) {
	const op = "getActiveSession"

	rows, err := m.store.QueryShiftRecords(ctx, db.ShiftFilter{WorkerID: workerID, OpenOnly: true})
	if err != nil {
		return nil, shifterr.Wrap(shifterr.StorageFailure, op, err, "failed to query open shifts")
	}

	var open []db.ShiftRecordRow
	for _, row := range rows {
		if row.WorkerID == workerID && row.IsOpen() {
			open = append(open, row)
		}
	}

	switch len(open) {
	case 0:
		return nil, nil
	case 1:
		rec, err := model.FromRow(&open[0])
		if err != nil {
			return nil, shifterr.Wrap(shifterr.StorageFailure, op, err, "stored shift is unreadable")
		}
		return rec, nil
	default:
		ids := make([]string, len(open))
		for i, row := range open {
			ids[i] = row.ID
		}
		m.logger.Error("Worker has more than one open shift",
			zap.String("worker_id", workerID),
			zap.Strings("record_ids", ids))
		return nil, shifterr.New(shifterr.InvariantViolation, op,
			"worker %s has %d open shifts: %s", workerID, len(open), strings.Join(ids, ", "))
	}
}

// StartShift opens a new shift for the worker. Evidence, when provided, is stored first;
// if that fails no record is written.
func (m *Manager) StartShift(ctx context.Context, in StartShiftInput) (*model.ShiftRecord, error) {
	const op = "startShift"

	in.WorkerID = strings.TrimSpace(in.WorkerID)
	in.LocationName = strings.TrimSpace(in.LocationName)
	in.Address = strings.TrimSpace(in.Address)

	if err := m.validate.Struct(in); err != nil {
		return nil, shifterr.Wrap(shifterr.Validation, op, err, "invalid check-in")
	}

	checklist, err := model.NewChecklist(in.Checklist)
	if err != nil {
		return nil, shifterr.Wrap(shifterr.Validation, op, err, "invalid safety checklist")
	}

	if in.Evidence != nil && len(in.Evidence.Data) == 0 {
		return nil, shifterr.New(shifterr.Validation, op, "check-in photo is empty")
	}

	logger := m.logger.With(zap.String("worker_id", in.WorkerID))
	logger.Debug("Starting shift", zap.String("location", in.LocationName))

	release, err := m.guard.Acquire(ctx, in.WorkerID)
	if errors.Is(err, activeguard.ErrHeld) {
		return nil, shifterr.Wrap(shifterr.Validation, op, err, "worker %s already has a shift being started", in.WorkerID)
	}
	if err != nil {
		return nil, shifterr.Wrap(shifterr.StorageFailure, op, err, "failed to claim active-session guard")
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to release active-session guard", zap.Error(err))
		}
	}()

	active, err := m.GetActiveSession(ctx, in.WorkerID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, shifterr.New(shifterr.Validation, op,
			"worker %s already has an open shift (%s)", in.WorkerID, active.ID)
	}

	var photoRef string
	if in.Evidence != nil {
		photoRef, err = m.upload(ctx, in.Evidence)
		if err != nil {
			return nil, shifterr.Wrap(shifterr.StorageFailure, op, err, "failed to store check-in photo")
		}
		logger.Debug("Stored check-in photo", zap.String("ref", photoRef))
	}

	now := m.now()
	rec := &model.ShiftRecord{
		WorkerID:        in.WorkerID,
		ScheduleID:      in.ScheduleID,
		LocationName:    in.LocationName,
		Address:         in.Address,
		Date:            now.In(m.policy.Location).Format(model.DateLayout),
		StartTime:       now.UTC(),
		SafetyChecklist: checklist,
		StartLocation:   in.Location,
		StartPhotoRef:   photoRef,
		Notes:           in.Notes,
	}

	id, err := m.store.CreateShiftRecord(ctx, model.ToRow(rec))
	if err != nil {
		if photoRef != "" {
			logger.Warn("Check-in photo stored but shift was not created", zap.String("ref", photoRef))
		}
		if errors.Is(err, db.ErrOpenSessionExists) {
			return nil, shifterr.Wrap(shifterr.Validation, op, err, "worker %s already has an open shift", in.WorkerID)
		}
		return nil, shifterr.Wrap(shifterr.StorageFailure, op, err, "failed to create shift")
	}
	rec.ID = id

	logger.Info("Shift started",
		zap.String("shift_id", id),
		zap.String("location", rec.LocationName),
		zap.String("date", rec.Date))

	return rec, nil
}

// TogglePause pauses a running shift or resumes a paused one
func (m *Manager) TogglePause(ctx context.Context, session *model.ShiftRecord) (*model.ShiftRecord, error) {
	const op = "togglePause"

	rec, err := m.openShift(ctx, op, session)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	patch := db.ShiftPatch{IfPausedAt: pausedAtAsRead(rec)}
	if !rec.IsPaused {
		rec.IsPaused = true
		rec.PausedAt = &now
		paused := model.FormatTimestamp(now)
		patch.IsPaused = &rec.IsPaused
		patch.PausedAt = &paused
	} else {
		rec.TotalPausedMs += m.pausedSince(rec, now)
		rec.IsPaused = false
		rec.PausedAt = nil
		cleared := ""
		patch.IsPaused = &rec.IsPaused
		patch.PausedAt = &cleared
		patch.TotalPausedMs = &rec.TotalPausedMs
	}

	if err := m.update(ctx, op, rec.ID, patch); err != nil {
		return nil, err
	}

	m.logger.Info("Shift pause toggled",
		zap.String("shift_id", rec.ID),
		zap.Bool("paused", rec.IsPaused),
		zap.Int64("total_paused_ms", rec.TotalPausedMs))

	return rec, nil
}

// EndShift closes the open shift with the given id. Any pause in progress is folded
// into the paused total first.
func (m *Manager) EndShift(ctx context.Context, sessionID string, in EndShiftInput) error {
	const op = "endShift"

	rec, err := m.load(ctx, op, sessionID)
	if err != nil {
		return err
	}
	if !rec.IsOpen() {
		return shifterr.New(shifterr.NotFound, op, "no open shift with id %s", sessionID)
	}

	logger := m.logger.With(zap.String("worker_id", rec.WorkerID), zap.String("shift_id", rec.ID))

	hasPhoto := in.Evidence != nil && len(in.Evidence.Data) > 0
	if m.policy.RequireEndEvidence && !hasPhoto {
		return shifterr.New(shifterr.Validation, op, "a check-out photo is required")
	}

	var photoRef string
	if hasPhoto {
		photoRef, err = m.upload(ctx, in.Evidence)
		if err != nil {
			if m.policy.RequireEndEvidence {
				return shifterr.Wrap(shifterr.StorageFailure, op, err, "failed to store check-out photo")
			}
			logger.Warn("Check-out photo upload failed, closing shift without it", zap.Error(err))
			photoRef = ""
		}
	}

	now := m.now().UTC()
	if rec.IsPaused {
		rec.TotalPausedMs += m.pausedSince(rec, now)
	}

	end := now
	if end.Before(rec.StartTime) {
		logger.Warn("Check-out time is before check-in time, clamping",
			zap.Time("start", rec.StartTime),
			zap.Time("now", now))
		end = rec.StartTime
	}

	endStr := model.FormatTimestamp(end)
	notPaused := false
	cleared := ""
	patch := db.ShiftPatch{
		EndTime:       &endStr,
		IsPaused:      &notPaused,
		PausedAt:      &cleared,
		TotalPausedMs: &rec.TotalPausedMs,
		EndLocation:   model.PointFromGeo(in.Location),
		IfPausedAt:    pausedAtAsRead(rec),
	}
	if photoRef != "" {
		patch.EndPhotoRef = &photoRef
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		patch.Notes = &notes
	}

	if err := m.update(ctx, op, rec.ID, patch); err != nil {
		if shifterr.Is(err, shifterr.InvalidState) && !errors.Is(err, db.ErrStaleRecord) {
			return shifterr.New(shifterr.NotFound, op, "no open shift with id %s", sessionID)
		}
		return err
	}

	rec.EndTime = &end
	worked := clock.Elapsed(clock.Input{
		Start:       rec.StartTime,
		End:         rec.EndTime,
		TotalPaused: rec.TotalPaused(),
	})
	logger.Info("Shift ended",
		zap.Duration("worked", worked.Worked),
		zap.Int64("total_paused_ms", rec.TotalPausedMs),
		zap.Bool("end_photo", photoRef != ""))

	return nil
}

// UpdateChecklist sets one checklist flag on an open shift
func (m *Manager) UpdateChecklist(ctx context.Context, session *model.ShiftRecord, key string, value bool) (*model.ShiftRecord, error) {
	const op = "updateChecklist"

	rec, err := m.openShift(ctx, op, session)
	if err != nil {
		return nil, err
	}

	if err := rec.SafetyChecklist.Set(key, value); err != nil {
		return nil, shifterr.Wrap(shifterr.Validation, op, err, "invalid checklist item")
	}

	if err := m.update(ctx, op, rec.ID, db.ShiftPatch{SafetyChecklist: rec.SafetyChecklist.Map()}); err != nil {
		return nil, err
	}

	m.logger.Debug("Checklist updated",
		zap.String("shift_id", rec.ID),
		zap.String("key", key),
		zap.Bool("value", value))

	return rec, nil
}

// UpdateNotes replaces the free-text notes on an open shift
func (m *Manager) UpdateNotes(ctx context.Context, session *model.ShiftRecord, notes string) (*model.ShiftRecord, error) {
	const op = "updateNotes"

	rec, err := m.openShift(ctx, op, session)
	if err != nil {
		return nil, err
	}

	rec.Notes = notes
	if err := m.update(ctx, op, rec.ID, db.ShiftPatch{Notes: &notes}); err != nil {
		return nil, err
	}

	return rec, nil
}

// Shift loads a single shift by id
func (m *Manager) Shift(ctx context.Context, id string) (*model.ShiftRecord, error) {
	return m.load(ctx, "getShift", id)
}

// openShift reloads session from the store and checks it may still be edited
func (m *Manager) openShift(ctx context.Context, op string, session *model.ShiftRecord) (*model.ShiftRecord, error) {
	if session == nil {
		return nil, shifterr.New(shifterr.Validation, op, "no shift given")
	}
	if !session.IsOpen() {
		return nil, shifterr.New(shifterr.InvalidState, op, "shift %s is closed", session.ID)
	}

	rec, err := m.load(ctx, op, session.ID)
	if err != nil {
		return nil, err
	}
	if !rec.IsOpen() {
		return nil, shifterr.New(shifterr.InvalidState, op, "shift %s is closed", rec.ID)
	}
	return rec, nil
}

func (m *Manager) load(ctx context.Context, op, id string) (*model.ShiftRecord, error) {
	row, err := m.store.GetShiftRecord(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, shifterr.Wrap(shifterr.NotFound, op, err, "no shift with id %s", id)
	}
	if err != nil {
		return nil, shifterr.Wrap(shifterr.StorageFailure, op, err, "failed to load shift")
	}

	rec, err := model.FromRow(row)
	if err != nil {
		return nil, shifterr.Wrap(shifterr.StorageFailure, op, err, "stored shift is unreadable")
	}
	return rec, nil
}

func (m *Manager) update(ctx context.Context, op, id string, patch db.ShiftPatch) error {
	err := m.store.UpdateShiftRecord(ctx, id, patch)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrRecordClosed):
		return shifterr.Wrap(shifterr.InvalidState, op, err, "shift %s is closed", id)
	case errors.Is(err, db.ErrNotFound):
		return shifterr.Wrap(shifterr.NotFound, op, err, "no shift with id %s", id)
	case errors.Is(err, db.ErrStaleRecord):
		return shifterr.Wrap(shifterr.InvalidState, op, err, "shift %s was changed elsewhere, try again", id)
	default:
		return shifterr.Wrap(shifterr.StorageFailure, op, err, "failed to update shift")
	}
}

func (m *Manager) upload(ctx context.Context, up *evidence.Upload) (string, error) {
	if m.evidence == nil {
		return "", errors.New("no evidence store configured")
	}
	return m.evidence.Upload(ctx, up.Data, up.NameHint)
}

// pausedAtAsRead makes a paused-total write conditional on the pause state it was computed
// from, so one pause interval is never added twice
func pausedAtAsRead(rec *model.ShiftRecord) *string {
	s := ""
	if rec.PausedAt != nil {
		s = model.FormatTimestamp(*rec.PausedAt)
	}
	return &s
}

// pausedSince returns the milliseconds between the shift's pause and now, never negative
func (m *Manager) pausedSince(rec *model.ShiftRecord, now time.Time) int64 {
	if rec.PausedAt == nil {
		m.logger.Warn("Paused shift has no pause timestamp", zap.String("shift_id", rec.ID))
		return 0
	}
	d := now.Sub(*rec.PausedAt)
	if d < 0 {
		m.logger.Warn("Pause timestamp is in the future, ignoring", zap.String("shift_id", rec.ID))
		return 0
	}
	return d.Milliseconds()
}
