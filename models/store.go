package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumeha/presence/engine"
)

type storeCtxKey int

const requestIDKey storeCtxKey = 0

// WithRequestID tags a context with the client request id stamped onto rows
// created during the call, for audit correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func requestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// AttendanceStore adapts gorm persistence to the engine's Store contract.
type AttendanceStore struct {
	db *gorm.DB
}

// NewAttendanceStore wraps a gorm connection.
func NewAttendanceStore(db *gorm.DB) *AttendanceStore {
	return &AttendanceStore{db: db}
}

func toEngineRecord(row *AttendanceRecord) *engine.Record {
	return &engine.Record{
		ID:            row.ID,
		UserID:        row.UserID,
		SessionTypeID: row.SessionTypeID,
		CheckInTime:   row.CheckInTime,
		CheckOutTime:  row.CheckOutTime,
		CheckInLat:    row.CheckInLat,
		CheckInLon:    row.CheckInLon,
		CheckOutLat:   row.CheckOutLat,
		CheckOutLon:   row.CheckOutLon,
		TotalHours:    row.TotalHours,
		Status:        engine.Status(row.Status),
		Method:        engine.Method(row.Method),
	}
}

// CreateRecord persists a fresh check-in. The active-record invariant is
// re-checked inside the transaction with a row lock: the engine validates
// it from current state first, but two devices racing past that read would
// otherwise both insert.
func (s *AttendanceStore) CreateRecord(ctx context.Context, rec *engine.Record) error {
	row := &AttendanceRecord{
		UserID:        rec.UserID,
		SessionTypeID: rec.SessionTypeID,
		CheckInTime:   rec.CheckInTime,
		CheckInLat:    rec.CheckInLat,
		CheckInLon:    rec.CheckInLon,
		Status:        string(rec.Status),
		Method:        string(rec.Method),
		RequestID:     requestIDFrom(ctx),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open AttendanceRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND check_out_time IS NULL", rec.UserID).
			First(&open).Error
		if err == nil {
			return engine.ErrAlreadyActive
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(row).Error
	})
	if err != nil {
		return err
	}
	rec.ID = row.ID
	return nil
}

// UpdateRecord applies the check-out mutation to an existing row.
func (s *AttendanceStore) UpdateRecord(ctx context.Context, rec *engine.Record) error {
	res := s.db.WithContext(ctx).Model(&AttendanceRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"check_out_time": rec.CheckOutTime,
			"check_out_lat":  rec.CheckOutLat,
			"check_out_lon":  rec.CheckOutLon,
			"total_hours":    rec.TotalHours,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return engine.ErrRecordNotFound
	}
	return nil
}

// FindActiveRecord returns the user's open record, or nil when none exists.
func (s *AttendanceStore) FindActiveRecord(ctx context.Context, userID uint) (*engine.Record, error) {
	var row AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND check_out_time IS NULL", userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toEngineRecord(&row), nil
}

// ListSessionTypes returns scheduled work windows as engine values.
func (s *AttendanceStore) ListSessionTypes(ctx context.Context, activeOnly bool) ([]engine.SessionType, error) {
	var rows []SessionType
	q := s.db.WithContext(ctx).Order("id")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]engine.SessionType, 0, len(rows))
	for _, r := range rows {
		out = append(out, engine.SessionType{ID: r.ID, Name: r.Name, StartTime: r.StartTime, EndTime: r.EndTime})
	}
	return out, nil
}

// ListSites returns geofence sites as engine values.
func (s *AttendanceStore) ListSites(ctx context.Context, activeOnly bool) ([]engine.Site, error) {
	var rows []CompanyLocation
	q := s.db.WithContext(ctx).Order("id")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]engine.Site, 0, len(rows))
	for _, r := range rows {
		out = append(out, engine.Site{ID: r.ID, Name: r.Name, Latitude: r.Latitude, Longitude: r.Longitude, RadiusMeters: r.RadiusMeters})
	}
	return out, nil
}

// StoredTemplate returns the user's reference embedding, or nil when the
// user has not enrolled. An unreadable column surfaces as a corrupt
// template so verification fails closed.
func (s *AttendanceStore) StoredTemplate(ctx context.Context, userID uint) ([]float64, error) {
	var row FaceTemplate
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := row.DecodeVector(); err != nil {
		return nil, engine.ErrTemplateCorrupt
	}
	return row.Vector, nil
}

// SaveTemplate upserts the user's reference embedding.
func (s *AttendanceStore) SaveTemplate(ctx context.Context, userID uint, template []float64) error {
	row := FaceTemplate{UserID: userID, Vector: template, EnrolledAt: time.Now(), UpdatedAt: time.Now()}
	if err := row.EncodeVector(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"embedding": row.Embedding, "updated_at": time.Now()}),
	}).Create(&row).Error
}
