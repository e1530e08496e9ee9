package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumeha/presence/config"
	"github.com/lumeha/presence/engine"
	"github.com/lumeha/presence/middleware"
	"github.com/lumeha/presence/models"
	"github.com/lumeha/presence/utils"
)

// locationSample is the client-reported positioning fix attached to a
// check-in or check-out request.
type locationSample struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	CapturedAt     time.Time `json:"captured_at"`
}

func (l *locationSample) toPosition() *engine.Position {
	if l == nil {
		return nil
	}
	capturedAt := l.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	return &engine.Position{
		Coordinates:    engine.Coordinates{Latitude: l.Latitude, Longitude: l.Longitude},
		AccuracyMeters: l.AccuracyMeters,
		CapturedAt:     capturedAt,
	}
}

// matcherFromConfig builds the biometric matcher with the configured
// thresholds.
func matcherFromConfig(cfg config.AppConfig) *engine.Matcher {
	return &engine.Matcher{
		VerifyDistanceMax:     cfg.VerifyDistanceMax,
		ReEnrollDistanceMax:   cfg.ReEnrollDistanceMax,
		VerifyConfidenceFloor: cfg.VerifyConfidenceFloor,
		EnrollConfidenceFloor: cfg.EnrollConfidenceFloor,
	}
}

// AttendanceController exposes the session state machine over HTTP.
type AttendanceController struct {
	db       *gorm.DB
	store    *models.AttendanceStore
	sessions *engine.Sessions
}

// NewAttendanceController wires the engine with its gorm-backed store and
// the configured thresholds.
func NewAttendanceController(db *gorm.DB) *AttendanceController {
	cfg := config.Get()
	store := models.NewAttendanceStore(db)
	classifier := &engine.Classifier{
		EarlyGraceMinutes: cfg.EarlyGraceMinutes,
		LateGraceMinutes:  cfg.LateGraceMinutes,
	}
	sessions := engine.NewSessions(store, matcherFromConfig(cfg), classifier, engine.SystemClock())
	sessions.MinDuration = time.Duration(cfg.MinSessionMinutes) * time.Minute
	sessions.RefreshTemplate = cfg.RefreshTemplate
	return &AttendanceController{db: db, store: store, sessions: sessions}
}

func attendanceCachePrefix(userID uint) string {
	return fmt.Sprintf("cache:attendance:%d:", userID)
}

// CheckIn runs the full check-in gate chain and opens a record on success.
func (a *AttendanceController) CheckIn(ctx *gin.Context) {
	var req struct {
		SessionTypeID uint               `json:"session_type_id"`
		RequestID     string             `json:"request_id"`
		SkipLocation  bool               `json:"skip_location"`
		Location      *locationSample    `json:"location"`
		Detections    []engine.Detection `json:"detections"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	userID := middleware.CurrentUserID(ctx)
	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	result, err := a.sessions.CheckIn(models.WithRequestID(ctx.Request.Context(), requestID), engine.CheckInRequest{
		UserID:        userID,
		SessionTypeID: req.SessionTypeID,
		Sample:        req.Location.toPosition(),
		SkipLocation:  req.SkipLocation,
		Detections:    req.Detections,
	})
	if err != nil {
		respondEngineError(ctx, err)
		return
	}

	if result.Containment == engine.ContainmentUnknown && !req.SkipLocation {
		utils.Sugar.Warnw("check-in accepted without geofence confirmation", "user_id", userID)
	}

	utils.InvalidateByPrefix(attendanceCachePrefix(userID))
	utils.Sugar.Infow("check-in accepted",
		"user_id", userID,
		"record_id", result.Record.ID,
		"status", result.Record.Status,
		"match_percent", result.Verify.MatchPercent,
		"request_id", requestID,
	)

	payload := gin.H{
		"record":        result.Record,
		"verify":        result.Verify,
		"request_id":    requestID,
		"geofence":      result.Containment.String(),
		"location_used": !req.SkipLocation,
	}
	if result.Nearest != nil {
		payload["nearest_site"] = result.Nearest
	}
	utils.Success(ctx, payload)
}

// CheckOut closes the caller's active record.
func (a *AttendanceController) CheckOut(ctx *gin.Context) {
	var req struct {
		RequestID string          `json:"request_id"`
		Location  *locationSample `json:"location"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request payload")
		return
	}

	userID := middleware.CurrentUserID(ctx)

	rec, err := a.sessions.CheckOut(ctx.Request.Context(), engine.CheckOutRequest{
		UserID: userID,
		Sample: req.Location.toPosition(),
	})
	if err != nil {
		respondEngineError(ctx, err)
		return
	}

	utils.InvalidateByPrefix(attendanceCachePrefix(userID))
	utils.Sugar.Infow("check-out accepted",
		"user_id", userID,
		"record_id", rec.ID,
		"total_hours", *rec.TotalHours,
	)
	utils.Success(ctx, rec)
}

// Active returns the caller's open record, or null when none exists.
func (a *AttendanceController) Active(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)
	rec, err := a.store.FindActiveRecord(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to load active record")
		return
	}
	if rec == nil {
		utils.Success(ctx, gin.H{"record": nil, "elapsed": engine.ZeroElapsed})
		return
	}
	utils.Success(ctx, gin.H{"record": rec, "elapsed": engine.Elapsed(rec, time.Now())})
}

// Records returns the caller's attendance history, newest first.
func (a *AttendanceController) Records(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)

	page, pageSize := 1, 20
	if v := strings.TrimSpace(ctx.Query("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := strings.TrimSpace(ctx.Query("page_size")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}

	cacheKey := fmt.Sprintf("%srecords:%d:%d", attendanceCachePrefix(userID), page, pageSize)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var total int64
	if err := a.db.Model(&models.AttendanceRecord{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count records")
		return
	}

	var rows []models.AttendanceRecord
	if err := a.db.Where("user_id = ?", userID).
		Order("check_in_time DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to retrieve records")
		return
	}

	payload := gin.H{
		"items": rows,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(cacheKey, wrapper, 5*time.Minute)
	utils.Success(ctx, payload)
}

// Summary returns the caller's counters for the current local day.
func (a *AttendanceController) Summary(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)

	now := time.Now().In(time.Local)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	cacheKey := fmt.Sprintf("%ssummary:%s", attendanceCachePrefix(userID), dayStart.Format("2006-01-02"))
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var counts []struct {
		Status string
		Count  int64
	}
	if err := a.db.Model(&models.AttendanceRecord{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ? AND check_in_time >= ? AND check_in_time < ?", userID, dayStart, dayEnd).
		Group("status").
		Scan(&counts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to aggregate records")
		return
	}

	var totalHours float64
	if err := a.db.Model(&models.AttendanceRecord{}).
		Select("COALESCE(SUM(total_hours), 0)").
		Where("user_id = ? AND check_in_time >= ? AND check_in_time < ?", userID, dayStart, dayEnd).
		Scan(&totalHours).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to sum hours")
		return
	}

	active, err := a.store.FindActiveRecord(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to load active record")
		return
	}

	summary := gin.H{
		"date":        dayStart.Format("2006-01-02"),
		"present":     int64(0),
		"late":        int64(0),
		"total_hours": totalHours,
		"active":      active != nil,
	}
	for _, c := range counts {
		switch c.Status {
		case string(engine.StatusPresent):
			summary["present"] = c.Count
		case string(engine.StatusLate):
			summary["late"] = c.Count
		}
	}

	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: summary}
	utils.CacheSetJSON(cacheKey, wrapper, time.Minute)
	utils.Success(ctx, summary)
}
