package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumeha/presence/engine"
	"github.com/lumeha/presence/models"
	"github.com/lumeha/presence/utils"
)

const sessionTypesCacheKey = "cache:session_types"

// SessionTypeController manages the scheduled work windows users check in
// against.
type SessionTypeController struct {
	db *gorm.DB
}

// NewSessionTypeController creates a new SessionTypeController instance.
func NewSessionTypeController(db *gorm.DB) *SessionTypeController {
	return &SessionTypeController{db: db}
}

type sessionTypeRequest struct {
	Name      string `json:"name" binding:"required,max=64"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Active    *bool  `json:"active"`
}

func (r *sessionTypeRequest) validateTimes() error {
	if _, err := engine.ParseTimeOfDay(r.StartTime); err != nil {
		return err
	}
	_, err := engine.ParseTimeOfDay(r.EndTime)
	return err
}

// List returns all session types; pass active=true to filter.
func (s *SessionTypeController) List(ctx *gin.Context) {
	activeOnly := ctx.Query("active") == "true"

	cacheKey := sessionTypesCacheKey
	if activeOnly {
		cacheKey += ":active"
	}
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var rows []models.SessionType
	q := s.db.Order("id")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Find(&rows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to list session types")
		return
	}

	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: rows}
	utils.CacheSetJSON(cacheKey, wrapper, 10*time.Minute)
	utils.Success(ctx, rows)
}

// Create adds a scheduled work window.
func (s *SessionTypeController) Create(ctx *gin.Context) {
	var req sessionTypeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}
	if err := req.validateTimes(); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40051, "start_time and end_time must be HH:MM")
		return
	}

	st := models.SessionType{
		Name:      req.Name,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Active:    true,
	}
	if req.Active != nil {
		st.Active = *req.Active
	}
	if err := s.db.Create(&st).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to create session type")
		return
	}

	utils.InvalidateByPrefix(sessionTypesCacheKey)
	utils.Sugar.Infow("session type created", "session_type_id", st.ID, "name", st.Name)
	utils.Success(ctx, st)
}

// Update modifies an existing session type.
func (s *SessionTypeController) Update(ctx *gin.Context) {
	var req sessionTypeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid request payload")
		return
	}
	if err := req.validateTimes(); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40051, "start_time and end_time must be HH:MM")
		return
	}

	var st models.SessionType
	if err := s.db.First(&st, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40450, "session type not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to load session type")
		return
	}

	st.Name = req.Name
	st.StartTime = req.StartTime
	st.EndTime = req.EndTime
	if req.Active != nil {
		st.Active = *req.Active
	}
	if err := s.db.Save(&st).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to update session type")
		return
	}

	utils.InvalidateByPrefix(sessionTypesCacheKey)
	utils.Success(ctx, st)
}

// Delete removes a session type. Existing records reference it by id only,
// so history is unaffected.
func (s *SessionTypeController) Delete(ctx *gin.Context) {
	res := s.db.Delete(&models.SessionType{}, ctx.Param("id"))
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to delete session type")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40450, "session type not found")
		return
	}

	utils.InvalidateByPrefix(sessionTypesCacheKey)
	utils.Success(ctx, gin.H{"deleted": true})
}
