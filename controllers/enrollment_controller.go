package controllers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumeha/presence/config"
	"github.com/lumeha/presence/engine"
	"github.com/lumeha/presence/middleware"
	"github.com/lumeha/presence/models"
	"github.com/lumeha/presence/utils"
)

// EnrollmentController drives the 3-angle face template capture flow. An
// in-progress enrollment lives in memory per user; it is short-lived and
// losing it on restart just means starting the capture over.
type EnrollmentController struct {
	store   *models.AttendanceStore
	matcher *engine.Matcher

	mu       sync.Mutex
	inFlight map[uint]*engine.Enrollment
}

// NewEnrollmentController creates a new EnrollmentController instance.
func NewEnrollmentController(db *gorm.DB) *EnrollmentController {
	return &EnrollmentController{
		store:    models.NewAttendanceStore(db),
		matcher:  matcherFromConfig(config.Get()),
		inFlight: make(map[uint]*engine.Enrollment),
	}
}

func (e *EnrollmentController) enrollment(userID uint) *engine.Enrollment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight[userID]
}

func stepPayload(enr *engine.Enrollment) gin.H {
	payload := gin.H{
		"step":     enr.Step(),
		"total":    len(engine.EnrollmentAngles),
		"complete": enr.Complete(),
	}
	if angle, ok := enr.NextAngle(); ok {
		payload["next_angle"] = angle
	}
	return payload
}

// Start begins a fresh capture session, discarding any in-progress one.
func (e *EnrollmentController) Start(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)

	enr := engine.NewEnrollment(e.matcher)
	e.mu.Lock()
	e.inFlight[userID] = enr
	e.mu.Unlock()

	utils.Sugar.Infow("enrollment started", "user_id", userID)
	utils.Success(ctx, stepPayload(enr))
}

// Capture records one angle sample from the submitted detection result.
func (e *EnrollmentController) Capture(ctx *gin.Context) {
	var req struct {
		Detections []engine.Detection `json:"detections"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}

	userID := middleware.CurrentUserID(ctx)
	enr := e.enrollment(userID)
	if enr == nil {
		utils.Error(ctx, http.StatusBadRequest, 40038, "no enrollment in progress, call start first")
		return
	}

	if err := enr.Capture(req.Detections); err != nil {
		respondEngineError(ctx, err)
		return
	}
	utils.Success(ctx, stepPayload(enr))
}

// Reset discards all captured samples and restarts at step 1.
func (e *EnrollmentController) Reset(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)
	enr := e.enrollment(userID)
	if enr == nil {
		utils.Error(ctx, http.StatusBadRequest, 40038, "no enrollment in progress, call start first")
		return
	}
	enr.Reset()
	utils.Success(ctx, stepPayload(enr))
}

// Finalize averages the captured samples into the user's reference template.
// When replacing an existing template the new one must pass the continuity
// check against the old, so an account cannot be quietly re-bound to a
// different person.
func (e *EnrollmentController) Finalize(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)
	enr := e.enrollment(userID)
	if enr == nil {
		utils.Error(ctx, http.StatusBadRequest, 40038, "no enrollment in progress, call start first")
		return
	}

	template, err := enr.Finalize()
	if err != nil {
		respondEngineError(ctx, err)
		return
	}

	existing, err := e.store.StoredTemplate(ctx.Request.Context(), userID)
	if err != nil {
		respondEngineError(ctx, err)
		return
	}
	if existing != nil {
		if err := e.matcher.CheckReEnrollment(template, existing); err != nil {
			respondEngineError(ctx, err)
			return
		}
	}

	if err := e.store.SaveTemplate(ctx.Request.Context(), userID, template); err != nil {
		utils.Sugar.Errorw("failed to save face template", "user_id", userID, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to save face template")
		return
	}

	e.mu.Lock()
	delete(e.inFlight, userID)
	e.mu.Unlock()

	utils.Sugar.Infow("enrollment finalized", "user_id", userID, "re_enrollment", existing != nil)
	utils.Success(ctx, gin.H{"enrolled": true, "re_enrollment": existing != nil})
}
