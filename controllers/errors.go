package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumeha/presence/engine"
	"github.com/lumeha/presence/utils"
)

// respondEngineError maps engine failures onto the JSON envelope. Client
// gate failures get 4xx app codes with human-readable messages; anything
// unclassified is treated as a store failure and logged.
func respondEngineError(ctx *gin.Context, err error) {
	var lowConf *engine.LowConfidenceError
	var denied *engine.AccessDeniedError
	var mismatch *engine.FaceMismatchError

	switch {
	case errors.Is(err, engine.ErrAlreadyActive):
		utils.Error(ctx, http.StatusConflict, 40910, "must check out of current session first")
	case errors.Is(err, engine.ErrNoSessionSelected):
		utils.Error(ctx, http.StatusBadRequest, 40030, "no session type selected")
	case errors.Is(err, engine.ErrNoLocationSample):
		utils.Error(ctx, http.StatusBadRequest, 40031, "a location sample is required")
	case errors.Is(err, engine.ErrOutsideGeofence):
		utils.Error(ctx, http.StatusForbidden, 40330, "location is outside all permitted work sites")
	case errors.Is(err, engine.ErrTemplateNotEnrolled):
		utils.Error(ctx, http.StatusBadRequest, 40032, "face enrollment required before check-in")
	case errors.Is(err, engine.ErrNoFaceDetected):
		utils.Error(ctx, http.StatusBadRequest, 40033, "no face detected")
	case errors.Is(err, engine.ErrMultipleFacesDetected):
		utils.Error(ctx, http.StatusBadRequest, 40034, "multiple faces detected, only one person may check in at a time")
	case errors.As(err, &lowConf):
		utils.Error(ctx, http.StatusBadRequest, 40035, lowConf.Error())
	case errors.As(err, &denied):
		// the match percentage is shown to the user even on rejection
		utils.ErrorWithData(ctx, http.StatusForbidden, 40331, "face does not match the enrolled template", gin.H{
			"match_percent": denied.MatchPercent,
			"distance":      denied.Distance,
		})
	case errors.As(err, &mismatch):
		utils.Error(ctx, http.StatusForbidden, 40332, "face does not match the registered identity")
	case errors.Is(err, engine.ErrEnrollmentIncomplete):
		utils.Error(ctx, http.StatusBadRequest, 40036, "enrollment capture is incomplete")
	case errors.Is(err, engine.ErrMinimumDuration):
		utils.Error(ctx, http.StatusBadRequest, 40037, "minimum session duration not met")
	case errors.Is(err, engine.ErrRecordNotFound):
		utils.Error(ctx, http.StatusNotFound, 40430, "no active attendance record found")
	case errors.Is(err, engine.ErrTemplateCorrupt):
		utils.Sugar.Errorw("stored face template unreadable", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50030, "stored face template is unreadable, please re-enroll")
	default:
		utils.Sugar.Errorw("attendance operation failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal error")
	}
}
