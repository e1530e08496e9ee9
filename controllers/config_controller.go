package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/lumeha/presence/config"
	"github.com/lumeha/presence/utils"
)

// ConfigController exposes the effective engine tuning, read-only, so
// clients can render thresholds and grace windows without hardcoding them.
type ConfigController struct{}

// NewConfigController creates a new ConfigController instance.
func NewConfigController() *ConfigController {
	return &ConfigController{}
}

// Engine returns the effective engine thresholds.
func (c *ConfigController) Engine(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"verify_distance_max":     cfg.VerifyDistanceMax,
		"reenroll_distance_max":   cfg.ReEnrollDistanceMax,
		"verify_confidence_floor": cfg.VerifyConfidenceFloor,
		"enroll_confidence_floor": cfg.EnrollConfidenceFloor,
		"early_grace_minutes":     cfg.EarlyGraceMinutes,
		"late_grace_minutes":      cfg.LateGraceMinutes,
		"min_session_minutes":     cfg.MinSessionMinutes,
		"refresh_template":        cfg.RefreshTemplate,
	})
}
