package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumeha/presence/models"
	"github.com/lumeha/presence/utils"
)

const sitesCacheKey = "cache:sites"

// SiteController manages the geofence sites check-ins are validated against.
type SiteController struct {
	db *gorm.DB
}

// NewSiteController creates a new SiteController instance.
func NewSiteController(db *gorm.DB) *SiteController {
	return &SiteController{db: db}
}

type siteRequest struct {
	Name         string  `json:"name" binding:"required,max=128"`
	Latitude     float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude    float64 `json:"longitude" binding:"min=-180,max=180"`
	RadiusMeters float64 `json:"radius_meters" binding:"required,gt=0"`
	Active       *bool   `json:"active"`
}

// List returns all sites; pass active=true to filter.
func (s *SiteController) List(ctx *gin.Context) {
	activeOnly := ctx.Query("active") == "true"

	cacheKey := sitesCacheKey
	if activeOnly {
		cacheKey += ":active"
	}
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var rows []models.CompanyLocation
	q := s.db.Order("id")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Find(&rows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to list sites")
		return
	}

	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: rows}
	utils.CacheSetJSON(cacheKey, wrapper, 10*time.Minute)
	utils.Success(ctx, rows)
}

// Create adds a geofence site.
func (s *SiteController) Create(ctx *gin.Context) {
	var req siteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	site := models.CompanyLocation{
		Name:         req.Name,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RadiusMeters: req.RadiusMeters,
		Active:       true,
	}
	if req.Active != nil {
		site.Active = *req.Active
	}
	if err := s.db.Create(&site).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to create site")
		return
	}

	utils.InvalidateByPrefix(sitesCacheKey)
	utils.Sugar.Infow("site created", "site_id", site.ID, "name", site.Name)
	utils.Success(ctx, site)
}

// Update modifies an existing site.
func (s *SiteController) Update(ctx *gin.Context) {
	var req siteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid request payload")
		return
	}

	var site models.CompanyLocation
	if err := s.db.First(&site, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "site not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to load site")
		return
	}

	site.Name = req.Name
	site.Latitude = req.Latitude
	site.Longitude = req.Longitude
	site.RadiusMeters = req.RadiusMeters
	if req.Active != nil {
		site.Active = *req.Active
	}
	if err := s.db.Save(&site).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to update site")
		return
	}

	utils.InvalidateByPrefix(sitesCacheKey)
	utils.Success(ctx, site)
}

// Delete removes a site. Historical records keep their coordinates, so
// deleting a site never rewrites attendance history.
func (s *SiteController) Delete(ctx *gin.Context) {
	res := s.db.Delete(&models.CompanyLocation{}, ctx.Param("id"))
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to delete site")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40440, "site not found")
		return
	}

	utils.InvalidateByPrefix(sitesCacheKey)
	utils.Success(ctx, gin.H{"deleted": true})
}
