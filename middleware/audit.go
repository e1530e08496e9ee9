package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumeha/presence/models"
)

// APIAuditRecorder aggregates authenticated attendance API calls per day,
// path and user. It runs after the handler so only requests that reached the
// application (any status below 500) are counted.
func APIAuditRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status >= 500 {
			return
		}

		userID := CurrentUserID(c)
		if userID == 0 {
			return
		}

		// Use the route template so /records/123 style paths aggregate
		// per endpoint, not per resource.
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if path == "/health" || strings.HasPrefix(path, "/static/") {
			return
		}

		// Use local midnight to align with DATE column
		now := time.Now().In(time.Local)
		localMidnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

		// Atomic upsert to avoid duplicate key errors under concurrency
		_ = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "path"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
		}).Create(&models.APIAudit{Date: localMidnight, Path: path, UserID: userID, Count: 1}).Error
	}
}
