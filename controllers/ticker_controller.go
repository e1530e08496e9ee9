package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/lumeha/presence/engine"
	"github.com/lumeha/presence/middleware"
	"github.com/lumeha/presence/models"
	"github.com/lumeha/presence/utils"
)

var tickerUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Auth happens via the JWT middleware; browsers send the Origin the
	// CORS layer already vetted.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TickerController streams the live elapsed-time display over a websocket.
type TickerController struct {
	store  *models.AttendanceStore
	ticker *engine.Ticker
}

// NewTickerController creates a new TickerController instance.
func NewTickerController(db *gorm.DB) *TickerController {
	return &TickerController{
		store:  models.NewAttendanceStore(db),
		ticker: engine.NewTicker(engine.SystemClock()),
	}
}

// Stream upgrades to a websocket and emits one HH:MM:SS frame per second:
// the elapsed time while the caller's record is active, 00:00:00 once it is
// not. The stream ends when the client disconnects.
func (t *TickerController) Stream(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)

	conn, err := tickerUpgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		utils.Sugar.Warnw("websocket upgrade failed", "user_id", userID, "err", err)
		return
	}
	defer conn.Close()

	runCtx, cancel := context.WithCancel(ctx.Request.Context())
	defer cancel()

	// read pump: the only expected client message is the close frame
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	source := func(c context.Context) (*engine.Record, error) {
		return t.store.FindActiveRecord(c, userID)
	}
	emit := func(display string) error {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(gin.H{"elapsed": display})
	}

	if err := t.ticker.Run(runCtx, source, emit); err != nil && runCtx.Err() == nil {
		utils.Sugar.Debugw("ticker stream ended", "user_id", userID, "err", err)
	}
}
