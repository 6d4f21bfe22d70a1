package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/combatcore/combatlog"
	"github.com/kasuganosora/combatcore/game/battle"
	"go.uber.org/zap"
)

const meterTop = 100

// MeterHandler serves the damage meter, the recent attack feed and the
// stored combat history.
type MeterHandler struct {
	log    *combatlog.Service
	arena  *battle.Arena
	logger *zap.Logger
}

// NewMeterHandler creates a MeterHandler.
func NewMeterHandler(log *combatlog.Service, arena *battle.Arena, logger *zap.Logger) *MeterHandler {
	return &MeterHandler{log: log, arena: arena, logger: logger}
}

// Register mounts read routes on pub and mutating routes on admin.
func (h *MeterHandler) Register(pub, admin gin.IRoutes) {
	pub.GET("/meter", h.Meter)
	pub.GET("/feed", h.Feed)
	pub.GET("/combatants/:handle/history", h.History)
	admin.DELETE("/meter", h.Reset)
}

// MeterRow is one leaderboard line.
type MeterRow struct {
	Rank   int     `json:"rank"`
	Handle uint32  `json:"handle"`
	Name   string  `json:"name,omitempty"`
	Total  float64 `json:"total"`
}

// Meter returns the top damage dealers, or takers with ?taken=1.
// GET /api/meter?limit=20&taken=1
func (h *MeterHandler) Meter(c *gin.Context) {
	limit := queryLimit(c, 20, meterTop)
	taken := c.Query("taken") == "1" || c.Query("taken") == "true"

	entries, err := h.log.Meter(c.Request.Context(), taken, limit)
	if err != nil {
		h.logger.Warn("meter read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "meter unavailable"})
		return
	}
	rows := make([]MeterRow, len(entries))
	for i, e := range entries {
		rows[i] = MeterRow{Rank: i + 1, Handle: uint32(e.Handle), Total: e.Total}
		// Despawned combatants keep their meter row without a name.
		if snap, err := h.arena.Snapshot(e.Handle); err == nil {
			rows[i].Name = snap.Name
		}
	}
	c.JSON(http.StatusOK, gin.H{"meter": rows, "taken": taken})
}

// Feed returns the most recent attacks, newest first.
// GET /api/feed?limit=20
func (h *MeterHandler) Feed(c *gin.Context) {
	feed, err := h.log.Feed(c.Request.Context(), queryLimit(c, 20, meterTop))
	if err != nil {
		h.logger.Warn("feed read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "feed unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"feed": feed})
}

// History returns stored attacks involving one combatant.
// GET /api/combatants/:handle/history?limit=50
func (h *MeterHandler) History(c *gin.Context) {
	handle, ok := parseHandle(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	rows, err := h.log.History(ctx, handle, queryLimit(c, 50, 500))
	if err != nil {
		writeError(c, err)
		return
	}
	dealt, taken, err := h.log.Totals(ctx, handle)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": rows, "dealt": dealt, "taken": taken})
}

// Reset clears the meter and the feed.
// DELETE /api/meter
func (h *MeterHandler) Reset(c *gin.Context) {
	if err := h.log.Reset(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
