package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/combatcore/game/battle"
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/kasuganosora/combatcore/plugin/hook"
	"github.com/kasuganosora/combatcore/save"
	"github.com/kasuganosora/combatcore/scheduler"
	"go.uber.org/zap"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by the AdminKey middleware.
type AdminHandler struct {
	arena  *battle.Arena
	sched  *scheduler.Scheduler
	hooks  *hook.HookCenter
	store  *save.Store
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	arena *battle.Arena,
	sched *scheduler.Scheduler,
	hooks *hook.HookCenter,
	store *save.Store,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{arena: arena, sched: sched, hooks: hooks, store: store, logger: logger}
}

// Register mounts every route on admin.
func (h *AdminHandler) Register(admin gin.IRoutes) {
	admin.GET("/admin/metrics", h.Metrics)
	admin.GET("/admin/saves", h.Saves)
	admin.DELETE("/admin/saves/:slot", h.DeleteSave)
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"combatants":      h.arena.Len(),
		"scheduler_tasks": h.sched.List(),
		"hooks": gin.H{
			"any":             h.hooks.Count(hook.Any),
			"attack_resolved": h.hooks.Count(event.TypeAttackResolved),
		},
	})
}

// Saves lists the stored save slots.
// GET /api/admin/saves
func (h *AdminHandler) Saves(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusOK, gin.H{"slots": []string{}})
		return
	}
	slots, err := h.store.Slots(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// DeleteSave removes one save slot.
// DELETE /api/admin/saves/:slot
func (h *AdminHandler) DeleteSave(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "saves are disabled"})
		return
	}
	slot := c.Param("slot")
	if err := h.store.Delete(c.Request.Context(), slot); err != nil {
		writeError(c, err)
		return
	}
	h.logger.Info("save slot deleted", zap.String("slot", slot))
	c.Status(http.StatusNoContent)
}
