package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/combatcore/config"
	"github.com/kasuganosora/combatcore/game/battle"
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/kasuganosora/combatcore/game/stats"
	mw "github.com/kasuganosora/combatcore/middleware"
	"github.com/kasuganosora/combatcore/roster"
	"github.com/kasuganosora/combatcore/save"
	"go.uber.org/zap"
)

// CombatantHandler exposes the arena roster: inspection, spawning,
// modifiers and save slots.
type CombatantHandler struct {
	arena  *battle.Arena
	store  *save.Store
	armor  config.SuperArmorConfig
	logger *zap.Logger
}

// NewCombatantHandler creates a CombatantHandler. store may be nil, which
// disables the save and load routes.
func NewCombatantHandler(arena *battle.Arena, store *save.Store, armor config.SuperArmorConfig, logger *zap.Logger) *CombatantHandler {
	return &CombatantHandler{arena: arena, store: store, armor: armor, logger: logger}
}

// Register mounts read routes on pub and mutating routes on admin.
func (h *CombatantHandler) Register(pub, admin gin.IRoutes) {
	pub.GET("/combatants", h.List)
	pub.GET("/combatants/:handle", h.Get)
	admin.POST("/combatants", h.Spawn)
	admin.DELETE("/combatants/:handle", h.Despawn)
	admin.POST("/combatants/:handle/modifiers", h.AddModifier)
	admin.DELETE("/combatants/:handle/modifiers", h.RemoveModifiers)
	admin.POST("/combatants/:handle/save", h.Save)
	admin.POST("/combatants/:handle/load", h.Load)
}

// List returns every combatant.
// GET /api/combatants
func (h *CombatantHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"combatants": h.arena.Snapshots()})
}

// Get returns one combatant.
// GET /api/combatants/:handle
func (h *CombatantHandler) Get(c *gin.Context) {
	handle, ok := parseHandle(c)
	if !ok {
		return
	}
	snap, err := h.arena.Snapshot(handle)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type spawnRequest struct {
	Name       string             `json:"name" binding:"required,max=64"`
	Element    string             `json:"element"`
	Base       map[string]float64 `json:"base"`
	SuperArmor bool               `json:"super_armor"`
}

// Spawn adds a combatant.
// POST /api/combatants
func (h *CombatantHandler) Spawn(c *gin.Context) {
	var req spawnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg, err := roster.Build(config.RosterEntry{
		Name:       req.Name,
		Element:    req.Element,
		Base:       req.Base,
		SuperArmor: req.SuperArmor,
	}, h.armor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	handle := h.arena.Spawn(cfg)
	mw.TraceLogger(c, h.logger).Info("combatant spawned via api",
		zap.Uint32("handle", uint32(handle)), zap.String("name", req.Name))
	snap, _ := h.arena.Snapshot(handle)
	c.JSON(http.StatusCreated, snap)
}

// Despawn removes a combatant.
// DELETE /api/combatants/:handle
func (h *CombatantHandler) Despawn(c *gin.Context) {
	handle, ok := parseHandle(c)
	if !ok {
		return
	}
	if err := h.arena.Despawn(handle); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type modifierRequest struct {
	Stat       string  `json:"stat" binding:"required"`
	Kind       string  `json:"kind" binding:"required"`
	Value      float64 `json:"value"`
	Source     string  `json:"source"`
	DurationMs int64   `json:"duration_ms" binding:"gte=0"`
}

// AddModifier attaches a modifier, optionally timed.
// POST /api/combatants/:handle/modifiers
func (h *CombatantHandler) AddModifier(c *gin.Context) {
	handle, ok := parseHandle(c)
	if !ok {
		return
	}
	var req modifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := stats.ParseStat(req.Stat)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, err := stats.ParseKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m := stats.NewModifier(st, kind, req.Value, req.Source)
	if err := h.arena.AddModifier(handle, m, time.Duration(req.DurationMs)*time.Millisecond); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": m.ID, "text": m.DisplayText()})
}

// RemoveModifiers drops every modifier from one source.
// DELETE /api/combatants/:handle/modifiers?source=x
func (h *CombatantHandler) RemoveModifiers(c *gin.Context) {
	handle, ok := parseHandle(c)
	if !ok {
		return
	}
	source := c.Query("source")
	if source == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source is required"})
		return
	}
	n, err := h.arena.RemoveModifiersBySource(handle, source)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

type slotRequest struct {
	Slot string `json:"slot" binding:"required,max=64"`
}

// Save writes a combatant to a save slot.
// POST /api/combatants/:handle/save
func (h *CombatantHandler) Save(c *gin.Context) {
	h.withSlot(c, func(req slotRequest, handle event.Handle) error {
		return h.store.SaveCombatant(c.Request.Context(), h.arena, req.Slot, handle)
	})
}

// Load restores a save slot onto a combatant.
// POST /api/combatants/:handle/load
func (h *CombatantHandler) Load(c *gin.Context) {
	h.withSlot(c, func(req slotRequest, handle event.Handle) error {
		return h.store.LoadCombatant(c.Request.Context(), h.arena, req.Slot, handle)
	})
}

func (h *CombatantHandler) withSlot(c *gin.Context, fn func(slotRequest, event.Handle) error) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "saves are disabled"})
		return
	}
	handle, ok := parseHandle(c)
	if !ok {
		return
	}
	var req slotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := fn(req, handle); err != nil {
		writeError(c, err)
		return
	}
	snap, err := h.arena.Snapshot(handle)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slot": req.Slot, "combatant": snap})
}
