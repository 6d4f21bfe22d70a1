package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/combatcore/config"
	"github.com/kasuganosora/combatcore/game/battle"
	"github.com/kasuganosora/combatcore/game/element"
	"github.com/kasuganosora/combatcore/game/stagger"
	mw "github.com/kasuganosora/combatcore/middleware"
	"go.uber.org/zap"
)

// CombatHandler drives attacks, healing, revives and crowd control.
type CombatHandler struct {
	arena  *battle.Arena
	cfg    config.CombatConfig
	logger *zap.Logger
}

// NewCombatHandler creates a CombatHandler. cfg supplies revive defaults.
func NewCombatHandler(arena *battle.Arena, cfg config.CombatConfig, logger *zap.Logger) *CombatHandler {
	return &CombatHandler{arena: arena, cfg: cfg, logger: logger}
}

// Register mounts read routes on pub and mutating routes on admin.
func (h *CombatHandler) Register(pub, admin gin.IRoutes) {
	pub.GET("/combat/expected", h.Expected)
	pub.GET("/affinity", h.Affinity)
	pub.GET("/affinity/chart", h.AffinityChart)
	admin.POST("/combat/attack", h.Attack)
	admin.POST("/combatants/:handle/damage", h.Damage)
	admin.POST("/combatants/:handle/heal", h.Heal)
	admin.POST("/combatants/:handle/revive", h.Revive)
	admin.POST("/combatants/:handle/control", h.ApplyControl)
	admin.DELETE("/combatants/:handle/control/:type", h.RemoveControl)
}

type attackRequest struct {
	Attacker   uint32   `json:"attacker" binding:"required"`
	Defender   uint32   `json:"defender" binding:"required"`
	Multiplier *float64 `json:"multiplier"`
	DamageType string   `json:"damage_type"`
	Source     string   `json:"source"`
}

type attackResponse struct {
	battle.DamageReport
	DamageType string `json:"damage_type"`
	Text       string `json:"text"`
}

// Attack resolves one attack.
// POST /api/combat/attack
func (h *CombatHandler) Attack(c *gin.Context) {
	var req attackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dt, err := battle.ParseDamageType(req.DamageType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mult := 1.0
	if req.Multiplier != nil {
		mult = *req.Multiplier
	}
	rep, err := h.arena.Attack(handleOf(req.Attacker), handleOf(req.Defender), mult, dt, req.Source)
	if err != nil {
		writeError(c, err)
		return
	}
	mw.TraceLogger(c, h.logger).Debug("attack via api",
		zap.Uint32("attacker", req.Attacker),
		zap.Uint32("defender", req.Defender),
		zap.Float64("applied", rep.Applied))
	c.JSON(http.StatusOK, attackResponse{
		DamageReport: rep,
		DamageType:   rep.Type.String(),
		Text:         rep.DisplayText(h.arena.Table()),
	})
}

// Expected returns the average damage of an attack without rolling.
// GET /api/combat/expected?attacker=1&defender=2&multiplier=1.5&damage_type=magical
func (h *CombatHandler) Expected(c *gin.Context) {
	attacker, ok := parseHandleValue(c, c.Query("attacker"))
	if !ok {
		return
	}
	defender, ok := parseHandleValue(c, c.Query("defender"))
	if !ok {
		return
	}
	mult := 1.0
	if raw := c.Query("multiplier"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multiplier"})
			return
		}
		mult = v
	}
	dt, err := battle.ParseDamageType(c.Query("damage_type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.arena.ExpectedDamage(attacker, defender, mult, dt)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expected": v, "damage_type": dt.String(), "multiplier": mult})
}

// Affinity looks up one attacker/defender element pair.
// GET /api/affinity?attacker=fire&defender=wind
func (h *CombatHandler) Affinity(c *gin.Context) {
	atk, err := element.ParseElement(c.Query("attacker"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	def, err := element.ParseElement(c.Query("defender"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	table := h.arena.Table()
	c.JSON(http.StatusOK, gin.H{
		"attacker":    atk,
		"defender":    def,
		"multiplier":  table.Multiplier(atk, def),
		"description": table.Describe(atk, def),
	})
}

// AffinityChart returns the full multiplier chart keyed attacker → defender.
// GET /api/affinity/chart
func (h *CombatHandler) AffinityChart(c *gin.Context) {
	table := h.arena.Table()
	chart := make(map[string]map[string]float64, len(element.All()))
	for _, atk := range element.All() {
		row := make(map[string]float64, len(element.All()))
		for _, def := range element.All() {
			row[def.String()] = table.Multiplier(atk, def)
		}
		chart[atk.String()] = row
	}
	c.JSON(http.StatusOK, gin.H{"chart": chart})
}

type amountRequest struct {
	Amount     float64 `json:"amount" binding:"gte=0"`
	DamageType string  `json:"damage_type"`
	Source     string  `json:"source"`
}

// Damage applies environmental damage with no attacker.
// POST /api/combatants/:handle/damage
func (h *CombatHandler) Damage(c *gin.Context) {
	handle, ok := parseHandle(c)
	if !ok {
		return
	}
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dt, err := battle.ParseDamageType(req.DamageType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rep, err := h.arena.DealRawDamage(handle, req.Amount, dt, req.Source)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attackResponse{DamageReport: rep, DamageType: dt.String(), Text: rep.DisplayText(h.arena.Table())})
}

// Heal restores HP.
// POST /api/combatants/:handle/heal
func (h *CombatHandler) Heal(c *gin.Context) {
	handle, ok := parseHandle(c)
	if !ok {
		return
	}
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	healed, err := h.arena.Heal(handle, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"healed": healed})
}

type reviveRequest struct {
	DelayMs    *int64   `json:"delay_ms"`
	HPFraction *float64 `json:"hp_fraction"`
	MPFraction *float64 `json:"mp_fraction"`
}

// Revive schedules a revive. Omitted fields use the configured defaults.
// POST /api/combatants/:handle/revive
func (h *CombatHandler) Revive(c *gin.Context) {
	handle, ok := parseHandle(c)
	if !ok {
		return
	}
	var req reviveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	delay := h.cfg.ReviveDelay
	if req.DelayMs != nil {
		delay = time.Duration(*req.DelayMs) * time.Millisecond
	}
	hp, mp := h.cfg.ReviveHPFraction, h.cfg.ReviveMPFraction
	if req.HPFraction != nil {
		hp = *req.HPFraction
	}
	if req.MPFraction != nil {
		mp = *req.MPFraction
	}
	if err := h.arena.StartRevive(handle, delay, hp, mp); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"delay_ms": delay.Milliseconds(), "hp_fraction": hp, "mp_fraction": mp})
}

type controlRequest struct {
	Type        string   `json:"type" binding:"required"`
	DurationMs  int64    `json:"duration_ms" binding:"gt=0"`
	Intensity   float64  `json:"intensity"`
	ArmorDamage float64  `json:"armor_damage" binding:"gte=0"`
	HitRate     *float64 `json:"hit_rate"` // percent, default 100
	Source      string   `json:"source"`
}

// ApplyControl runs a control attempt through super armor and toughness.
// POST /api/combatants/:handle/control
func (h *CombatHandler) ApplyControl(c *gin.Context) {
	handle, ok := parseHandle(c)
	if !ok {
		return
	}
	var req controlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := stagger.ParseCCType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hitRate := 100.0
	if req.HitRate != nil {
		hitRate = *req.HitRate
	}
	effect := stagger.NewControlEffect(t, time.Duration(req.DurationMs)*time.Millisecond, req.Intensity, req.Source)
	res, err := h.arena.ApplyCrowdControl(handle, effect, req.ArmorDamage, hitRate)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RemoveControl clears one control type.
// DELETE /api/combatants/:handle/control/:type
func (h *CombatHandler) RemoveControl(c *gin.Context) {
	handle, ok := parseHandle(c)
	if !ok {
		return
	}
	t, err := stagger.ParseCCType(c.Param("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	removed, err := h.arena.RemoveCrowdControl(handle, t)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
