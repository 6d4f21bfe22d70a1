package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/combatcore/combatlog"
	"github.com/kasuganosora/combatcore/config"
	"github.com/kasuganosora/combatcore/game/battle"
	"github.com/kasuganosora/combatcore/metrics"
	mw "github.com/kasuganosora/combatcore/middleware"
	"github.com/kasuganosora/combatcore/plugin/hook"
	"github.com/kasuganosora/combatcore/save"
	"github.com/kasuganosora/combatcore/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Deps bundles what the HTTP surface needs. Store and Metrics may be nil.
type Deps struct {
	Config    *config.Config
	Arena     *battle.Arena
	Store     *save.Store
	CombatLog *combatlog.Service
	Scheduler *scheduler.Scheduler
	Hooks     *hook.HookCenter
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// NewRouter builds the gin engine. ctx bounds background middleware work.
func NewRouter(ctx context.Context, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(d.Logger), mw.Recovery(d.Logger))
	if d.Config.Security.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(ctx, rate.Limit(d.Config.Security.RateLimitRPS), d.Config.Security.RateLimitBurst))
	}

	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "combatants": d.Arena.Len()})
	})

	api := r.Group("/api")
	admin := r.Group("/api", mw.AdminKey(d.Config.Server.AdminKey))

	NewCombatantHandler(d.Arena, d.Store, d.Config.Combat.SuperArmor, d.Logger).Register(api, admin)
	NewCombatHandler(d.Arena, d.Config.Combat, d.Logger).Register(api, admin)
	NewMeterHandler(d.CombatLog, d.Arena, d.Logger).Register(api, admin)
	NewAdminHandler(d.Arena, d.Scheduler, d.Hooks, d.Store, d.Logger).Register(admin)
	return r
}
