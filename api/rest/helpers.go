package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/combatcore/game/battle"
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/kasuganosora/combatcore/save"
)

func parseHandle(c *gin.Context) (event.Handle, bool) {
	return parseHandleValue(c, c.Param("handle"))
}

func parseHandleValue(c *gin.Context, raw string) (event.Handle, bool) {
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid combatant handle"})
		return 0, false
	}
	return event.Handle(n), true
}

// writeError maps arena and save errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, battle.ErrUnknownCombatant), errors.Is(err, save.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, battle.ErrCombatantDead), errors.Is(err, battle.ErrCombatantAlive):
		status = http.StatusConflict
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func queryLimit(c *gin.Context, def, max int) int {
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= max {
		return l
	}
	return def
}

func handleOf(v uint32) event.Handle { return event.Handle(v) }
