package rest_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/kasuganosora/combatcore/game/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeterFeedHistory(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", map[stats.Stat]float64{stats.ATK: 50})
	dummy := f.spawn("dummy", map[stats.Stat]float64{stats.HP: 1000, stats.DEF: 0})

	for i := 0; i < 3; i++ {
		w := f.do(http.MethodPost, "/api/combat/attack", map[string]interface{}{"attacker": hero, "defender": dummy}, true)
		require.Equal(t, http.StatusOK, w.Code)
	}

	require.Eventually(t, func() bool {
		w := f.do(http.MethodGet, "/api/feed", nil, false)
		feed, _ := decode(t, w)["feed"].([]interface{})
		return len(feed) == 3
	}, time.Second, 10*time.Millisecond)

	w := f.do(http.MethodGet, "/api/meter", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode(t, w)["meter"].([]interface{})
	require.Len(t, rows, 1)
	top := rows[0].(map[string]interface{})
	assert.Equal(t, "hero", top["name"])
	assert.Equal(t, 150.0, top["total"])

	w = f.do(http.MethodGet, "/api/meter?taken=1", nil, false)
	rows = decode(t, w)["meter"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, float64(dummy), rows[0].(map[string]interface{})["handle"])

	// Stop flushes the pending batch so the history query sees it.
	f.log.Stop(t.Context())
	w = f.do(http.MethodGet, fmt.Sprintf("/api/combatants/%d/history", dummy), nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["history"], 3)
	assert.Equal(t, 150.0, body["taken"])
	assert.Equal(t, 0.0, body["dealt"])

	w = f.do(http.MethodDelete, "/api/meter", nil, true)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(http.MethodGet, "/api/meter", nil, false)
	assert.Empty(t, decode(t, w)["meter"])
}

func TestAdminMetrics(t *testing.T) {
	f := newFixture(t)
	f.spawn("a", nil)

	w := f.do(http.MethodGet, "/api/admin/metrics", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/admin/metrics", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["combatants"])
	hooks := body["hooks"].(map[string]interface{})
	assert.Equal(t, float64(1), hooks["attack_resolved"])
}
