package rest_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/kasuganosora/combatcore/game/battle"
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombatants_SpawnListGetDespawn(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/combatants", map[string]interface{}{
		"name": "Golem", "element": "earth", "super_armor": true,
		"base": map[string]float64{"hp": 900, "def": 30},
	}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "earth", created["element"])
	assert.Equal(t, 900.0, created["hp"])
	assert.Equal(t, true, created["super_armor"])
	h := uint32(created["handle"].(float64))

	w = f.do(http.MethodGet, "/api/combatants", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["combatants"], 1)

	w = f.do(http.MethodGet, fmt.Sprintf("/api/combatants/%d", h), nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Golem", decode(t, w)["name"])

	w = f.do(http.MethodDelete, fmt.Sprintf("/api/combatants/%d", h), nil, true)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(http.MethodGet, fmt.Sprintf("/api/combatants/%d", h), nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCombatants_BadInput(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/combatants/0", nil, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/combatants", map[string]interface{}{"element": "fire"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code, "name is required")

	w = f.do(http.MethodPost, "/api/combatants", map[string]interface{}{
		"name": "x", "base": map[string]float64{"luck": 7},
	}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCombatants_Modifiers(t *testing.T) {
	f := newFixture(t)
	h := f.spawn("buffed", nil)
	path := fmt.Sprintf("/api/combatants/%d/modifiers", h)

	w := f.do(http.MethodPost, path, map[string]interface{}{
		"stat": "atk", "kind": "flat", "value": 20, "source": "sword",
	}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "+20 atk", decode(t, w)["text"])

	w = f.do(http.MethodPost, path, map[string]interface{}{
		"stat": "atk", "kind": "percentage", "value": 50, "source": "rage", "duration_ms": 1000,
	}, true)
	require.Equal(t, http.StatusCreated, w.Code)

	snap, _ := f.arena.Snapshot(event.Handle(h))
	assert.Equal(t, 45.0, snap.Stats["atk"])

	f.arena.Update(time.Second)
	snap, _ = f.arena.Snapshot(event.Handle(h))
	assert.Equal(t, 30.0, snap.Stats["atk"])

	w = f.do(http.MethodDelete, path+"?source=sword", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["removed"])

	w = f.do(http.MethodPost, path, map[string]interface{}{"stat": "luck", "kind": "flat"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCombatants_SaveAndLoad(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", nil)
	_, err := f.arena.DealRawDamage(event.Handle(hero), 40, battle.True, "")
	require.NoError(t, err)

	w := f.do(http.MethodPost, fmt.Sprintf("/api/combatants/%d/save", hero), map[string]string{"slot": "hero-1"}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	blank := f.spawn("blank", nil)
	w = f.do(http.MethodPost, fmt.Sprintf("/api/combatants/%d/load", blank), map[string]string{"slot": "hero-1"}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	combatant := decode(t, w)["combatant"].(map[string]interface{})
	assert.Equal(t, "hero", combatant["name"])
	assert.Equal(t, 60.0, combatant["hp"])

	w = f.do(http.MethodPost, fmt.Sprintf("/api/combatants/%d/load", blank), map[string]string{"slot": "nope"}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/api/admin/saves", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"hero-1"}, decode(t, w)["slots"])

	w = f.do(http.MethodDelete, "/api/admin/saves/hero-1", nil, true)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
