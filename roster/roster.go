// Package roster turns configured combatant entries into arena spawns.
package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasuganosora/combatcore/config"
	"github.com/kasuganosora/combatcore/game/battle"
	"github.com/kasuganosora/combatcore/game/element"
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/kasuganosora/combatcore/game/stagger"
	"github.com/kasuganosora/combatcore/game/stats"
	"github.com/kasuganosora/combatcore/save"
	"go.uber.org/zap"
)

// Build converts entry into a SpawnConfig. sa supplies the super armor
// parameters when the entry enables it.
func Build(entry config.RosterEntry, sa config.SuperArmorConfig) (battle.SpawnConfig, error) {
	el := element.None
	if entry.Element != "" {
		var err error
		if el, err = element.ParseElement(entry.Element); err != nil {
			return battle.SpawnConfig{}, fmt.Errorf("roster %q: %w", entry.Name, err)
		}
	}
	base := make(map[stats.Stat]float64, len(entry.Base))
	for name, v := range entry.Base {
		s, err := stats.ParseStat(name)
		if err != nil {
			return battle.SpawnConfig{}, fmt.Errorf("roster %q: %w", entry.Name, err)
		}
		base[s] = v
	}
	cfg := battle.SpawnConfig{Name: entry.Name, Element: el, Base: base}
	if entry.SuperArmor {
		cfg.SuperArmor = &stagger.Config{
			MaxArmor:      sa.MaxArmor,
			RecoveryRate:  sa.RecoveryRate,
			Resistance:    sa.Resistance,
			BreakCooldown: sa.BreakCooldown,
		}
	}
	return cfg, nil
}

// Spawned links a roster slot to its live handle.
type Spawned struct {
	Slot   string
	Handle event.Handle
}

// SpawnAll spawns every entry. When store is non-nil and an entry's slot has
// a save, the save is restored over the fresh combatant.
func SpawnAll(ctx context.Context, arena *battle.Arena, entries []config.RosterEntry,
	sa config.SuperArmorConfig, store *save.Store, logger *zap.Logger) ([]Spawned, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := make([]Spawned, 0, len(entries))
	for _, e := range entries {
		cfg, err := Build(e, sa)
		if err != nil {
			return out, err
		}
		h := arena.Spawn(cfg)
		slot := e.Slot
		if slot == "" {
			slot = e.Name
		}
		out = append(out, Spawned{Slot: slot, Handle: h})
		if store == nil {
			continue
		}
		err = store.LoadCombatant(ctx, arena, slot, h)
		switch {
		case err == nil:
			logger.Info("roster entry restored from save", zap.String("slot", slot), zap.Uint32("handle", uint32(h)))
		case errors.Is(err, save.ErrNotFound):
		default:
			logger.Warn("roster save load failed", zap.String("slot", slot), zap.Error(err))
		}
	}
	return out, nil
}

// SaveAll writes every spawned combatant that is still in the arena.
func SaveAll(ctx context.Context, arena *battle.Arena, spawned []Spawned, store *save.Store) error {
	var errs []error
	for _, s := range spawned {
		err := store.SaveCombatant(ctx, arena, s.Slot, s.Handle)
		if errors.Is(err, battle.ErrUnknownCombatant) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
