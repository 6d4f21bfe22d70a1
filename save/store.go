package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kasuganosora/combatcore/cache"
	"github.com/kasuganosora/combatcore/game/battle"
	"github.com/kasuganosora/combatcore/game/element"
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/kasuganosora/combatcore/game/stats"
	"github.com/kasuganosora/combatcore/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a slot has never been saved.
var ErrNotFound = errors.New("save: slot not found")

const keyPrefix = "save:"

// Store persists combatant state to the database and keeps a JSON copy in
// the cache for fast reloads.
type Store struct {
	db     *gorm.DB
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore creates a Store. c may be nil; ttl 0 keeps cache copies forever.
func NewStore(db *gorm.DB, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, cache: c, ttl: ttl, logger: logger}
}

// Save writes st under slot, replacing any previous save.
func (s *Store) Save(ctx context.Context, slot string, st battle.State) error {
	rec, err := toRecord(slot, st)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.CombatantRecord
		err := tx.Where("slot = ?", slot).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Omit(clause.Associations).Create(rec).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			rec.ID = existing.ID
			rec.CreatedAt = existing.CreatedAt
			if err := tx.Omit(clause.Associations).Save(rec).Error; err != nil {
				return err
			}
			if err := tx.Where("combatant_id = ?", rec.ID).Delete(&model.CombatantStat{}).Error; err != nil {
				return err
			}
		}
		for i := range rec.Stats {
			rec.Stats[i].CombatantID = rec.ID
		}
		if len(rec.Stats) == 0 {
			return nil
		}
		return tx.Create(&rec.Stats).Error
	})
	if err != nil {
		return fmt.Errorf("save: write %s: %w", slot, err)
	}
	s.cachePut(ctx, slot, st)
	return nil
}

// Load returns the state saved under slot, preferring the cache copy.
func (s *Store) Load(ctx context.Context, slot string) (battle.State, error) {
	if st, ok := s.cacheGet(ctx, slot); ok {
		return st, nil
	}
	var rec model.CombatantRecord
	err := s.db.WithContext(ctx).Preload("Stats").Where("slot = ?", slot).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return battle.State{}, ErrNotFound
	}
	if err != nil {
		return battle.State{}, fmt.Errorf("save: read %s: %w", slot, err)
	}
	st, err := fromRecord(&rec)
	if err != nil {
		return battle.State{}, err
	}
	s.cachePut(ctx, slot, st)
	return st, nil
}

// Delete removes a save. Deleting a missing slot is not an error.
func (s *Store) Delete(ctx context.Context, slot string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec model.CombatantRecord
		err := tx.Where("slot = ?", slot).Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("combatant_id = ?", rec.ID).Delete(&model.CombatantStat{}).Error; err != nil {
			return err
		}
		return tx.Delete(&rec).Error
	})
	if err != nil {
		return fmt.Errorf("save: delete %s: %w", slot, err)
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, keyPrefix+slot); err != nil {
			s.logger.Warn("save cache delete failed", zap.String("slot", slot), zap.Error(err))
		}
	}
	return nil
}

// Slots lists every saved slot in name order.
func (s *Store) Slots(ctx context.Context) ([]string, error) {
	var slots []string
	err := s.db.WithContext(ctx).Model(&model.CombatantRecord{}).Order("slot").Pluck("slot", &slots).Error
	if err != nil {
		return nil, fmt.Errorf("save: list: %w", err)
	}
	return slots, nil
}

// SaveCombatant captures h from arena and saves it under slot.
func (s *Store) SaveCombatant(ctx context.Context, arena *battle.Arena, slot string, h event.Handle) error {
	st, err := arena.State(h)
	if err != nil {
		return err
	}
	return s.Save(ctx, slot, st)
}

// LoadCombatant restores the save in slot onto h.
func (s *Store) LoadCombatant(ctx context.Context, arena *battle.Arena, slot string, h event.Handle) error {
	st, err := s.Load(ctx, slot)
	if err != nil {
		return err
	}
	return arena.Restore(h, st)
}

func (s *Store) cachePut(ctx context.Context, slot string, st battle.State) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(st)
	if err != nil {
		s.logger.Warn("save cache encode failed", zap.String("slot", slot), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, keyPrefix+slot, string(b), s.ttl); err != nil {
		s.logger.Warn("save cache write failed", zap.String("slot", slot), zap.Error(err))
	}
}

func (s *Store) cacheGet(ctx context.Context, slot string) (battle.State, bool) {
	if s.cache == nil {
		return battle.State{}, false
	}
	raw, err := s.cache.Get(ctx, keyPrefix+slot)
	if err != nil {
		if !cache.IsNotFound(err) {
			s.logger.Warn("save cache read failed", zap.String("slot", slot), zap.Error(err))
		}
		return battle.State{}, false
	}
	var st battle.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		s.logger.Warn("save cache entry corrupt", zap.String("slot", slot), zap.Error(err))
		return battle.State{}, false
	}
	return st, true
}

func toRecord(slot string, st battle.State) (*model.CombatantRecord, error) {
	mods, err := json.Marshal(st.Modifiers)
	if err != nil {
		return nil, fmt.Errorf("save: encode modifiers: %w", err)
	}
	rec := &model.CombatantRecord{
		Slot:      slot,
		Name:      st.Name,
		Element:   st.Element.String(),
		HP:        st.HP,
		MP:        st.MP,
		Dead:      st.Dead,
		Modifiers: datatypes.JSON(mods),
	}
	for _, b := range st.Bases {
		rec.Stats = append(rec.Stats, model.CombatantStat{Stat: b.Stat.String(), Base: b.Value})
	}
	return rec, nil
}

func fromRecord(rec *model.CombatantRecord) (battle.State, error) {
	el, err := element.ParseElement(rec.Element)
	if err != nil {
		return battle.State{}, fmt.Errorf("save: slot %s: %w", rec.Slot, err)
	}
	st := battle.State{
		Name:    rec.Name,
		Element: el,
		HP:      rec.HP,
		MP:      rec.MP,
		Dead:    rec.Dead,
	}
	for _, row := range rec.Stats {
		stat, err := stats.ParseStat(row.Stat)
		if err != nil {
			return battle.State{}, fmt.Errorf("save: slot %s: %w", rec.Slot, err)
		}
		st.Bases = append(st.Bases, stats.BaseValue{Stat: stat, Value: row.Base})
	}
	if len(rec.Modifiers) > 0 {
		if err := json.Unmarshal(rec.Modifiers, &st.Modifiers); err != nil {
			return battle.State{}, fmt.Errorf("save: slot %s: decode modifiers: %w", rec.Slot, err)
		}
	}
	return st, nil
}
