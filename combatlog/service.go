package combatlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/kasuganosora/combatcore/cache"
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/kasuganosora/combatcore/model"
	"github.com/kasuganosora/combatcore/plugin/hook"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MeterDealtKey = "meter:dealt"
	MeterTakenKey = "meter:taken"
	FeedKey       = "feed"

	hookName = "combatlog"
)

// Config tunes the writer. Zero values fall back to the defaults below.
type Config struct {
	BatchSize     int           // default 100
	FlushInterval time.Duration // default 2s
	QueueSize     int           // default 1024
	FeedLength    int           // default 50
	Logger        *zap.Logger
}

// MeterEntry is one row of the damage meter.
type MeterEntry struct {
	Handle event.Handle `json:"handle"`
	Total  float64      `json:"total"`
}

// Service records resolved attacks asynchronously: rows go to the database
// in batches, meter totals and the recent feed go to the cache.
type Service struct {
	db     *gorm.DB
	cache  cache.Cache
	ch     chan event.AttackResolved
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *zap.Logger

	batchSize  int
	flushEvery time.Duration
	feedLength int64
}

// New creates a Service and starts its background worker. c may be nil,
// in which case only database rows are written.
func New(db *gorm.DB, c cache.Cache, cfg Config) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.FeedLength <= 0 {
		cfg.FeedLength = 50
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	svc := &Service{
		db:         db,
		cache:      c,
		ch:         make(chan event.AttackResolved, cfg.QueueSize),
		stopCh:     make(chan struct{}),
		logger:     cfg.Logger,
		batchSize:  cfg.BatchSize,
		flushEvery: cfg.FlushInterval,
		feedLength: int64(cfg.FeedLength),
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Register subscribes the service to attack events on hc.
func (svc *Service) Register(hc *hook.HookCenter) {
	hc.Register(event.TypeAttackResolved, 100, hookName, svc.onEvent)
}

func (svc *Service) onEvent(_ context.Context, ev event.Event) error {
	if a, ok := ev.(event.AttackResolved); ok {
		svc.Record(a)
	}
	return nil
}

// Record enqueues one attack. It never blocks; a full queue drops the entry.
func (svc *Service) Record(a event.AttackResolved) {
	select {
	case <-svc.stopCh:
		return
	default:
	}
	select {
	case svc.ch <- a:
	default:
		svc.logger.Warn("combat log queue full, dropping entry",
			zap.Uint32("attacker", uint32(a.Attacker)),
			zap.Uint32("defender", uint32(a.Defender)))
	}
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	svc.once.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

// Meter returns the top limit entries of the dealt (or taken) damage meter.
func (svc *Service) Meter(ctx context.Context, taken bool, limit int) ([]MeterEntry, error) {
	if svc.cache == nil {
		return nil, nil
	}
	key := MeterDealtKey
	if taken {
		key = MeterTakenKey
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	zs, err := svc.cache.ZRevRangeWithScores(ctx, key, 0, stop)
	if err != nil {
		return nil, fmt.Errorf("combatlog: meter: %w", err)
	}
	out := make([]MeterEntry, 0, len(zs))
	for _, z := range zs {
		h, err := strconv.ParseUint(z.Member, 10, 32)
		if err != nil {
			continue
		}
		out = append(out, MeterEntry{Handle: event.Handle(h), Total: z.Score})
	}
	return out, nil
}

// Totals returns how much damage h has dealt and taken since the last Reset.
func (svc *Service) Totals(ctx context.Context, h event.Handle) (dealt, taken float64, err error) {
	if svc.cache == nil {
		return 0, 0, nil
	}
	if dealt, err = svc.score(ctx, MeterDealtKey, h); err != nil {
		return 0, 0, err
	}
	if taken, err = svc.score(ctx, MeterTakenKey, h); err != nil {
		return 0, 0, err
	}
	return dealt, taken, nil
}

func (svc *Service) score(ctx context.Context, key string, h event.Handle) (float64, error) {
	v, err := svc.cache.ZScore(ctx, key, handleKey(h))
	if cache.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("combatlog: totals: %w", err)
	}
	return v, nil
}

// Feed returns up to limit most recent attacks, newest first.
func (svc *Service) Feed(ctx context.Context, limit int) ([]event.AttackResolved, error) {
	if svc.cache == nil {
		return nil, nil
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raw, err := svc.cache.LRange(ctx, FeedKey, 0, stop)
	if err != nil {
		return nil, fmt.Errorf("combatlog: feed: %w", err)
	}
	out := make([]event.AttackResolved, 0, len(raw))
	for _, s := range raw {
		var a event.AttackResolved
		if err := json.Unmarshal([]byte(s), &a); err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// History returns the stored attacks involving h, newest first.
func (svc *Service) History(ctx context.Context, h event.Handle, limit int) ([]model.CombatLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []model.CombatLog
	err := svc.db.WithContext(ctx).
		Where("attacker = ? OR defender = ?", uint32(h), uint32(h)).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("combatlog: history: %w", err)
	}
	return rows, nil
}

// Reset clears the meters and the feed.
func (svc *Service) Reset(ctx context.Context) error {
	if svc.cache == nil {
		return nil
	}
	return svc.cache.Del(ctx, MeterDealtKey, MeterTakenKey, FeedKey)
}

func toRecord(a event.AttackResolved) *model.CombatLog {
	report, _ := json.Marshal(a)
	return &model.CombatLog{
		Attacker:    uint32(a.Attacker),
		Defender:    uint32(a.Defender),
		DamageType:  a.DamageType,
		FinalDamage: a.FinalDamage,
		Applied:     a.Applied,
		Critical:    a.Critical,
		Dodged:      a.Dodged,
		Source:      a.Source,
		Report:      datatypes.JSON(report),
	}
}

func (svc *Service) track(a event.AttackResolved) {
	if svc.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if a.Applied > 0 {
		if _, err := svc.cache.ZIncrBy(ctx, MeterDealtKey, a.Applied, handleKey(a.Attacker)); err != nil {
			svc.logger.Warn("damage meter update failed", zap.Error(err))
		}
		if _, err := svc.cache.ZIncrBy(ctx, MeterTakenKey, a.Applied, handleKey(a.Defender)); err != nil {
			svc.logger.Warn("damage meter update failed", zap.Error(err))
		}
	}
	payload, _ := json.Marshal(a)
	if err := svc.cache.PushCapped(ctx, FeedKey, svc.feedLength, string(payload)); err != nil {
		svc.logger.Warn("combat feed push failed", zap.Error(err))
	}
}

func handleKey(h event.Handle) string {
	return strconv.FormatUint(uint64(h), 10)
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(svc.flushEvery)
	defer ticker.Stop()

	batch := make([]*model.CombatLog, 0, svc.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("combat log batch write failed",
				zap.Int("rows", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}
	accept := func(a event.AttackResolved) {
		svc.track(a)
		batch = append(batch, toRecord(a))
	}

	for {
		select {
		case a := <-svc.ch:
			accept(a)
			if len(batch) >= svc.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case a := <-svc.ch:
					accept(a)
				default:
					flush()
					return
				}
			}
		}
	}
}
