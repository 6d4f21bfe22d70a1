package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Combat   CombatConfig   `mapstructure:"combat"`
	Security SecurityConfig `mapstructure:"security"`
	Roster   []RosterEntry  `mapstructure:"roster"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
	Metrics  bool   `mapstructure:"metrics"` // expose /metrics
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | sqlite_memory | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
	SlowQuery    time.Duration `mapstructure:"slow_query"` // 0 disables slow-query warnings
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	RedisPrefix     string        `mapstructure:"redis_prefix"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type CombatConfig struct {
	TickMs           int              `mapstructure:"tick_ms"`
	Seed             int64            `mapstructure:"seed"` // 0 = clock seeded
	ReviveDelay      time.Duration    `mapstructure:"revive_delay"`
	ReviveHPFraction float64          `mapstructure:"revive_hp_fraction"`
	ReviveMPFraction float64          `mapstructure:"revive_mp_fraction"`
	SuperArmor       SuperArmorConfig `mapstructure:"super_armor"`
	EventChannel     string           `mapstructure:"event_channel"`
	EventQueue       int              `mapstructure:"event_queue"`
	LogBatchSize     int              `mapstructure:"log_batch_size"`
	LogFlush         time.Duration    `mapstructure:"log_flush"`
	FeedLength       int              `mapstructure:"feed_length"`
	AutosaveInterval time.Duration    `mapstructure:"autosave_interval"`
}

// SuperArmorConfig holds the default stagger parameters for roster entries
// that enable super armor without overriding them.
type SuperArmorConfig struct {
	MaxArmor      float64       `mapstructure:"max_armor"`
	RecoveryRate  float64       `mapstructure:"recovery_rate"`
	Resistance    float64       `mapstructure:"resistance"`
	BreakCooldown time.Duration `mapstructure:"break_cooldown"`
}

type SecurityConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// RosterEntry is a combatant spawned at startup. Base keys are stat names
// such as "atk" or "crit_rate".
type RosterEntry struct {
	Slot       string             `mapstructure:"slot"`
	Name       string             `mapstructure:"name"`
	Element    string             `mapstructure:"element"`
	Base       map[string]float64 `mapstructure:"base"`
	SuperArmor bool               `mapstructure:"super_armor"`
}

// TickInterval returns the combat frame interval.
func (c CombatConfig) TickInterval() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return decode(v)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		// defaults are static; a failure here is a programming error
		panic(err)
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if cfg.Combat.TickMs <= 0 {
		return nil, fmt.Errorf("config: combat.tick_ms must be positive, got %d", cfg.Combat.TickMs)
	}
	if cfg.Combat.SuperArmor.BreakCooldown <= 0 {
		return nil, fmt.Errorf("config: combat.super_armor.break_cooldown must be positive, got %s", cfg.Combat.SuperArmor.BreakCooldown)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.metrics", true)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/combat.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("database.slow_query", "200ms")
	v.SetDefault("cache.redis_prefix", "combat:")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("combat.tick_ms", 50)
	v.SetDefault("combat.seed", 0)
	v.SetDefault("combat.revive_delay", "3s")
	v.SetDefault("combat.revive_hp_fraction", 0.5)
	v.SetDefault("combat.revive_mp_fraction", 0.5)
	v.SetDefault("combat.super_armor.max_armor", 100)
	v.SetDefault("combat.super_armor.recovery_rate", 10)
	v.SetDefault("combat.super_armor.resistance", 0)
	v.SetDefault("combat.super_armor.break_cooldown", "5s")
	v.SetDefault("combat.event_channel", "combat.events")
	v.SetDefault("combat.event_queue", 1024)
	v.SetDefault("combat.log_batch_size", 100)
	v.SetDefault("combat.log_flush", "2s")
	v.SetDefault("combat.feed_length", 50)
	v.SetDefault("combat.autosave_interval", "5m")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
}
