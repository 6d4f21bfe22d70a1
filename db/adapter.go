package db

import (
	"fmt"

	"github.com/kasuganosora/combatcore/config"
	dbmysql "github.com/kasuganosora/combatcore/db/mysql"
	dbsqlite "github.com/kasuganosora/combatcore/db/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ModeSQLite       = "sqlite"
	ModeSQLiteMemory = "sqlite_memory"
	ModeMySQL        = "mysql"
)

// Open returns a *gorm.DB for the configured mode. SQL diagnostics go to
// logger; a nil logger silences them.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	gl := NewGormLogger(logger, cfg.SlowQuery)
	switch cfg.Mode {
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath, gl)
	case ModeSQLiteMemory:
		return dbsqlite.OpenMemory(cfg.SQLitePath, gl)
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, dbmysql.Pool{
			MaxOpen: cfg.MySQLMaxOpen,
			MaxIdle: cfg.MySQLMaxIdle,
			MaxLife: cfg.MySQLMaxLife,
		}, gl)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
