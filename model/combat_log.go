package model

import (
	"time"

	"gorm.io/datatypes"
)

// CombatLog records one resolved attack.
type CombatLog struct {
	ID          int64          `gorm:"primaryKey;autoIncrement"`
	Attacker    uint32         `gorm:"index"`
	Defender    uint32         `gorm:"index"`
	DamageType  string         `gorm:"size:16"`
	FinalDamage float64
	Applied     float64
	Critical    bool
	Dodged      bool
	Source      string         `gorm:"size:64"`
	Report      datatypes.JSON `gorm:"type:json"`
	CreatedAt   time.Time      `gorm:"index"`
}
