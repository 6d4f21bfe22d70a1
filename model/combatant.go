package model

import (
	"time"

	"gorm.io/datatypes"
)

// CombatantRecord is a saved combatant, keyed by a caller-chosen slot.
type CombatantRecord struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	Slot      string          `gorm:"size:64;uniqueIndex;not null"`
	Name      string          `gorm:"size:64;not null"`
	Element   string          `gorm:"size:16;not null;default:none"`
	HP        float64         `gorm:"not null;default:0"`
	MP        float64         `gorm:"not null;default:0"`
	Dead      bool            `gorm:"not null;default:false"`
	Stats     []CombatantStat `gorm:"foreignKey:CombatantID;constraint:OnDelete:CASCADE"`
	Modifiers datatypes.JSON  `gorm:"type:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CombatantStat is one base value of a saved combatant.
type CombatantStat struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	CombatantID int64   `gorm:"uniqueIndex:idx_combatant_stat;not null"`
	Stat        string  `gorm:"size:32;uniqueIndex:idx_combatant_stat;not null"`
	Base        float64 `gorm:"not null;default:0"`
}
