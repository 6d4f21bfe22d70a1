package event

// Handle identifies a combatant inside an arena. Zero is never assigned.
type Handle uint32

// Event is emitted by the combat core for the surrounding application to consume.
type Event interface {
	EventType() string
}

// Event type names.
const (
	TypeDamaged         = "damaged"
	TypeHealed          = "healed"
	TypeManaChanged     = "mana_changed"
	TypeDied            = "died"
	TypeRevived         = "revived"
	TypeAttackResolved  = "attack_resolved"
	TypeArmorBroken     = "armor_broken"
	TypeArmorRestored   = "armor_restored"
	TypeControlApplied  = "control_applied"
	TypeControlRemoved  = "control_removed"
	TypeModifierExpired = "modifier_expired"
	TypeSpawned         = "spawned"
	TypeDespawned       = "despawned"
)

// --- Resource pool ---

type Damaged struct {
	Subject Handle  `json:"subject"`
	Amount  float64 `json:"amount"`
	HP      float64 `json:"hp"`
	MaxHP   float64 `json:"max_hp"`
}

func (Damaged) EventType() string { return TypeDamaged }

type Healed struct {
	Subject Handle  `json:"subject"`
	Amount  float64 `json:"amount"`
	HP      float64 `json:"hp"`
	MaxHP   float64 `json:"max_hp"`
}

func (Healed) EventType() string { return TypeHealed }

type ManaChanged struct {
	Subject Handle  `json:"subject"`
	MP      float64 `json:"mp"`
	MaxMP   float64 `json:"max_mp"`
}

func (ManaChanged) EventType() string { return TypeManaChanged }

type Died struct {
	Subject Handle `json:"subject"`
}

func (Died) EventType() string { return TypeDied }

type Revived struct {
	Subject Handle  `json:"subject"`
	HP      float64 `json:"hp"`
	MP      float64 `json:"mp"`
}

func (Revived) EventType() string { return TypeRevived }

// --- Combat ---

// AttackResolved carries the outcome of one attack, including misses.
type AttackResolved struct {
	Attacker            Handle  `json:"attacker"`
	Defender            Handle  `json:"defender"`
	DamageType          string  `json:"damage_type"`
	BaseDamage          float64 `json:"base_damage"`
	FinalDamage         float64 `json:"final_damage"`
	Applied             float64 `json:"applied"`
	Critical            bool    `json:"critical"`
	Dodged              bool    `json:"dodged"`
	ElementalMultiplier float64 `json:"elemental_multiplier"`
	Source              string  `json:"source"`
}

func (AttackResolved) EventType() string { return TypeAttackResolved }

// --- Stagger ---

type ArmorBroken struct {
	Subject  Handle  `json:"subject"`
	Cooldown float64 `json:"cooldown_s"`
}

func (ArmorBroken) EventType() string { return TypeArmorBroken }

type ArmorRestored struct {
	Subject Handle  `json:"subject"`
	Armor   float64 `json:"armor"`
}

func (ArmorRestored) EventType() string { return TypeArmorRestored }

type ControlApplied struct {
	Subject  Handle  `json:"subject"`
	Control  string  `json:"control"`
	Duration float64 `json:"duration_s"`
	Source   string  `json:"source,omitempty"`
}

func (ControlApplied) EventType() string { return TypeControlApplied }

type ControlRemoved struct {
	Subject Handle `json:"subject"`
	Control string `json:"control"`
	Expired bool   `json:"expired"`
}

func (ControlRemoved) EventType() string { return TypeControlRemoved }

// --- Stats ---

type ModifierExpired struct {
	Subject    Handle `json:"subject"`
	ModifierID string `json:"modifier_id"`
	Stat       string `json:"stat"`
	Source     string `json:"source,omitempty"`
}

func (ModifierExpired) EventType() string { return TypeModifierExpired }

// --- Arena ---

type Spawned struct {
	Subject Handle `json:"subject"`
	Name    string `json:"name"`
}

func (Spawned) EventType() string { return TypeSpawned }

type Despawned struct {
	Subject Handle `json:"subject"`
}

func (Despawned) EventType() string { return TypeDespawned }
