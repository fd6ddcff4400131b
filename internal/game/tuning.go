package game

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning holds the simulation constants for one world instance. These are
// operator configuration, not protocol-negotiated values; clients learn the
// consequences through broadcasts only.
type Tuning struct {
	// TickMillis is the simulation step period in milliseconds.
	TickMillis int `yaml:"tick_millis"`

	// Escort settings.
	EscortMaxHealth   int     `yaml:"escort_max_health"`
	EscortSpeed       float64 `yaml:"escort_speed"`
	EscortBlockRadius float64 `yaml:"escort_block_radius"`
	WaypointTolerance float64 `yaml:"waypoint_tolerance"`
	DestinationRadius float64 `yaml:"destination_radius"`

	// Enemy settings.
	EnemyHealth          int     `yaml:"enemy_health"`
	EnemySpeed           float64 `yaml:"enemy_speed"`
	EnemyDamage          int     `yaml:"enemy_damage"`
	PlayerStopDistance   float64 `yaml:"player_stop_distance"`
	EscortStopDistance   float64 `yaml:"escort_stop_distance"`
	AttackCooldownSecs   float64 `yaml:"attack_cooldown_seconds"`
	FreezeSecs           float64 `yaml:"freeze_seconds"`
	WaveActivationRadius float64 `yaml:"wave_activation_radius"`

	// Player settings.
	ShieldRegenDelaySecs float64 `yaml:"shield_regen_delay_seconds"`
	StartingPoints       int     `yaml:"starting_points"`
	BaseMaxShield        int     `yaml:"base_max_shield"`

	// Route generation.
	PathSegments int     `yaml:"path_segments"`
	PathStartX   float64 `yaml:"path_start_x"`
	PathFinalX   float64 `yaml:"path_final_x"`
	WaveChance   float64 `yaml:"wave_chance"`
}

// DefaultTuning returns the canonical constants.
func DefaultTuning() Tuning {
	return Tuning{
		TickMillis:           100,
		EscortMaxHealth:      500,
		EscortSpeed:          2.0,
		EscortBlockRadius:    8.0,
		WaypointTolerance:    0.5,
		DestinationRadius:    1.0,
		EnemyHealth:          100,
		EnemySpeed:           3.0,
		EnemyDamage:          5,
		PlayerStopDistance:   2.5,
		EscortStopDistance:   4.5,
		AttackCooldownSecs:   2.0,
		FreezeSecs:           5.0,
		WaveActivationRadius: 15.0,
		ShieldRegenDelaySecs: 5.0,
		StartingPoints:       150,
		BaseMaxShield:        20,
		PathSegments:         15,
		PathStartX:           5.0,
		PathFinalX:           300.0,
		WaveChance:           0.7,
	}
}

// LoadTuning loads tuning from a YAML file, falling back to defaults for a
// missing file and for any zero-valued field.
func LoadTuning(path string) (Tuning, error) {
	tuning := DefaultTuning()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tuning, nil
		}
		return tuning, err
	}

	var wrapper struct {
		Game Tuning `yaml:"game"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return DefaultTuning(), err
	}

	merged := DefaultTuning()
	mergeTuning(&merged, wrapper.Game)
	return merged, nil
}

// mergeTuning overlays non-zero loaded values onto the defaults.
func mergeTuning(dst *Tuning, src Tuning) {
	if src.TickMillis > 0 {
		dst.TickMillis = src.TickMillis
	}
	if src.EscortMaxHealth > 0 {
		dst.EscortMaxHealth = src.EscortMaxHealth
	}
	if src.EscortSpeed > 0 {
		dst.EscortSpeed = src.EscortSpeed
	}
	if src.EscortBlockRadius > 0 {
		dst.EscortBlockRadius = src.EscortBlockRadius
	}
	if src.WaypointTolerance > 0 {
		dst.WaypointTolerance = src.WaypointTolerance
	}
	if src.DestinationRadius > 0 {
		dst.DestinationRadius = src.DestinationRadius
	}
	if src.EnemyHealth > 0 {
		dst.EnemyHealth = src.EnemyHealth
	}
	if src.EnemySpeed > 0 {
		dst.EnemySpeed = src.EnemySpeed
	}
	if src.EnemyDamage > 0 {
		dst.EnemyDamage = src.EnemyDamage
	}
	if src.PlayerStopDistance > 0 {
		dst.PlayerStopDistance = src.PlayerStopDistance
	}
	if src.EscortStopDistance > 0 {
		dst.EscortStopDistance = src.EscortStopDistance
	}
	if src.AttackCooldownSecs > 0 {
		dst.AttackCooldownSecs = src.AttackCooldownSecs
	}
	if src.FreezeSecs > 0 {
		dst.FreezeSecs = src.FreezeSecs
	}
	if src.WaveActivationRadius > 0 {
		dst.WaveActivationRadius = src.WaveActivationRadius
	}
	if src.ShieldRegenDelaySecs > 0 {
		dst.ShieldRegenDelaySecs = src.ShieldRegenDelaySecs
	}
	if src.StartingPoints > 0 {
		dst.StartingPoints = src.StartingPoints
	}
	if src.BaseMaxShield > 0 {
		dst.BaseMaxShield = src.BaseMaxShield
	}
	if src.PathSegments > 0 {
		dst.PathSegments = src.PathSegments
	}
	if src.PathStartX > 0 {
		dst.PathStartX = src.PathStartX
	}
	if src.PathFinalX > 0 {
		dst.PathFinalX = src.PathFinalX
	}
	if src.WaveChance > 0 {
		dst.WaveChance = src.WaveChance
	}
}

// TickPeriod returns the simulation step period as a duration.
func (t Tuning) TickPeriod() time.Duration {
	return time.Duration(t.TickMillis) * time.Millisecond
}

// TickSeconds returns the simulation step period in seconds, the dt applied
// to per-second speeds each step.
func (t Tuning) TickSeconds() float64 {
	return float64(t.TickMillis) / 1000.0
}

// AttackCooldown returns the enemy melee cooldown as a duration.
func (t Tuning) AttackCooldown() time.Duration {
	return time.Duration(t.AttackCooldownSecs * float64(time.Second))
}

// FreezeDuration returns the freeze potion effect length as a duration.
func (t Tuning) FreezeDuration() time.Duration {
	return time.Duration(t.FreezeSecs * float64(time.Second))
}

// ShieldRegenDelay returns the damage-free interval required before passive
// shield regeneration resumes.
func (t Tuning) ShieldRegenDelay() time.Duration {
	return time.Duration(t.ShieldRegenDelaySecs * float64(time.Second))
}
