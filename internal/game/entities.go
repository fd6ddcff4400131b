// Package game owns the authoritative world state: connected players, live
// enemies, the escort and its route, and the economy. All mutation goes
// through the World's operation set so the locking discipline lives in one
// place instead of being scattered across session handlers.
package game

import (
	"time"

	"github.com/lawnchairsociety/tradeguard/server/internal/geometry"
)

// GameState tracks the lifecycle of one world instance.
type GameState int

const (
	StateWaitingForPlayers GameState = iota
	StatePlaying
	StateVictory
	StateDefeat
)

// String returns a human-readable state name for logging.
func (s GameState) String() string {
	switch s {
	case StateWaitingForPlayers:
		return "waiting_for_players"
	case StatePlaying:
		return "playing"
	case StateVictory:
		return "victory"
	case StateDefeat:
		return "defeat"
	default:
		return "unknown"
	}
}

// PlayerState is the authoritative record for one connected player. It is
// owned exclusively by the World and guarded by the World's player lock.
type PlayerState struct {
	ID       string
	Username string
	Position geometry.Vector3
	Rotation geometry.Vector3

	Health    int
	MaxHealth int

	Shield         int
	MaxShield      int
	LastDamageTime time.Time

	StrengthLevel int
	HealthPotions int
	FreezePotions int

	Points  int
	IsReady bool
}

// EnemyState is the authoritative record for one hostile entity. Enemies are
// pre-built by the wave generator and enter live state when their wave
// triggers. Guarded by the World's enemy lock.
type EnemyState struct {
	ID       int
	Position geometry.Vector3
	Health   int
	Type     int

	NextAttackTime time.Time

	IsFrozen     bool
	UnfreezeTime time.Time
}

// EnemyWave is a one-shot ambush tied to a path waypoint. Triggered is a
// one-way latch: once the escort comes within activation range the wave's
// enemies join live state exactly once.
type EnemyWave struct {
	TriggerPosition geometry.Vector3
	Enemies         []*EnemyState
	Triggered       bool
}
