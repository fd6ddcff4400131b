package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/lawnchairsociety/tradeguard/server/internal/geometry"
	"github.com/lawnchairsociety/tradeguard/server/internal/logger"
	"github.com/lawnchairsociety/tradeguard/server/internal/protocol"
)

// Conn is the outbound half of one client session. Implementations must be
// safe for concurrent use and must not block indefinitely on a dead peer.
type Conn interface {
	SendLine(message string) error
}

// Sink is where the world publishes state changes. A send failure to one
// recipient is the sink's problem to isolate; the world never sees it.
type Sink interface {
	Broadcast(message string)
	BroadcastExcept(message string, exclude Conn)
	SendToPlayer(playerID, message string)
}

// nopSink drops everything. Default until a real sink is wired.
type nopSink struct{}

func (nopSink) Broadcast(string)                {}
func (nopSink) BroadcastExcept(string, Conn)    {}
func (nopSink) SendToPlayer(string, string)     {}

// escortTargetID marks the escort in enemy targeting, distinguishing it from
// player ids in pending damage events.
const escortTargetID = "Merchant"

// World is the authoritative state aggregate for one game instance.
//
// Two locks guard the shared collections: mu covers players, the escort, the
// route, and the game state; emu covers live enemies and pending waves. The
// fixed acquisition order is mu before emu. Critical sections are bounded to
// in-memory mutation plus sink publication.
type World struct {
	tuning Tuning
	sink   Sink

	mu           sync.Mutex
	players      map[string]*PlayerState
	nextPlayerID int
	state        GameState
	seed         int64
	rng          *rand.Rand

	escortPosition geometry.Vector3
	escortHealth   int
	destination    geometry.Vector3
	waypoints      []geometry.Vector3
	waypointIndex  int

	emu     sync.Mutex
	enemies []*EnemyState
	waves   []*EnemyWave
}

// NewWorld creates a world seeded from initialSeed, or from the clock when
// initialSeed is zero. Subsequent resets draw fresh seeds from an internal
// generator so each instance gets a new route with high probability.
func NewWorld(initialSeed int64, tuning Tuning) *World {
	if initialSeed == 0 {
		initialSeed = time.Now().UnixNano()
	}

	w := &World{
		tuning:  tuning,
		sink:    nopSink{},
		players: make(map[string]*PlayerState),
		rng:     rand.New(rand.NewSource(initialSeed)),
	}

	w.mu.Lock()
	w.resetLocked(initialSeed)
	w.mu.Unlock()

	return w
}

// SetSink wires the broadcast sink. Call before accepting connections.
func (w *World) SetSink(sink Sink) {
	if sink == nil {
		sink = nopSink{}
	}
	w.sink = sink
}

// Tuning returns the simulation constants this world runs with.
func (w *World) Tuning() Tuning {
	return w.tuning
}

// State returns the current game state.
func (w *World) State() GameState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Seed returns the seed of the current world instance.
func (w *World) Seed() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seed
}

// PlayerCount returns the number of joined players.
func (w *World) PlayerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.players)
}

// resetLocked rebuilds the world instance: fresh route, fresh waves, full
// escort health, lobby state. The only trigger besides construction is the
// player set becoming empty. Caller holds mu.
func (w *World) resetLocked(seed int64) {
	w.seed = seed
	w.state = StateWaitingForPlayers
	w.nextPlayerID = 1
	w.escortHealth = w.tuning.EscortMaxHealth

	route := GenerateRoute(seed, w.tuning)
	w.waypoints = route.Waypoints
	w.destination = route.Destination
	w.waypointIndex = 0
	w.escortPosition = route.Waypoints[0]

	w.emu.Lock()
	w.enemies = nil
	w.waves = route.Waves
	w.emu.Unlock()

	logger.Info("World reset",
		"seed", seed,
		"waypoints", len(w.waypoints),
		"waves", len(route.Waves))
}

// Join creates a player for the session, sends it a private snapshot of the
// whole world, and announces the spawn to everyone else. Returns the assigned
// player id. Registry mutation is serialized under mu so concurrent joins
// cannot interleave ids or snapshots.
func (w *World) Join(username string, conn Conn) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := fmt.Sprintf("Player%d", w.nextPlayerID)
	w.nextPlayerID++

	p := &PlayerState{
		ID:        id,
		Username:  username,
		Health:    100,
		MaxHealth: 100,
		Shield:    w.tuning.BaseMaxShield,
		MaxShield: w.tuning.BaseMaxShield,
		Points:    w.tuning.StartingPoints,
	}
	w.players[id] = p

	spawn := protocol.PlayerSpawn(p.ID, p.Username, p.Position, p.Rotation)
	status := protocol.PlayerStatus(p.ID, p.Health, p.Shield)

	// Private snapshot for the joining client.
	w.sendTo(conn, protocol.YourID(id))
	w.sendTo(conn, spawn)
	w.sendTo(conn, status)
	w.sendTo(conn, protocol.Points(p.Points))
	w.sendTo(conn, protocol.Inventory(p.HealthPotions, p.FreezePotions))
	w.sendTo(conn, w.shopStateLine(p))
	w.sendTo(conn, protocol.MapSeed(w.seed))
	w.sendTo(conn, protocol.MerchantPos(w.escortPosition))
	w.sendTo(conn, protocol.DestinationPos(w.destination))
	w.sendTo(conn, protocol.MerchantHealth(w.escortHealth, w.tuning.EscortMaxHealth))

	w.emu.Lock()
	for _, enemy := range w.enemies {
		w.sendTo(conn, protocol.EnemySpawn(enemy.ID, enemy.Position, enemy.Health, enemy.Type))
	}
	w.sendTo(conn, protocol.WaveStatus(w.triggeredWavesLocked(), len(w.waves)))
	w.emu.Unlock()

	for _, existing := range w.players {
		if existing.ID == id {
			continue
		}
		w.sendTo(conn, protocol.PlayerSpawn(existing.ID, existing.Username, existing.Position, existing.Rotation))
		w.sendTo(conn, protocol.PlayerStatus(existing.ID, existing.Health, existing.Shield))
	}

	w.sink.BroadcastExcept(spawn, conn)
	w.sink.BroadcastExcept(status, conn)

	logger.Info("Player joined", "player", id, "username", username, "players", len(w.players))
	return id
}

// SetReady marks a player ready. When at least one player exists and all are
// ready, the game starts and the start signal plus wave progress goes out.
func (w *World) SetReady(playerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.players[playerID]
	if !ok {
		return
	}
	p.IsReady = true
	logger.Info("Player ready", "player", playerID)

	if w.state != StateWaitingForPlayers || len(w.players) == 0 {
		return
	}
	for _, other := range w.players {
		if !other.IsReady {
			return
		}
	}

	w.state = StatePlaying
	w.sink.Broadcast(protocol.GameStart())

	w.emu.Lock()
	w.sink.Broadcast(protocol.WaveStatus(w.triggeredWavesLocked(), len(w.waves)))
	w.emu.Unlock()

	logger.Info("All players ready, game started", "players", len(w.players))
}

// Leave removes a player and announces the despawn. Removing the last player
// resets the whole world instance.
func (w *World) Leave(playerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.players[playerID]; !ok {
		return
	}
	delete(w.players, playerID)
	w.sink.Broadcast(protocol.PlayerDespawn(playerID))
	logger.Info("Player left", "player", playerID, "players", len(w.players))

	if len(w.players) == 0 {
		w.resetLocked(w.rng.Int63())
	}
}

// Move overwrites a player's position and rotation and rebroadcasts to all
// clients including the sender, which reconciles locally.
func (w *World) Move(playerID string, pos, rot geometry.Vector3) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.players[playerID]
	if !ok {
		return
	}
	p.Position = pos
	p.Rotation = rot

	w.sink.Broadcast(protocol.PlayerUpdate(playerID, pos, rot))
}

// Attack applies melee damage from a player to an enemy. Damage scales with
// the attacker's strength level. A missing attacker or target is a silent
// no-op: that is the expected race between a death event and a queued attack.
func (w *World) Attack(attackerID string, enemyID int) {
	w.mu.Lock()
	attacker, ok := w.players[attackerID]
	var strength int
	if ok {
		strength = attacker.StrengthLevel
	}
	w.mu.Unlock()
	if !ok {
		return
	}

	damage := 10 + strength*10

	w.emu.Lock()
	defer w.emu.Unlock()

	for i, enemy := range w.enemies {
		if enemy.ID != enemyID {
			continue
		}

		enemy.Health -= damage
		w.sink.Broadcast(protocol.EnemyHealthUpdate(enemy.ID, enemy.Health))
		logger.Debug("Player attack", "player", attackerID, "enemy", enemyID, "damage", damage)

		if enemy.Health <= 0 {
			w.enemies = append(w.enemies[:i], w.enemies[i+1:]...)
			w.sink.Broadcast(protocol.EnemyDespawn(enemy.ID))
			logger.Info("Enemy destroyed", "enemy", enemyID, "player", attackerID)
		}
		return
	}
}

// UseItem consumes a potion if the player has one. A health potion heals 50
// capped at max health. A freeze potion freezes every live enemy, re-arming
// the timer on enemies already frozen. Lacking the item is a silent no-op.
func (w *World) UseItem(playerID, item string) {
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.players[playerID]
	if !ok {
		return
	}

	switch item {
	case ItemHealthPotion:
		if p.HealthPotions <= 0 {
			return
		}
		p.HealthPotions--
		p.Health += 50
		if p.Health > p.MaxHealth {
			p.Health = p.MaxHealth
		}
		w.sink.SendToPlayer(playerID, protocol.Inventory(p.HealthPotions, p.FreezePotions))
		w.sink.Broadcast(protocol.PlayerStatus(playerID, p.Health, p.Shield))

	case ItemFreezePotion:
		if p.FreezePotions <= 0 {
			return
		}
		p.FreezePotions--
		w.freezeAllEnemies(now)
		w.sink.SendToPlayer(playerID, protocol.Inventory(p.HealthPotions, p.FreezePotions))
		logger.Info("Freeze potion used", "player", playerID)
	}
}

// freezeAllEnemies re-arms every enemy's freeze timer, broadcasting the
// freeze only on the frozen-state edge. Caller holds mu.
func (w *World) freezeAllEnemies(now time.Time) {
	until := now.Add(w.tuning.FreezeDuration())

	w.emu.Lock()
	defer w.emu.Unlock()

	for _, enemy := range w.enemies {
		enemy.UnfreezeTime = until
		if !enemy.IsFrozen {
			enemy.IsFrozen = true
			w.sink.Broadcast(protocol.EnemyFreeze(enemy.ID, true))
		}
	}
}

// ShopAction is a buy or a sell against the fixed catalog.
type ShopAction int

const (
	ShopBuy ShopAction = iota
	ShopSell
)

// Shop performs a buy or sell for the player. Buying requires enough points
// and applies the item's effect; selling requires the inverse predicate,
// undoes the effect exactly, and refunds the price. Floors are enforced:
// strength and max shield never drop below their minimums.
func (w *World) Shop(playerID string, action ShopAction, item string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.players[playerID]
	if !ok {
		return
	}
	price, ok := ItemPrice(item)
	if !ok {
		logger.Warning("Shop action for unknown item", "player", playerID, "item", item)
		return
	}

	switch action {
	case ShopBuy:
		if p.Points < price {
			return
		}
		p.Points -= price
		switch item {
		case ItemStrengthUpgrade:
			p.StrengthLevel++
		case ItemHealthPotion:
			p.HealthPotions++
		case ItemShieldUpgrade:
			p.MaxShield += 20
			p.Shield = p.MaxShield
		case ItemFreezePotion:
			p.FreezePotions++
		}
		logger.Info("Item bought", "player", playerID, "item", item, "points", p.Points)

	case ShopSell:
		switch item {
		case ItemStrengthUpgrade:
			if p.StrengthLevel <= 0 {
				return
			}
			p.StrengthLevel--
		case ItemHealthPotion:
			if p.HealthPotions <= 0 {
				return
			}
			p.HealthPotions--
		case ItemShieldUpgrade:
			if p.MaxShield <= w.tuning.BaseMaxShield {
				return
			}
			p.MaxShield -= 20
			if p.Shield > p.MaxShield {
				p.Shield = p.MaxShield
			}
		case ItemFreezePotion:
			if p.FreezePotions <= 0 {
				return
			}
			p.FreezePotions--
		}
		p.Points += price
		logger.Info("Item sold", "player", playerID, "item", item, "points", p.Points)
	}

	w.sink.SendToPlayer(playerID, protocol.Points(p.Points))
	w.sink.SendToPlayer(playerID, protocol.Inventory(p.HealthPotions, p.FreezePotions))
	w.sink.SendToPlayer(playerID, w.shopStateLine(p))
}

// DamagePlayer applies incoming damage with shield-first mitigation: the
// shield absorbs up to its current value, the remainder reduces health
// floored at zero. The resulting status is always broadcast, even when the
// shield absorbed everything.
func (w *World) DamagePlayer(playerID string, amount int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.damagePlayerLocked(playerID, amount, time.Now())
}

// damagePlayerLocked is DamagePlayer for callers already holding mu.
func (w *World) damagePlayerLocked(playerID string, amount int, now time.Time) {
	p, ok := w.players[playerID]
	if !ok {
		return
	}

	p.LastDamageTime = now

	remaining := amount
	if p.Shield > 0 {
		if p.Shield >= remaining {
			p.Shield -= remaining
			remaining = 0
		} else {
			remaining -= p.Shield
			p.Shield = 0
		}
	}
	if remaining > 0 {
		p.Health -= remaining
		if p.Health < 0 {
			p.Health = 0
		}
	}

	w.sink.Broadcast(protocol.PlayerStatus(playerID, p.Health, p.Shield))

	if p.Health == 0 {
		logger.Info("Player downed", "player", playerID, "username", p.Username)
	}
}

// shopStateLine formats the player's purchased upgrades. Caller holds mu.
func (w *World) shopStateLine(p *PlayerState) string {
	shieldUpgrades := (p.MaxShield - w.tuning.BaseMaxShield) / 20
	return protocol.ShopState(p.StrengthLevel, shieldUpgrades, p.HealthPotions, p.FreezePotions)
}

// triggeredWavesLocked counts latched waves. Caller holds emu.
func (w *World) triggeredWavesLocked() int {
	count := 0
	for _, wave := range w.waves {
		if wave.Triggered {
			count++
		}
	}
	return count
}

// sendTo writes one line to a session, tolerating a nil or dead peer.
func (w *World) sendTo(conn Conn, message string) {
	if conn == nil {
		return
	}
	if err := conn.SendLine(message); err != nil {
		logger.Debug("Dropped send to client", "error", err)
	}
}
