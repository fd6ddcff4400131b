package game

import (
	"time"

	"github.com/lawnchairsociety/tradeguard/server/internal/geometry"
	"github.com/lawnchairsociety/tradeguard/server/internal/logger"
	"github.com/lawnchairsociety/tradeguard/server/internal/protocol"
)

// Step advances the simulation by one tick. The scheduler calls this on a
// fixed period; tests call it directly with synthetic clocks. While the game
// is not in the playing state the step is a no-op, which is what makes the
// victory and defeat states terminal until a reset.
//
// Phase order is fixed: shield regeneration, escort movement, wave
// activation, enemy AI, end-condition check.
func (w *World) Step(now time.Time) {
	w.mu.Lock()
	playing := w.state == StatePlaying
	w.mu.Unlock()
	if !playing {
		return
	}

	w.regenerateShields(now)
	w.moveEscort()
	w.activateWaves()
	w.updateEnemies(now)
	w.checkEndConditions()
}

// regenerateShields grants +1 shield to every player whose last damage is
// older than the regen delay, broadcasting status only for players that
// actually regenerated.
func (w *World) regenerateShields(now time.Time) {
	delay := w.tuning.ShieldRegenDelay()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, p := range w.players {
		if p.Shield >= p.MaxShield {
			continue
		}
		if now.Sub(p.LastDamageTime) <= delay {
			continue
		}
		p.Shield++
		w.sink.Broadcast(protocol.PlayerStatus(p.ID, p.Health, p.Shield))
	}
}

// moveEscort steps the escort toward its current waypoint unless a live,
// non-frozen enemy stands within the block radius. Arrival within tolerance
// advances the waypoint index, which only ever increases.
func (w *World) moveEscort() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.waypointIndex >= len(w.waypoints) {
		return
	}

	blocked := false
	w.emu.Lock()
	for _, enemy := range w.enemies {
		if enemy.IsFrozen {
			continue
		}
		if geometry.Distance(w.escortPosition, enemy.Position) < w.tuning.EscortBlockRadius {
			blocked = true
			break
		}
	}
	w.emu.Unlock()
	if blocked {
		return
	}

	target := w.waypoints[w.waypointIndex]
	w.escortPosition = geometry.MoveTowards(w.escortPosition, target, w.tuning.EscortSpeed*w.tuning.TickSeconds())

	if geometry.Distance(w.escortPosition, target) < w.tuning.WaypointTolerance {
		w.waypointIndex++
		logger.Debug("Escort reached waypoint", "index", w.waypointIndex, "total", len(w.waypoints))
	}

	w.sink.Broadcast(protocol.MerchantPos(w.escortPosition))
}

// activateWaves latches every untriggered wave whose trigger waypoint is
// within activation range of the escort, moving its enemies into live state
// and broadcasting each spawn plus the updated wave progress.
func (w *World) activateWaves() {
	w.mu.Lock()
	escortPos := w.escortPosition
	w.mu.Unlock()

	w.emu.Lock()
	defer w.emu.Unlock()

	for _, wave := range w.waves {
		if wave.Triggered {
			continue
		}
		if geometry.Distance(escortPos, wave.TriggerPosition) > w.tuning.WaveActivationRadius {
			continue
		}

		wave.Triggered = true
		for _, enemy := range wave.Enemies {
			w.enemies = append(w.enemies, enemy)
			w.sink.Broadcast(protocol.EnemySpawn(enemy.ID, enemy.Position, enemy.Health, enemy.Type))
		}
		w.sink.Broadcast(protocol.WaveStatus(w.triggeredWavesLocked(), len(w.waves)))
		logger.Info("Wave triggered", "enemies", len(wave.Enemies))
	}
}

// pendingHit is an attack resolved by enemy AI, applied after the enemy lock
// is released so damage goes through the player lock in the fixed order.
type pendingHit struct {
	targetID string
	enemyID  int
}

// updateEnemies runs one AI decision per live enemy: thaw expired freezes,
// pick the nearest target among the escort and the living players, then
// either attack (inside stop distance, cooldown elapsed) or step toward the
// target. The escort is evaluated before the player loop, so it wins exact
// distance ties.
func (w *World) updateEnemies(now time.Time) {
	type targetSnapshot struct {
		id  string
		pos geometry.Vector3
	}

	// Snapshot target positions under mu, then work the enemy set under emu.
	// Lock order is mu before emu, so the AI never holds emu while touching
	// player state; hits are applied after the enemy pass.
	w.mu.Lock()
	escortPos := w.escortPosition
	targets := make([]targetSnapshot, 0, len(w.players))
	for _, p := range w.players {
		if p.Health > 0 {
			targets = append(targets, targetSnapshot{id: p.ID, pos: p.Position})
		}
	}
	w.mu.Unlock()

	var hits []pendingHit

	w.emu.Lock()
	for _, enemy := range w.enemies {
		if enemy.IsFrozen {
			if now.Before(enemy.UnfreezeTime) {
				continue
			}
			enemy.IsFrozen = false
			w.sink.Broadcast(protocol.EnemyFreeze(enemy.ID, false))
		}

		targetID := escortTargetID
		targetPos := escortPos
		minDist := geometry.Distance(enemy.Position, escortPos)

		for _, t := range targets {
			if d := geometry.Distance(enemy.Position, t.pos); d < minDist {
				minDist = d
				targetID = t.id
				targetPos = t.pos
			}
		}

		stopDistance := w.tuning.PlayerStopDistance
		if targetID == escortTargetID {
			stopDistance = w.tuning.EscortStopDistance
		}

		if minDist <= stopDistance {
			if now.Before(enemy.NextAttackTime) {
				continue
			}
			enemy.NextAttackTime = now.Add(w.tuning.AttackCooldown())
			w.sink.Broadcast(protocol.EnemyAnim(enemy.ID, "Attack"))
			hits = append(hits, pendingHit{targetID: targetID, enemyID: enemy.ID})
		} else {
			enemy.Position = geometry.MoveTowards(enemy.Position, targetPos, w.tuning.EnemySpeed*w.tuning.TickSeconds())
			w.sink.Broadcast(protocol.EnemyUpdate(enemy.ID, enemy.Position))
		}
	}
	w.emu.Unlock()

	for _, hit := range hits {
		if hit.targetID == escortTargetID {
			w.damageEscort(w.tuning.EnemyDamage)
		} else {
			w.mu.Lock()
			w.damagePlayerLocked(hit.targetID, w.tuning.EnemyDamage, now)
			w.mu.Unlock()
		}
	}
}

// damageEscort applies enemy damage to the escort and ends the game in
// defeat on the lethal threshold.
func (w *World) damageEscort(amount int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StatePlaying {
		return
	}

	w.escortHealth -= amount
	if w.escortHealth < 0 {
		w.escortHealth = 0
	}
	w.sink.Broadcast(protocol.MerchantHealth(w.escortHealth, w.tuning.EscortMaxHealth))

	if w.escortHealth <= 0 {
		w.state = StateDefeat
		w.sink.Broadcast(protocol.GameEnd(false))
		logger.Info("Game over", "result", "defeat", "reason", "escort killed")
	}
}

// checkEndConditions transitions to victory when the escort finishes the
// route, or to defeat when every connected player is simultaneously at zero
// health. Either transition is terminal for the current instance.
func (w *World) checkEndConditions() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StatePlaying {
		return
	}

	arrived := w.waypointIndex >= len(w.waypoints)
	if !arrived && len(w.waypoints) > 0 {
		arrived = geometry.Distance(w.escortPosition, w.waypoints[len(w.waypoints)-1]) < w.tuning.DestinationRadius
	}
	if arrived {
		w.state = StateVictory
		w.sink.Broadcast(protocol.GameEnd(true))
		logger.Info("Game over", "result", "victory")
		return
	}

	if len(w.players) == 0 {
		return
	}
	for _, p := range w.players {
		if p.Health > 0 {
			return
		}
	}
	w.state = StateDefeat
	w.sink.Broadcast(protocol.GameEnd(false))
	logger.Info("Game over", "result", "defeat", "reason", "all players down")
}
