package game

import (
	"testing"
	"time"

	"github.com/lawnchairsociety/tradeguard/server/internal/geometry"
)

// newPlayingWorld joins one player and starts the game.
func newPlayingWorld(t *testing.T) (*World, *recordingSink) {
	t.Helper()
	w, sink := newTestWorld()
	w.Join("Alice", &recordingConn{})
	w.SetReady("Player1")
	if w.State() != StatePlaying {
		t.Fatal("game should be playing")
	}
	sink.clear()
	return w, sink
}

func TestStep_NoOpOutsidePlayingState(t *testing.T) {
	w, sink := newTestWorld()
	w.Join("Alice", &recordingConn{})
	sink.clear()

	w.Step(time.Now())

	if got := sink.all(); len(got) != 0 {
		t.Errorf("step in lobby produced %v, want nothing", got)
	}
}

func TestStep_EscortAdvancesAndBroadcasts(t *testing.T) {
	w, sink := newPlayingWorld(t)

	// The first tick consumes the start waypoint the escort already stands on
	w.Step(time.Now())

	w.mu.Lock()
	start := w.escortPosition
	w.mu.Unlock()

	w.Step(time.Now())

	w.mu.Lock()
	after := w.escortPosition
	w.mu.Unlock()

	moved := geometry.Distance(start, after)
	step := w.tuning.EscortSpeed * w.tuning.TickSeconds()
	if moved < step*0.99 || moved > step*1.01 {
		t.Errorf("escort moved %.4f in one tick, want about %.4f", moved, step)
	}
	if sink.count("MERCHANT_POS:") != 2 {
		t.Errorf("MERCHANT_POS sent %d times over two ticks, want 2", sink.count("MERCHANT_POS:"))
	}
}

func TestStep_EscortBlockedByNearbyEnemy(t *testing.T) {
	w, sink := newPlayingWorld(t)

	w.mu.Lock()
	pos := w.escortPosition
	w.mu.Unlock()

	// Inside the block radius, outside attack range of anything
	injectEnemy(w, &EnemyState{
		ID:       100,
		Health:   100,
		Position: geometry.Vector3{X: pos.X + 6, Y: pos.Y, Z: pos.Z},
	})

	w.Step(time.Now())

	w.mu.Lock()
	after := w.escortPosition
	w.mu.Unlock()

	if after != pos {
		t.Errorf("escort moved from %v to %v while blocked", pos, after)
	}
	if sink.count("MERCHANT_POS:") != 0 {
		t.Error("blocked escort still broadcast MERCHANT_POS")
	}
}

func TestStep_FrozenEnemyDoesNotBlockOrAct(t *testing.T) {
	w, sink := newPlayingWorld(t)

	w.mu.Lock()
	pos := w.escortPosition
	w.mu.Unlock()

	injectEnemy(w, &EnemyState{
		ID:           100,
		Health:       100,
		Position:     geometry.Vector3{X: pos.X + 1, Y: pos.Y, Z: pos.Z},
		IsFrozen:     true,
		UnfreezeTime: time.Now().Add(time.Hour),
	})

	w.Step(time.Now())

	if sink.count("MERCHANT_POS:") != 1 {
		t.Error("frozen enemy blocked the escort")
	}
	if sink.count("ENEMY_UPDATE:") != 0 || sink.count("ENEMY_ANIM:") != 0 {
		t.Errorf("frozen enemy acted: %v", sink.all())
	}
}

func TestStep_FreezeExpiryBroadcastsThaw(t *testing.T) {
	w, sink := newPlayingWorld(t)

	now := time.Now()
	injectEnemy(w, &EnemyState{
		ID:           100,
		Health:       100,
		Position:     geometry.Vector3{X: 200, Z: 200}, // Far from everything
		IsFrozen:     true,
		UnfreezeTime: now.Add(-time.Second),
	})

	w.Step(now)

	if sink.count("ENEMY_FREEZE:100,0") != 1 {
		t.Errorf("thaw broadcast sent %d times, want 1", sink.count("ENEMY_FREEZE:100,0"))
	}

	// Thaw is edge-triggered, not repeated
	sink.clear()
	w.Step(now.Add(w.tuning.TickPeriod()))
	if sink.count("ENEMY_FREEZE:") != 0 {
		t.Error("thaw broadcast repeated after the edge")
	}
}

func TestStep_EnemyAttacksEscortWithCooldown(t *testing.T) {
	w, sink := newPlayingWorld(t)

	w.mu.Lock()
	pos := w.escortPosition
	w.mu.Unlock()

	injectEnemy(w, &EnemyState{
		ID:       100,
		Health:   100,
		Position: geometry.Vector3{X: pos.X + 1, Y: pos.Y, Z: pos.Z},
	})

	now := time.Now()
	w.Step(now)
	w.Step(now.Add(w.tuning.TickPeriod()))

	// One attack, then the cooldown holds
	if got := sink.count("ENEMY_ANIM:100,Attack"); got != 1 {
		t.Errorf("attack animation sent %d times within cooldown, want 1", got)
	}
	want := "MERCHANT_HEALTH:495,500"
	if got := sink.last("MERCHANT_HEALTH:"); got != want {
		t.Errorf("escort health after one hit: %q, want %q", got, want)
	}

	// After the cooldown the enemy swings again
	sink.clear()
	w.Step(now.Add(w.tuning.AttackCooldown() + time.Millisecond))
	if got := sink.count("ENEMY_ANIM:100,Attack"); got != 1 {
		t.Errorf("attack animation after cooldown sent %d times, want 1", got)
	}
}

func TestStep_EnemyPrefersNearestTarget(t *testing.T) {
	w, sink := newPlayingWorld(t)

	w.mu.Lock()
	escortPos := w.escortPosition
	playerPos := geometry.Vector3{X: escortPos.X + 40, Y: escortPos.Y, Z: escortPos.Z}
	w.players["Player1"].Position = playerPos
	w.mu.Unlock()

	// Adjacent to the player, far from the escort
	injectEnemy(w, &EnemyState{
		ID:       100,
		Health:   100,
		Position: geometry.Vector3{X: playerPos.X + 1, Y: playerPos.Y, Z: playerPos.Z},
	})

	w.Step(time.Now())

	// The hit lands on the player: base shield 20 minus enemy damage 5
	want := "PLAYER_STATUS:Player1,100,15"
	if got := sink.last("PLAYER_STATUS:Player1,"); got != want {
		t.Errorf("player status after enemy hit: %q, want %q", got, want)
	}
	if sink.count("MERCHANT_HEALTH:") != 0 {
		t.Error("enemy hit the escort instead of the nearer player")
	}
}

func TestStep_EnemyIgnoresDownedPlayers(t *testing.T) {
	w, sink := newPlayingWorld(t)

	w.mu.Lock()
	escortPos := w.escortPosition
	p := w.players["Player1"]
	p.Health = 0
	p.Shield = 0
	p.Position = geometry.Vector3{X: escortPos.X + 40, Y: escortPos.Y, Z: escortPos.Z}
	playerPos := p.Position
	w.mu.Unlock()

	injectEnemy(w, &EnemyState{
		ID:       100,
		Health:   100,
		Position: geometry.Vector3{X: playerPos.X + 1, Y: playerPos.Y, Z: playerPos.Z},
	})
	sink.clear()

	w.Step(time.Now())

	// With the only player down, the tick first sees every player at zero
	// health and ends the game in defeat before the enemy pass runs again.
	if w.State() != StateDefeat {
		t.Errorf("state = %v with all players down, want defeat", w.State())
	}
	if sink.count("GAME_END:DEFEAT") != 1 {
		t.Errorf("GAME_END:DEFEAT sent %d times, want 1", sink.count("GAME_END:DEFEAT"))
	}
	// The downed player draws no attack
	if sink.count("ENEMY_ANIM:") != 0 {
		t.Errorf("enemy targeted a downed player: %v", sink.all())
	}
}

func TestStep_WaveTriggersOnce(t *testing.T) {
	w, sink := newPlayingWorld(t)

	w.mu.Lock()
	pos := w.escortPosition
	w.mu.Unlock()

	// Replace the generated schedule with one wave right on the escort
	w.emu.Lock()
	w.waves = []*EnemyWave{{
		TriggerPosition: pos,
		Enemies: []*EnemyState{
			{ID: 100, Health: 100, Position: geometry.Vector3{X: 200, Z: 200}},
			{ID: 101, Health: 100, Position: geometry.Vector3{X: 210, Z: 210}},
		},
	}}
	w.emu.Unlock()

	w.Step(time.Now())

	if sink.count("ENEMY_SPAWN:100,") != 1 || sink.count("ENEMY_SPAWN:101,") != 1 {
		t.Errorf("wave spawn broadcasts wrong: %v", sink.all())
	}
	if sink.count("WAVE_STATUS:1,1") != 1 {
		t.Errorf("WAVE_STATUS:1,1 sent %d times, want 1", sink.count("WAVE_STATUS:1,1"))
	}

	// The latch holds on the next tick
	sink.clear()
	w.Step(time.Now())
	if sink.count("ENEMY_SPAWN:") != 0 {
		t.Error("triggered wave spawned again")
	}
}

func TestStep_ShieldRegenAfterQuietPeriod(t *testing.T) {
	w, sink := newPlayingWorld(t)

	now := time.Now()
	w.mu.Lock()
	p := w.players["Player1"]
	p.Shield = 10
	p.LastDamageTime = now
	w.mu.Unlock()
	sink.clear()

	// Within the regen delay: no regen
	w.Step(now.Add(time.Second))
	if sink.count("PLAYER_STATUS:Player1,") != 0 {
		t.Error("shield regenerated inside the regen delay")
	}

	// Past the delay: +1 per tick
	w.Step(now.Add(w.tuning.ShieldRegenDelay() + time.Second))
	if got := sink.last("PLAYER_STATUS:Player1,"); got != "PLAYER_STATUS:Player1,100,11" {
		t.Errorf("status after regen tick: %q, want PLAYER_STATUS:Player1,100,11", got)
	}
}

func TestStep_ShieldRegenStopsAtMax(t *testing.T) {
	w, sink := newPlayingWorld(t)

	// Shield already full; a long-quiet player must not regen past max
	w.Step(time.Now().Add(time.Hour))

	if sink.count("PLAYER_STATUS:") != 0 {
		t.Errorf("full shield still broadcast status: %v", sink.all())
	}
}

func TestStep_VictoryOnArrival(t *testing.T) {
	w, sink := newPlayingWorld(t)

	w.mu.Lock()
	w.waypointIndex = len(w.waypoints)
	w.mu.Unlock()

	w.Step(time.Now())

	if w.State() != StateVictory {
		t.Errorf("state = %v at route end, want victory", w.State())
	}
	if sink.count("GAME_END:VICTORY") != 1 {
		t.Errorf("GAME_END:VICTORY sent %d times, want 1", sink.count("GAME_END:VICTORY"))
	}

	// Victory is terminal: later ticks emit nothing
	sink.clear()
	w.Step(time.Now())
	if got := sink.all(); len(got) != 0 {
		t.Errorf("tick after victory produced %v, want nothing", got)
	}
}

func TestStep_EscortDeathEndsGame(t *testing.T) {
	w, sink := newPlayingWorld(t)

	w.mu.Lock()
	w.escortHealth = w.tuning.EnemyDamage // Next hit is lethal
	pos := w.escortPosition
	w.mu.Unlock()

	injectEnemy(w, &EnemyState{
		ID:       100,
		Health:   100,
		Position: geometry.Vector3{X: pos.X + 1, Y: pos.Y, Z: pos.Z},
	})
	sink.clear()

	w.Step(time.Now())

	if w.State() != StateDefeat {
		t.Errorf("state = %v after escort death, want defeat", w.State())
	}
	if got := sink.last("MERCHANT_HEALTH:"); got != "MERCHANT_HEALTH:0,500" {
		t.Errorf("final escort health: %q, want MERCHANT_HEALTH:0,500", got)
	}
	if sink.count("GAME_END:DEFEAT") != 1 {
		t.Errorf("GAME_END:DEFEAT sent %d times, want 1", sink.count("GAME_END:DEFEAT"))
	}
}
