// Package protocol defines the newline-delimited text wire format shared by
// the TCP and WebSocket transports. Fields are ':' separated between command
// and payload and ',' separated within the payload. Floating point fields use
// '.' decimals regardless of locale.
package protocol

import (
	"fmt"
	"strconv"

	"github.com/lawnchairsociety/tradeguard/server/internal/geometry"
)

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func vec(v geometry.Vector3) string {
	return f(v.X) + "," + f(v.Y) + "," + f(v.Z)
}

// YourID tells a client its assigned player id.
func YourID(id string) string {
	return "YOUR_ID:" + id
}

// MapSeed tells a client the seed the current world instance was built from,
// so it can reproduce the path and terrain without an explicit waypoint dump.
func MapSeed(seed int64) string {
	return "MAP_SEED:" + strconv.FormatInt(seed, 10)
}

// PlayerSpawn announces a player entering the world.
func PlayerSpawn(id, username string, pos, rot geometry.Vector3) string {
	return "PLAYER_SPAWN:" + id + "," + username + "," + vec(pos) + "," + vec(rot)
}

// PlayerUpdate carries a player's new position and rotation.
func PlayerUpdate(id string, pos, rot geometry.Vector3) string {
	return "PLAYER_UPDATE:" + id + "," + vec(pos) + "," + vec(rot)
}

// PlayerStatus carries a player's current health and shield.
func PlayerStatus(id string, health, shield int) string {
	return fmt.Sprintf("PLAYER_STATUS:%s,%d,%d", id, health, shield)
}

// PlayerDespawn announces a player leaving the world.
func PlayerDespawn(id string) string {
	return "PLAYER_DESPAWN:" + id
}

// PlayerAnim relays a player animation trigger.
func PlayerAnim(id, trigger string) string {
	return "PLAYER_ANIM:" + id + "," + trigger
}

// Points tells a client its current point total.
func Points(points int) string {
	return "POINTS:" + strconv.Itoa(points)
}

// Inventory tells a client its current potion counts.
func Inventory(healthPotions, freezePotions int) string {
	return fmt.Sprintf("INVENTORY:%d,%d", healthPotions, freezePotions)
}

// ShopState tells a client its purchased upgrade levels and potion counts.
func ShopState(strengthLevel, shieldUpgrades, healthPotions, freezePotions int) string {
	return fmt.Sprintf("SHOP_STATE:%d,%d,%d,%d", strengthLevel, shieldUpgrades, healthPotions, freezePotions)
}

// MerchantPos carries the escort's current position.
func MerchantPos(pos geometry.Vector3) string {
	return "MERCHANT_POS:" + vec(pos)
}

// DestinationPos carries the final waypoint of the escort route.
func DestinationPos(pos geometry.Vector3) string {
	return "DESTINATION_POS:" + vec(pos)
}

// MerchantHealth carries the escort's current and maximum health.
func MerchantHealth(health, maxHealth int) string {
	return fmt.Sprintf("MERCHANT_HEALTH:%d,%d", health, maxHealth)
}

// EnemySpawn announces an enemy entering live state.
func EnemySpawn(id int, pos geometry.Vector3, health, enemyType int) string {
	return fmt.Sprintf("ENEMY_SPAWN:%d,%s,%d,%d", id, vec(pos), health, enemyType)
}

// EnemyHealthUpdate carries an enemy's health after taking damage.
func EnemyHealthUpdate(id, health int) string {
	return fmt.Sprintf("ENEMY_HEALTH_UPDATE:%d,%d", id, health)
}

// EnemyUpdate carries an enemy's new position.
func EnemyUpdate(id int, pos geometry.Vector3) string {
	return fmt.Sprintf("ENEMY_UPDATE:%d,%s", id, vec(pos))
}

// EnemyDespawn announces an enemy's removal from live state.
func EnemyDespawn(id int) string {
	return "ENEMY_DESPAWN:" + strconv.Itoa(id)
}

// EnemyAnim relays an enemy animation trigger.
func EnemyAnim(id int, trigger string) string {
	return fmt.Sprintf("ENEMY_ANIM:%d,%s", id, trigger)
}

// EnemyFreeze announces an enemy freezing (1) or unfreezing (0).
func EnemyFreeze(id int, frozen bool) string {
	flag := "0"
	if frozen {
		flag = "1"
	}
	return fmt.Sprintf("ENEMY_FREEZE:%d,%s", id, flag)
}

// WaveStatus carries triggered wave count against the scheduled total.
func WaveStatus(triggered, total int) string {
	return fmt.Sprintf("WAVE_STATUS:%d,%d", triggered, total)
}

// GameStart signals the transition from the lobby to the playing state.
func GameStart() string {
	return "GAME_START"
}

// GameEnd signals a terminal game state.
func GameEnd(victory bool) string {
	if victory {
		return "GAME_END:VICTORY"
	}
	return "GAME_END:DEFEAT"
}

// Chat relays a chat line from the given player.
func Chat(id, text string) string {
	return "CHAT:" + id + ":" + text
}
