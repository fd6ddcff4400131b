package game

import (
	"math"
	"math/rand"

	"github.com/lawnchairsociety/tradeguard/server/internal/geometry"
)

// Route is the escort path plus the ambush schedule for one world instance.
// Both are derived deterministically from the seed so a client holding the
// seed can render matching terrain without an explicit waypoint dump.
type Route struct {
	Waypoints   []geometry.Vector3
	Destination geometry.Vector3
	Waves       []*EnemyWave
}

const (
	routeStartX      = 3.0
	routeY           = 1.0
	routeMaxZ        = 30.0
	routeJitterZ     = 8.0
	waveOffsetRange  = 10.0
	waveMinEnemies   = 2
	waveMaxEnemies   = 4
	enemyTypeCount   = 3
	firstEnemyID     = 100
)

// GenerateRoute builds the escort route and the wave schedule from a seed.
//
// Interior waypoints are interpolated along the forward axis and displaced
// laterally by a sine sweep whose amplitude and initial direction come from
// the seed, plus bounded jitter. Each interior waypoint then has a chance of
// carrying a wave of enemies scattered around it. Enemy ids are allocated
// from a counter starting at 100, monotonic across the whole schedule.
func GenerateRoute(seed int64, tuning Tuning) *Route {
	rng := rand.New(rand.NewSource(seed))

	segments := tuning.PathSegments
	route := &Route{
		Waypoints:   make([]geometry.Vector3, 0, segments+1),
		Destination: geometry.Vector3{X: tuning.PathFinalX, Y: routeY},
	}

	start := geometry.Vector3{X: routeStartX, Y: routeY}
	route.Waypoints = append(route.Waypoints, start)

	amplitude := 12.0 + rng.Float64()*18.0
	direction := 1.0
	if rng.Intn(2) == 0 {
		direction = -1.0
	}

	stepX := (tuning.PathFinalX - tuning.PathStartX) / float64(segments)
	for i := 1; i < segments; i++ {
		x := tuning.PathStartX + stepX*float64(i)

		sweep := direction * amplitude * math.Sin(math.Pi*float64(i)/float64(segments))
		jitter := (rng.Float64()*2 - 1) * routeJitterZ
		z := clamp(sweep+jitter, -routeMaxZ, routeMaxZ)

		route.Waypoints = append(route.Waypoints, geometry.Vector3{X: x, Y: routeY, Z: z})
	}

	route.Waypoints = append(route.Waypoints, route.Destination)

	route.Waves = scheduleWaves(rng, route.Waypoints, tuning)
	return route
}

// scheduleWaves rolls an ambush for each interior waypoint. Waves hold
// pre-built enemies that stay dormant until the escort triggers them.
func scheduleWaves(rng *rand.Rand, waypoints []geometry.Vector3, tuning Tuning) []*EnemyWave {
	var waves []*EnemyWave
	nextEnemyID := firstEnemyID

	for i := 1; i < len(waypoints)-1; i++ {
		if rng.Float64() >= tuning.WaveChance {
			continue
		}

		waypoint := waypoints[i]
		wave := &EnemyWave{TriggerPosition: waypoint}

		count := waveMinEnemies + rng.Intn(waveMaxEnemies-waveMinEnemies+1)
		for j := 0; j < count; j++ {
			offsetX := (rng.Float64()*2 - 1) * waveOffsetRange
			offsetZ := (rng.Float64()*2 - 1) * waveOffsetRange

			wave.Enemies = append(wave.Enemies, &EnemyState{
				ID:       nextEnemyID,
				Position: geometry.Vector3{X: waypoint.X + offsetX, Z: waypoint.Z + offsetZ},
				Health:   tuning.EnemyHealth,
				Type:     rng.Intn(enemyTypeCount),
			})
			nextEnemyID++
		}

		waves = append(waves, wave)
	}

	return waves
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
