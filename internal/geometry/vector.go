package geometry

import "math"

// Vector3 is a point or direction in world space.
type Vector3 struct {
	X float64
	Y float64
	Z float64
}

// Zero is the origin vector.
var Zero = Vector3{}

// Add returns the component-wise sum of v and o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns the component-wise difference of v and o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale returns v multiplied by the scalar d.
func (v Vector3) Scale(d float64) Vector3 {
	return Vector3{X: v.X * d, Y: v.Y * d, Z: v.Z * d}
}

// Magnitude returns the length of v.
func (v Vector3) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns v scaled to unit length.
// Callers must guard against the zero vector with a distance check first.
func (v Vector3) Normalize() Vector3 {
	return v.Scale(1 / v.Magnitude())
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vector3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// MoveTowards steps current toward target by at most maxDelta.
// It returns target exactly once the remaining distance fits in maxDelta,
// so repeated calls converge without overshoot.
func MoveTowards(current, target Vector3, maxDelta float64) Vector3 {
	dist := Distance(current, target)
	if dist <= maxDelta || dist == 0 {
		return target
	}
	return current.Add(target.Sub(current).Normalize().Scale(maxDelta))
}
