package core

import "math"

// Vec2 is a position or velocity vector in the simulation plane.
// Positions are kilometres from the body centre; velocities are km/s.
type Vec2 struct {
	X, Y float64
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Scale returns v multiplied by a scalar.
func (v Vec2) Scale(factor float64) Vec2 {
	return Vec2{X: v.X * factor, Y: v.Y * factor}
}

// Norm returns the Euclidean norm of the vector.
func (v Vec2) Norm() float64 {
	return math.Hypot(v.X, v.Y)
}

// Dot returns the dot product of two vectors.
func (v Vec2) Dot(other Vec2) float64 {
	return v.X*other.X + v.Y*other.Y
}

// Cross returns the scalar (z) component of the 2D cross product.
func (v Vec2) Cross(other Vec2) float64 {
	return v.X*other.Y - v.Y*other.X
}

// Unit returns a unit vector in the same direction, or the zero vector
// when v has no direction.
func (v Vec2) Unit() Vec2 {
	n := v.Norm()
	if n == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / n, Y: v.Y / n}
}

// Perp returns v rotated 90° counter-clockwise.
func (v Vec2) Perp() Vec2 {
	return Vec2{X: -v.Y, Y: v.X}
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec2) DistanceTo(other Vec2) float64 {
	return v.Sub(other).Norm()
}
