package domain

import "math"

// Vec - позиция в мире (метры).
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo возвращает расстояние до другой точки
func (v Vec) DistanceTo(other Vec) float64 {
	return math.Sqrt(v.DistanceSquaredTo(other))
}

// DistanceSquaredTo возвращает квадрат расстояния для сравнения без корней
func (v Vec) DistanceSquaredTo(other Vec) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	return dx*dx + dy*dy
}

// StepTowards сдвигает точку к цели не больше чем на maxStep.
func (v Vec) StepTowards(target Vec, maxStep float64) Vec {
	dist := v.DistanceTo(target)
	if dist <= maxStep || dist == 0 {
		return target
	}
	k := maxStep / dist
	return Vec{X: v.X + (target.X-v.X)*k, Y: v.Y + (target.Y-v.Y)*k}
}

// Clamp ограничивает точку квадратом [0, size].
func (v Vec) Clamp(size float64) Vec {
	return Vec{X: math.Max(0, math.Min(size, v.X)), Y: math.Max(0, math.Min(size, v.Y))}
}
