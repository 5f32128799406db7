package engine

import (
	"errors"
	"math/rand"

	"ability-server/internal/domain"
)

// ErrNoSpawnLocation - селектор не нашел подходящих точек.
var ErrNoSpawnLocation = errors.New("no spawn location")

// SpawnSelector - черный ящик выбора точек появления.
// used - уже занятые точки, до которых нужно держать minDistance.
type SpawnSelector interface {
	Candidates(count int, minDistance float64, used []domain.Vec) ([]domain.Vec, error)
}

// UniformSelector выбирает случайные точки в квадрате мира.
type UniformSelector struct {
	rng      *rand.Rand
	size     float64
	attempts int
}

func NewUniformSelector(rng *rand.Rand, size float64) *UniformSelector {
	return &UniformSelector{rng: rng, size: size, attempts: 50}
}

func (s *UniformSelector) Candidates(count int, minDistance float64, used []domain.Vec) ([]domain.Vec, error) {
	out := make([]domain.Vec, 0, count)
	taken := append([]domain.Vec(nil), used...)
	minSq := minDistance * minDistance

	for len(out) < count {
		found := false
		for try := 0; try < s.attempts; try++ {
			p := domain.Vec{X: s.rng.Float64() * s.size, Y: s.rng.Float64() * s.size}
			if farFromAll(p, taken, minSq) {
				out = append(out, p)
				taken = append(taken, p)
				found = true
				break
			}
		}
		if !found {
			if len(out) == 0 {
				return nil, ErrNoSpawnLocation
			}
			break
		}
	}
	return out, nil
}

func farFromAll(p domain.Vec, others []domain.Vec, minSq float64) bool {
	for _, o := range others {
		if p.DistanceSquaredTo(o) < minSq {
			return false
		}
	}
	return true
}
