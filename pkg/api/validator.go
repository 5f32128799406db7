package api

import (
	"errors"
	"math"
	"strings"
)

// Validator - интерфейс, который могут реализовать DTO
type Validator interface {
	Validate() error
}

func (p LoginPayload) Validate() error {
	if len(p.Name) > 32 {
		return errors.New("name too long")
	}
	return nil
}

func (p ActionPayload) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("action name is required")
	}
	return nil
}

func (p EntityPayload) Validate() error {
	if p.TargetID == "" {
		return errors.New("targetId is required")
	}
	return nil
}

func (p PositionPayload) Validate() error {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return errors.New("position must be finite")
	}
	return nil
}
