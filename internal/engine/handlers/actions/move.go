package actions

import (
	"ability-server/internal/domain"
	"ability-server/internal/engine/handlers"
	"ability-server/pkg/api"
)

// HandleMove смещает актора к точке, не дальше MoveStep за команду.
func HandleMove(ctx handlers.Context, p api.PositionPayload) (handlers.Result, error) {
	if !ctx.Actor.IsAlive() {
		return handlers.EmptyResult(), nil
	}

	target := domain.Vec{X: p.X, Y: p.Y}.Clamp(ctx.World.Size())
	next := ctx.Actor.Position().StepTowards(target, ctx.World.MoveStep())
	ctx.Actor.SetPosition(next)

	return handlers.EmptyResult(), nil
}
