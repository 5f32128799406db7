package actions

import (
	"ability-server/internal/domain"
	"ability-server/internal/engine/handlers"
	"ability-server/pkg/api"
)

// HandleSetTarget запоминает текущую цель игрока (ее берут атаки при замахе).
func HandleSetTarget(ctx handlers.Context, p api.EntityPayload) (handlers.Result, error) {
	targetID, err := domain.ParseActorID(p.TargetID)
	if err != nil {
		return handlers.Result{Msg: "Неверная цель.", MsgType: "ERROR"}, nil
	}
	// Пустая цель - сброс
	if !targetID.IsValid() {
		ctx.Actor.SetTarget(domain.NoActor)
		return handlers.EmptyResult(), nil
	}
	if targetID == ctx.Actor.ID() {
		return handlers.Result{Msg: "Нельзя выбрать целью себя.", MsgType: "ERROR"}, nil
	}
	if _, ok := ctx.World.Lookup(targetID); !ok {
		return handlers.Result{Msg: "Цель не найдена.", MsgType: "ERROR"}, nil
	}

	ctx.Actor.SetTarget(targetID)
	return handlers.EmptyResult(), nil
}
