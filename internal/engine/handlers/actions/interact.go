package actions

import (
	"ability-server/internal/domain"
	"ability-server/internal/engine/handlers"
	"ability-server/pkg/api"
)

func HandleInteract(ctx handlers.Context, p api.EntityPayload) (handlers.Result, error) {
	// 1. Поиск цели взаимодействия
	targetID, err := domain.ParseActorID(p.TargetID)
	if err != nil {
		return handlers.Result{Msg: "Вы не видите, с чем взаимодействовать.", MsgType: "ERROR"}, nil
	}

	// 2. Взаимодействие. Дистанцию и доступность проверяет мир.
	msg, err := ctx.World.Interact(ctx.Actor.ID(), targetID)
	if err != nil {
		return handlers.Result{Msg: "Ничего не происходит: " + err.Error(), MsgType: "ERROR"}, nil
	}

	return handlers.Result{Msg: msg, MsgType: "INFO"}, nil
}
