package actions

import (
	"fmt"

	"ability-server/internal/action"
	"ability-server/internal/domain"
	"ability-server/internal/engine/handlers"
	"ability-server/pkg/api"
)

// HandleStartAction - пересланный с клиента запрос на запуск действия.
func HandleStartAction(ctx handlers.Context, p api.ActionPayload) (handlers.Result, error) {
	comp, res, ok := resolveComponent(ctx, p)
	if !ok {
		return res, nil
	}

	// 1. Мертвые не действуют. Клиент мог стартовать оптимистично - вернем его к истине.
	if !ctx.Actor.IsAlive() {
		comp.ServerStopAction(ctx.Actor.ID(), p.Name)
		return handlers.Result{Msg: "Мертвые не сражаются.", MsgType: "REJECT"}, nil
	}

	// 2. Неизвестное имя
	if comp.GetActionByName(p.Name) == nil {
		return handlers.Result{Msg: fmt.Sprintf("Действие %s недоступно.", p.Name), MsgType: "ERROR"}, nil
	}

	// 3. Запуск. Отказ уже залогирован наблюдателем компонента.
	comp.ServerStartAction(ctx.Actor.ID(), p.Name)
	return handlers.EmptyResult(), nil
}

// HandleStopAction - пересланный запрос на остановку.
func HandleStopAction(ctx handlers.Context, p api.ActionPayload) (handlers.Result, error) {
	comp, res, ok := resolveComponent(ctx, p)
	if !ok {
		return res, nil
	}
	comp.ServerStopAction(ctx.Actor.ID(), p.Name)
	return handlers.EmptyResult(), nil
}

// resolveComponent находит компонент владельца. Игрок управляет только собой.
func resolveComponent(ctx handlers.Context, p api.ActionPayload) (*action.Component, handlers.Result, bool) {
	ownerID, err := domain.ParseActorID(p.Owner)
	if err != nil {
		return nil, handlers.Result{Msg: "Неверный владелец действия.", MsgType: "ERROR"}, false
	}
	if ownerID.IsValid() && ownerID != ctx.Actor.ID() {
		return nil, handlers.Result{Msg: "Можно управлять только своим персонажем.", MsgType: "ERROR"}, false
	}

	comp := ctx.Actor.Actions()
	if comp == nil {
		return nil, handlers.Result{Msg: "У вас нет действий.", MsgType: "ERROR"}, false
	}
	return comp, handlers.Result{}, true
}
