package actions

import (
	"fmt"

	"ability-server/internal/engine/handlers"
	"ability-server/pkg/api"
)

// HandleSave сохраняет мир в слот.
func HandleSave(ctx handlers.Context, p api.SavePayload) (handlers.Result, error) {
	if err := ctx.World.Save(ctx.Ctx, p.Slot); err != nil {
		return handlers.Result{Msg: fmt.Sprintf("Сохранение не удалось: %v", err), MsgType: "ERROR"}, nil
	}
	return handlers.Result{Msg: "Игра сохранена.", MsgType: "INFO"}, nil
}
