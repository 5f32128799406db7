package admin

import (
	"fmt"

	"ability-server/internal/engine/handlers"
)

// HandleKillAll убивает всех ботов. Награды начисляются вызвавшему.
func HandleKillAll(ctx handlers.Context) (handlers.Result, error) {
	killed := ctx.World.KillAll(ctx.Actor.ID())
	return handlers.Result{Msg: fmt.Sprintf("⚡ Убито ботов: %d", killed), MsgType: "INFO"}, nil
}
