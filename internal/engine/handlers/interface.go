package handlers

import (
	"context"
	"encoding/json"

	"ability-server/internal/action"
	"ability-server/internal/domain"
)

// Actor - то, что хендлеру нужно от актора, отправившего команду.
type Actor interface {
	ID() domain.ActorID
	Actions() *action.Component
	Position() domain.Vec
	SetPosition(p domain.Vec)
	SetTarget(id domain.ActorID)
	IsAlive() bool
}

// World описывает мир, в котором выполняется команда.
// engine.World неявно реализует этот интерфейс.
type World interface {
	// Lookup находит актора по ID. ok=false, если его нет.
	Lookup(id domain.ActorID) (Actor, bool)
	Interact(instigator, target domain.ActorID) (string, error)
	KillAll(instigator domain.ActorID) int
	Save(ctx context.Context, slot string) error
	Size() float64
	MoveStep() float64
}

// Context передает хендлеру состояние мира.
// Мы передаем ссылки, чтобы хендлер мог менять состояние (мутировать данные).
type Context struct {
	Ctx   context.Context
	World World
	Actor Actor // Тот, кто выполняет команду
}

// Result - возвращает результат выполнения команды.
// Хендлер НЕ пишет в игровой лог напрямую, он возвращает данные.
type Result struct {
	Msg     string // Текст лога
	MsgType string // Тип лога (INFO, COMBAT, REJECT, ERROR)
}

// HandlerFunc - это контракт для любой команды (START_ACTION, MOVE, etc).
type HandlerFunc func(ctx Context, payload json.RawMessage) (Result, error)

// EmptyResult - вспомогательная функция для пустого успешного ответа
func EmptyResult() Result {
	return Result{}
}
