package api

import (
	"encoding/json"
)

// --- СЕРВЕР -> КЛИЕНТ ---

// Типы сообщений сервера
const (
	// MsgWelcome - полный снимок мира для нового подписчика.
	MsgWelcome = "WELCOME"
	// MsgFrame - изменения за один тик симуляции.
	MsgFrame = "FRAME"
	// MsgError - ответ на невалидную команду.
	MsgError = "ERROR"
)

// ServerMessage это корневой объект, который сервер отправляет клиенту.
// WELCOME содержит весь мир, FRAME - только то, что изменилось за тик.
// Клиент применяет части в порядке полей: акторы, действия, атрибуты, удаления.
type ServerMessage struct {
	// Type тип сообщения (WELCOME, FRAME, ERROR).
	Type string `json:"type"`

	// ServerTime авторитетное мировое время в секундах. Клиент подтягивает к нему свои часы.
	ServerTime float64 `json:"serverTime"`

	// YourID ID актора, которым управляет этот клиент (только WELCOME).
	YourID string `json:"yourId,omitempty"`

	// Actors новые или изменившиеся акторы (upsert по ID).
	Actors []ActorView `json:"actors,omitempty"`

	// Actions дельты списков действий, по одной на владельца.
	Actions []ActionSync `json:"actions,omitempty"`

	// Attributes текущие значения ресурсов изменившихся акторов.
	Attributes []AttributeView `json:"attributes,omitempty"`

	// Despawned ID удаленных из мира акторов.
	Despawned []string `json:"despawned,omitempty"`

	// Logs новые записи игрового лога.
	Logs []LogEntry `json:"logs,omitempty"`

	// Error текст ошибки (только ERROR).
	Error string `json:"error,omitempty"`
}

// IsEmpty - в кадре нет изменений (кроме времени).
func (m ServerMessage) IsEmpty() bool {
	return len(m.Actors) == 0 && len(m.Actions) == 0 && len(m.Attributes) == 0 &&
		len(m.Despawned) == 0 && len(m.Logs) == 0
}

// ActorView это DTO для актора.
type ActorView struct {
	ID   string `json:"id"`
	Kind string `json:"kind"` // PLAYER, BOT, POWERUP, CHEST
	Name string `json:"name"`

	// Class имя шаблона (монстр, пауэрап). Для игроков пусто.
	Class string `json:"class,omitempty"`

	Pos struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"pos"`

	// Active для пауэрапа - доступен ли, для сундука - открыта ли крышка.
	Active bool `json:"active"`

	// Credits кредиты игрока (PlayerState).
	Credits int `json:"credits,omitempty"`

	// Target текущая цель (игроки и боты).
	Target string `json:"target,omitempty"`
}

// AttributeView это DTO для ресурсов актора.
type AttributeView struct {
	ActorID   string  `json:"actorId"`
	Health    float64 `json:"health"`
	HealthMax float64 `json:"healthMax"`
	Rage      float64 `json:"rage"`
	RageMax   float64 `json:"rageMax"`
}

// ActionSync - изменения списка действий одного владельца.
// Added всегда приходит раньше первой записи States для этого NetID.
// Full (только WELCOME) - Added перечисляет все действия, остальные клиент удаляет.
type ActionSync struct {
	Owner   string        `json:"owner"`
	Added   []ActionInfo  `json:"added,omitempty"`
	States  []ActionState `json:"states,omitempty"`
	Removed []uint32      `json:"removed,omitempty"`
	Full    bool          `json:"full,omitempty"`
}

// ActionInfo объявляет действие.
type ActionInfo struct {
	NetID uint32 `json:"netId"`
	Class string `json:"class"`
}

// ActionState - реплицируемая запись действия. Применяется только целиком.
type ActionState struct {
	NetID      uint32  `json:"netId"`
	Running    bool    `json:"running"`
	Instigator string  `json:"instigator,omitempty"`
	StartTime  float64 `json:"startTime"`
}

// LogEntry представляет одну запись в игровом логе (чате).
type LogEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Type      string `json:"type"`      // INFO, COMBAT, REJECT, ERROR
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// --- КЛИЕНТ -> СЕРВЕР ---

// ClientCommand это корневой объект для всех сообщений от клиента к серверу.
type ClientCommand struct {
	// Token ID актора, от имени которого выполняется действие.
	// Для первого сообщения "LOGIN" может быть пустым (создается новый игрок).
	Token string `json:"token,omitempty"`

	// Action название команды (LOGIN, START_ACTION, ...).
	Action string `json:"action"`

	// Payload JSON-объект с данными для команды. Его структура зависит от Action.
	Payload json.RawMessage `json:"payload"`
}

// --- Payloads ---

// LoginPayload используется для LOGIN.
type LoginPayload struct {
	Name string `json:"name"`
}

// ActionPayload используется для START_ACTION / STOP_ACTION.
// Owner указывает, чей компонент (пустой - свой актор).
type ActionPayload struct {
	Name  string `json:"name"`
	Owner string `json:"owner,omitempty"`
}

// EntityPayload используется для команд, нацеленных на другого актора (INTERACT, SET_TARGET).
type EntityPayload struct {
	TargetID string `json:"targetId"`
}

// PositionPayload используется для MOVE: точка, к которой нужно сместиться.
type PositionPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SavePayload используется для SAVE. Пустой слот - слот по умолчанию.
type SavePayload struct {
	Slot string `json:"slot,omitempty"`
}
