package domain

import (
	"encoding/json"
	"strings"
)

// CommandType - Внутренний числовой идентификатор команды клиента
type CommandType uint8

const (
	CommandUnknown CommandType = iota
	CommandLogin
	CommandStartAction
	CommandStopAction
	CommandInteract
	CommandSetTarget
	CommandKillAll
	CommandSave
	CommandMove
)

// Маппинг для конвертации JSON -> Domain
var commandStringToType = map[string]CommandType{
	"LOGIN":        CommandLogin,
	"START_ACTION": CommandStartAction,
	"STOP_ACTION":  CommandStopAction,
	"INTERACT":     CommandInteract,
	"SET_TARGET":   CommandSetTarget,
	"KILL_ALL":     CommandKillAll,
	"SAVE":         CommandSave,
	"MOVE":         CommandMove,
}

// Маппинг для логов Domain -> String
var commandTypeToString = map[CommandType]string{
	CommandLogin:       "LOGIN",
	CommandStartAction: "START_ACTION",
	CommandStopAction:  "STOP_ACTION",
	CommandInteract:    "INTERACT",
	CommandSetTarget:   "SET_TARGET",
	CommandKillAll:     "KILL_ALL",
	CommandSave:        "SAVE",
	CommandMove:        "MOVE",
}

// ParseCommand конвертирует строку из JSON в CommandType
func ParseCommand(s string) CommandType {
	// Делаем нечувствительным к регистру для надежности
	upper := strings.ToUpper(strings.TrimSpace(s))
	if val, ok := commandStringToType[upper]; ok {
		return val
	}
	return CommandUnknown
}

// String реализует интерфейс Stringer (для fmt.Printf)
func (c CommandType) String() string {
	if val, ok := commandTypeToString[c]; ok {
		return val
	}
	return "UNKNOWN"
}

// InternalCommand - команда, уже привязанная к актору.
// Payload парсится хендлером.
type InternalCommand struct {
	Type    CommandType
	Actor   ActorID // кто отправил
	Payload json.RawMessage
}
