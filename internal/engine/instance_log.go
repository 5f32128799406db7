package engine

import (
	"fmt"
	"time"

	"ability-server/pkg/api"
	"ability-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// Типы записей игрового лога
const (
	LogInfo   = "INFO"
	LogCombat = "COMBAT"
	LogReject = "REJECT"
	LogError  = "ERROR"
)

// AddLog добавляет запись в игровой лог. Уйдет клиентам в следующем кадре.
func (w *World) AddLog(text, logType string) {
	w.logSeq++
	w.logs = append(w.logs, api.LogEntry{
		ID:        fmt.Sprintf("%d_%d", w.cfg.Seed, w.logSeq),
		Text:      text,
		Type:      logType,
		Timestamp: wallClockMillis(),
	})
	logger.Log.WithFields(logrus.Fields{
		"component": "game_log",
		"log_type":  logType,
	}).Info(text)
}

// takeLogs забирает накопленные записи.
func (w *World) takeLogs() []api.LogEntry {
	logs := w.logs
	w.logs = nil
	return logs
}

func wallClockMillis() int64 {
	return time.Now().UnixMilli()
}
