package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log является глобальным экземпляром логгера для всего приложения.
// До вызова Init пишет в stderr с уровнем по умолчанию, чтобы пакеты,
// используемые из тестов, не падали на nil.
var Log = logrus.New()

// Init настраивает глобальный логгер.
// level - уровень logrus ("debug", "info", ...), format - "json" или "text".
func Init(level, format string) {
	Log = logrus.New()

	// 1. Уровень. Неизвестное значение откатывается в info.
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// 2. Форматтер.
	// "json" - для продакшена и сбора логов.
	// "text" - для удобной разработки.
	if strings.ToLower(format) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}

	Log.SetOutput(os.Stdout)
}

// For возвращает запись с заполненным полем component.
func For(component string) *logrus.Entry {
	return Log.WithField("component", component)
}
