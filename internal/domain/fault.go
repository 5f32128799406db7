package domain

import (
	"fmt"

	"ability-server/pkg/logger"
)

// Ensure проверяет условие, которое может нарушить только ошибка
// программиста или контента. В dev-сборке (go build -tags dev) паникует,
// в релизе пишет ошибку в лог и возвращает false, чтобы вызывающий
// деградировал в no-op.
func Ensure(cond bool, format string, args ...any) bool {
	if cond {
		return true
	}
	msg := fmt.Sprintf(format, args...)
	logger.For("ensure").Error(msg)
	if devBuild {
		panic("ensure failed: " + msg)
	}
	return false
}
