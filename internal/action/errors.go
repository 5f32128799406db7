package action

import "errors"

var (
	// ErrConfiguration - ошибка контента или программиста (пустой класс,
	// автостарт, который не может стартовать). В dev-сборке паникует через domain.Ensure.
	ErrConfiguration = errors.New("configuration fault")

	// ErrNotAuthority - неавторитетная сторона пытается менять авторитетное состояние.
	ErrNotAuthority = errors.New("authority violation")

	// ErrStillRunning - попытка удалить запущенное действие.
	ErrStillRunning = errors.New("action is still running")

	// ErrUnknownClass - класса нет в реестре.
	ErrUnknownClass = errors.New("unknown action class")
)
