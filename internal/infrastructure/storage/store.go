package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"ability-server/internal/domain"
)

// ErrNotFound - слота нет (первый запуск).
var ErrNotFound = errors.New("save slot not found")

// Store - хранилище сохранений. Формат байтов знает только реализация.
type Store interface {
	Save(ctx context.Context, game *domain.SaveGame) error
	Load(ctx context.Context, slot string) (*domain.SaveGame, error)
	Close() error
}

// Бэкенды
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var slotPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateSlot - имя слота попадает в путь файла, поэтому только безопасные символы.
func ValidateSlot(slot string) error {
	if !slotPattern.MatchString(slot) {
		return fmt.Errorf("invalid save slot %q", slot)
	}
	return nil
}

// Open создает хранилище по имени бэкенда. dir - каталог для файлов/базы.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(dir)
	case BackendSQLite:
		return OpenSQLite(dir)
	default:
		return nil, fmt.Errorf("unknown save backend %q", backend)
	}
}
