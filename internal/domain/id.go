package domain

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// ActorID - идентификатор актора в мире (игрок, бот, паверап, сундук).
// Сериализуется строкой ULID, поэтому сортируется по времени создания.
type ActorID string

// NoActor - "пустая" ссылка (нет инстигатора, нет цели).
const NoActor ActorID = ""

// NewActorID создает новый уникальный ID.
func NewActorID() ActorID {
	return ActorID(ulid.Make().String())
}

// ParseActorID проверяет строку от клиента. Пустая строка допустима (NoActor).
func ParseActorID(s string) (ActorID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoActor, nil
	}
	if _, err := ulid.ParseStrict(s); err != nil {
		return NoActor, err
	}
	return ActorID(s), nil
}

// IsValid - true, если ссылка не пустая.
func (id ActorID) IsValid() bool {
	return id != NoActor
}

func (id ActorID) String() string {
	if id == NoActor {
		return "<none>"
	}
	return string(id)
}
