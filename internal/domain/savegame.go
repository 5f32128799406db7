package domain

// PlayerSave - состояние игрока (PlayerState), переживающее перезапуск
type PlayerSave struct {
	ID      ActorID `json:"id"`
	Credits int     `json:"credits"`
}

// ActorSave - запись для акторов с состоянием (сундуки и т.п.).
// Data - непрозрачный блоб, формат знает только сам актор.
type ActorSave struct {
	Name string `json:"name"`
	Pos  Vec    `json:"pos"`
	Data []byte `json:"data,omitempty"`
}

// SaveGame - полный слот сохранения
type SaveGame struct {
	Slot      string       `json:"slot"`
	Timestamp int64        `json:"timestamp"`
	Players   []PlayerSave `json:"players"`
	Actors    []ActorSave  `json:"actors"`
}

// FindPlayer возвращает сохраненное состояние игрока, если оно есть.
func (s *SaveGame) FindPlayer(id ActorID) (PlayerSave, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerSave{}, false
}

// FindActor ищет запись по имени актора.
func (s *SaveGame) FindActor(name string) (ActorSave, bool) {
	for _, a := range s.Actors {
		if a.Name == name {
			return a, true
		}
	}
	return ActorSave{}, false
}
