package storage

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"ability-server/internal/domain"
)

const (
	MagicHeader string = `ASSV` // 4 байта
	Version1    uint32 = 1
)

// SaveFileHeader - точное представление заголовка файла в памяти.
// binary.Write пишет его целиком: тут нет слайсов и строк, только массивы и числа.
type SaveFileHeader struct {
	Magic       [4]byte // 4 байта
	Version     uint32  // 4 байта
	Timestamp   int64   // 8 байт
	PlayerCount uint32  // 4 байта
	ActorCount  uint32  // 4 байта
}

// PlayerHeader - заголовок записи игрока.
type PlayerHeader struct {
	Credits int32 // 4
	IDLen   uint8 // 1
}

// ActorHeader - заголовок записи актора.
type ActorHeader struct {
	X       float64 // 8
	Y       float64 // 8
	NameLen uint8   // 1
	DataLen uint16  // 2
}

// FileStore пишет каждый слот в отдельный бинарный файл.
type FileStore struct {
	SaveDir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	return &FileStore{SaveDir: dir}, nil
}

func (s *FileStore) path(slot string) string {
	return filepath.Join(s.SaveDir, slot+".sav")
}

// Save пишет во временный файл и переименовывает, чтобы сбой не оставил полфайла.
func (s *FileStore) Save(_ context.Context, game *domain.SaveGame) error {
	if err := ValidateSlot(game.Slot); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.SaveDir, game.Slot+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := writeBinary(w, game); err != nil {
		tmp.Close()
		return fmt.Errorf("write save %s: %w", game.Slot, err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(game.Slot))
}

func (s *FileStore) Load(_ context.Context, slot string) (*domain.SaveGame, error) {
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", slot, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	game, err := readBinary(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read save %s: %w", slot, err)
	}
	game.Slot = slot
	return game, nil
}

func (s *FileStore) Close() error { return nil }

func writeBinary(w io.Writer, g *domain.SaveGame) error {
	// 1. Глобальный заголовок
	header := SaveFileHeader{
		Version:     Version1,
		Timestamp:   g.Timestamp,
		PlayerCount: uint32(len(g.Players)),
		ActorCount:  uint32(len(g.Actors)),
	}
	copy(header.Magic[:], MagicHeader)

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// 2. Игроки
	for _, p := range g.Players {
		id := []byte(p.ID)
		if len(id) > 255 {
			return fmt.Errorf("player id too long: %d", len(id))
		}
		ph := PlayerHeader{Credits: int32(p.Credits), IDLen: uint8(len(id))}
		if err := binary.Write(w, binary.LittleEndian, &ph); err != nil {
			return err
		}
		if _, err := w.Write(id); err != nil {
			return err
		}
	}

	// 3. Акторы
	for _, a := range g.Actors {
		name := []byte(a.Name)
		if len(name) > 255 {
			return fmt.Errorf("actor name too long: %d", len(name))
		}
		if len(a.Data) > 65535 {
			return fmt.Errorf("actor data too long: %d", len(a.Data))
		}
		ah := ActorHeader{X: a.Pos.X, Y: a.Pos.Y, NameLen: uint8(len(name)), DataLen: uint16(len(a.Data))}
		if err := binary.Write(w, binary.LittleEndian, &ah); err != nil {
			return err
		}
		if _, err := w.Write(name); err != nil {
			return err
		}
		if len(a.Data) > 0 {
			if _, err := w.Write(a.Data); err != nil {
				return err
			}
		}
	}

	return nil
}

func readBinary(r io.Reader) (*domain.SaveGame, error) {
	// 1. Заголовок целиком
	var header SaveFileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if string(header.Magic[:]) != MagicHeader {
		return nil, fmt.Errorf("invalid magic")
	}
	if header.Version != Version1 {
		return nil, fmt.Errorf("unsupported version: %d (expected %d)", header.Version, Version1)
	}

	game := &domain.SaveGame{
		Timestamp: header.Timestamp,
		Players:   make([]domain.PlayerSave, 0, header.PlayerCount),
		Actors:    make([]domain.ActorSave, 0, header.ActorCount),
	}

	// 2. Игроки
	for i := uint32(0); i < header.PlayerCount; i++ {
		var ph PlayerHeader
		if err := binary.Read(r, binary.LittleEndian, &ph); err != nil {
			return nil, err
		}
		id := make([]byte, ph.IDLen)
		if _, err := io.ReadFull(r, id); err != nil {
			return nil, err
		}
		game.Players = append(game.Players, domain.PlayerSave{ID: domain.ActorID(id), Credits: int(ph.Credits)})
	}

	// 3. Акторы
	for i := uint32(0); i < header.ActorCount; i++ {
		var ah ActorHeader
		if err := binary.Read(r, binary.LittleEndian, &ah); err != nil {
			return nil, err
		}
		name := make([]byte, ah.NameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, err
		}
		a := domain.ActorSave{Name: string(name), Pos: domain.Vec{X: ah.X, Y: ah.Y}}
		if ah.DataLen > 0 {
			a.Data = make([]byte, ah.DataLen)
			if _, err := io.ReadFull(r, a.Data); err != nil {
				return nil, err
			}
		}
		game.Actors = append(game.Actors, a)
	}

	return game, nil
}
