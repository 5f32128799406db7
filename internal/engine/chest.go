package engine

import (
	"fmt"
)

// Chest - сундук с крышкой. Состояние крышки переживает перезапуск сервера.
type Chest struct {
	actor *Actor
}

func (c *Chest) IsOpen() bool { return c.actor.active }

// Interact переключает крышку.
func (c *Chest) Interact(_ *World, self, instigator *Actor) string {
	self.SetActive(!self.active)
	if self.active {
		return fmt.Sprintf("%s открывает %s", instigator.Name, self.Name)
	}
	return fmt.Sprintf("%s закрывает %s", instigator.Name, self.Name)
}

func (c *Chest) SaveState() []byte {
	if c.actor.active {
		return []byte{1}
	}
	return []byte{0}
}

func (c *Chest) OnActorLoaded(data []byte) {
	c.actor.SetActive(len(data) > 0 && data[0] == 1)
}
