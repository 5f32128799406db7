package action

import "ability-server/internal/domain"

// Info объявляет действие клиенту до первой записи состояния.
type Info struct {
	NetID uint32
	Class string
}

// StateRecord - состояние одного действия в дельте.
type StateRecord struct {
	NetID uint32
	State RepState
}

// Delta - изменения одного компонента за тик.
// Порядок применения: Added, States, Removed.
// Full - полный список: все, чего нет в Added, на клиенте удаляется.
type Delta struct {
	Owner   domain.ActorID
	Added   []Info
	States  []StateRecord
	Removed []uint32
	Full    bool
}

func (d Delta) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.States) == 0 && len(d.Removed) == 0
}

// CollectDelta собирает изменения с прошлого вызова (только авторитет).
// Запись уходит, если она изменилась или принудительно запрошена.
func (c *Component) CollectDelta() (Delta, bool) {
	d := Delta{Owner: c.OwnerID()}
	if !c.HasAuthority() {
		return d, false
	}

	for _, a := range c.pendingAdded {
		d.Added = append(d.Added, Info{NetID: a.NetID(), Class: a.Class()})
	}

	for _, a := range c.actions {
		id := a.NetID()
		rs := a.base().RepState()
		last, sent := c.lastSent[id]
		if sent && last == rs && !c.forced[id] {
			continue
		}
		d.States = append(d.States, StateRecord{NetID: id, State: rs})
		c.lastSent[id] = rs
	}

	d.Removed = append(d.Removed, c.pendingRemoved...)

	c.pendingAdded = nil
	c.pendingRemoved = nil
	clear(c.forced)

	return d, !d.IsEmpty()
}

// Snapshot - полное состояние для нового подписчика. Не трогает учет дельт.
func (c *Component) Snapshot() Delta {
	d := Delta{Owner: c.OwnerID(), Full: true}
	for _, a := range c.actions {
		d.Added = append(d.Added, Info{NetID: a.NetID(), Class: a.Class()})
		d.States = append(d.States, StateRecord{NetID: a.NetID(), State: a.base().RepState()})
	}
	return d
}

// ApplyDelta применяет авторитетные изменения на клиенте.
// Повторное применение той же дельты ничего не меняет.
func (c *Component) ApplyDelta(d Delta) {
	if c.HasAuthority() {
		c.log().Warn("Authority ignores replicated action data")
		return
	}

	// 1. Новые действия
	for _, info := range d.Added {
		if c.findNetID(info.NetID) != nil {
			continue
		}
		a, err := c.registry.New(info.Class)
		if err != nil {
			c.log().WithError(err).WithField("net_id", info.NetID).Error("Cannot mirror replicated action")
			continue
		}
		a.base().initialize(c, info.NetID, a)
		c.attach(a)
	}

	// 2. Состояния
	for _, rec := range d.States {
		a := c.findNetID(rec.NetID)
		if a == nil {
			continue
		}
		a.base().applyRepState(rec.State)
	}

	// 3. Удаления. Запущенное действие сначала сводится к остановке,
	// чтобы теги снялись ровно один раз.
	for _, id := range d.Removed {
		c.dropReplicated(c.findNetID(id))
	}

	// 4. Полный снимок: лишнее сервер уже удалил, пока кадры терялись
	if d.Full {
		listed := make(map[uint32]bool, len(d.Added))
		for _, info := range d.Added {
			listed[info.NetID] = true
		}
		var stale []Action
		for _, a := range c.actions {
			if !listed[a.NetID()] {
				stale = append(stale, a)
			}
		}
		for _, a := range stale {
			c.dropReplicated(a)
		}
	}
}

// dropReplicated сводит действие к остановке (теги снимаются ровно раз) и убирает его.
func (c *Component) dropReplicated(a Action) {
	if a == nil {
		return
	}
	if a.IsRunning() {
		a.base().applyRepState(RepState{Running: false, Instigator: a.Instigator(), StartTime: a.StartTime()})
	}
	c.detach(a)
}
