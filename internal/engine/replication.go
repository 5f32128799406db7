package engine

import (
	"ability-server/internal/action"
	"ability-server/internal/domain"
	"ability-server/pkg/api"
)

// CollectFrame собирает изменения тика. Сбрасывает флаги и учет дельт,
// поэтому вызывается ровно один раз за тик.
func (w *World) CollectFrame() api.ServerMessage {
	msg := api.ServerMessage{Type: api.MsgFrame, ServerTime: w.Now()}

	// 1. Акторы: сначала все объявления, потом их действия
	for _, id := range w.order {
		a := w.actors[id]
		if a.dirty {
			msg.Actors = append(msg.Actors, a.View())
			a.dirty = false
		}
	}

	// 2. Действия
	for _, id := range w.order {
		a := w.actors[id]
		if a.actions == nil {
			continue
		}
		if d, ok := a.actions.CollectDelta(); ok {
			msg.Actions = append(msg.Actions, ToActionSync(d))
		}
	}

	// 3. Атрибуты
	for _, id := range w.order {
		a := w.actors[id]
		if !a.attrDirty {
			continue
		}
		a.attrDirty = false
		if v, ok := a.AttributeView(); ok {
			msg.Attributes = append(msg.Attributes, v)
		}
	}

	// 4. Удаления и лог
	for _, id := range w.despawned {
		msg.Despawned = append(msg.Despawned, string(id))
	}
	w.despawned = nil
	msg.Logs = w.takeLogs()

	return msg
}

// Snapshot - полный мир для нового или отставшего подписчика.
// Учет дельт не трогает.
func (w *World) Snapshot(you domain.ActorID) api.ServerMessage {
	msg := api.ServerMessage{Type: api.MsgWelcome, ServerTime: w.Now(), YourID: string(you)}
	for _, id := range w.order {
		a := w.actors[id]
		msg.Actors = append(msg.Actors, a.View())
		if a.actions != nil {
			msg.Actions = append(msg.Actions, ToActionSync(a.actions.Snapshot()))
		}
		if v, ok := a.AttributeView(); ok {
			msg.Attributes = append(msg.Attributes, v)
		}
	}
	return msg
}

// ToActionSync переводит дельту компонента в DTO.
func ToActionSync(d action.Delta) api.ActionSync {
	out := api.ActionSync{Owner: string(d.Owner), Full: d.Full}
	for _, info := range d.Added {
		out.Added = append(out.Added, api.ActionInfo{NetID: info.NetID, Class: info.Class})
	}
	for _, rec := range d.States {
		out.States = append(out.States, api.ActionState{
			NetID:      rec.NetID,
			Running:    rec.State.Running,
			Instigator: string(rec.State.Instigator),
			StartTime:  rec.State.StartTime,
		})
	}
	out.Removed = append(out.Removed, d.Removed...)
	return out
}

// FromActionSync - обратное преобразование на клиенте.
func FromActionSync(s api.ActionSync) action.Delta {
	d := action.Delta{Owner: domain.ActorID(s.Owner), Full: s.Full}
	for _, info := range s.Added {
		d.Added = append(d.Added, action.Info{NetID: info.NetID, Class: info.Class})
	}
	for _, st := range s.States {
		d.States = append(d.States, action.StateRecord{
			NetID: st.NetID,
			State: action.RepState{
				Running:    st.Running,
				Instigator: domain.ActorID(st.Instigator),
				StartTime:  st.StartTime,
			},
		})
	}
	d.Removed = append(d.Removed, s.Removed...)
	return d
}
