package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"ability-server/internal/action"
	"ability-server/internal/domain"
	"ability-server/internal/engine"
	"ability-server/pkg/api"
)

const queryTimeout = 2 * time.Second

// DebugHandler предоставляет доступ к внутреннему состоянию движка.
// Мир читается только через Instance.Query, в горутине симуляции.
type DebugHandler struct {
	Instance *engine.Instance
}

func NewDebugHandler(inst *engine.Instance) *DebugHandler {
	return &DebugHandler{Instance: inst}
}

// RegisterRoutes регистрирует debug-эндпоинты
func (h *DebugHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/actors", h.handleDumpActors)
	mux.HandleFunc("/debug/actions", h.handleDumpActions)
	mux.HandleFunc("/debug/tunables", h.handleTunables)
	mux.HandleFunc("/debug/hub", h.handleHub)
}

// /debug/actors - все акторы с ресурсами
func (h *DebugHandler) handleDumpActors(w http.ResponseWriter, r *http.Request) {
	type ActorDump struct {
		api.ActorView
		Attributes *api.AttributeView `json:"attributes,omitempty"`
		Alive      bool               `json:"alive"`
	}

	var dump []ActorDump
	err := h.query(r.Context(), func(world *engine.World) {
		for _, a := range world.Actors() {
			d := ActorDump{ActorView: a.View(), Alive: a.IsAlive()}
			if v, ok := a.AttributeView(); ok {
				d.Attributes = &v
			}
			dump = append(dump, d)
		}
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, dump)
}

// /debug/actions?owner=ID - теги и состояние действий (все акторы или один)
func (h *DebugHandler) handleDumpActions(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParseActorID(r.URL.Query().Get("owner"))
	if err != nil {
		http.Error(w, "invalid owner", http.StatusBadRequest)
		return
	}

	var dump []action.DebugInfo
	err = h.query(r.Context(), func(world *engine.World) {
		for _, a := range world.Actors() {
			if a.Actions() == nil || (owner.IsValid() && a.ID() != owner) {
				continue
			}
			dump = append(dump, a.Actions().Debug())
		}
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if owner.IsValid() && len(dump) == 0 {
		http.Error(w, "Actor not found", http.StatusNotFound)
		return
	}
	writeJSON(w, dump)
}

// TunablesView - JSON рантайм-настроек. В POST поля опциональны.
type TunablesView struct {
	DamageMultiplier *float64 `json:"damage_multiplier,omitempty"`
	SpawnBots        *bool    `json:"spawn_bots,omitempty"`
	OwedTickEpsilon  float64  `json:"owed_tick_epsilon"`
	RageGainRatio    float64  `json:"rage_gain_ratio"`
}

// /debug/tunables - GET читает, POST меняет множитель урона и спавн ботов
func (h *DebugHandler) handleTunables(w http.ResponseWriter, r *http.Request) {
	tun := h.Instance.World.Tunables()

	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req TunablesView
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.DamageMultiplier != nil {
			if *req.DamageMultiplier < 0 {
				http.Error(w, "damage_multiplier must be >= 0", http.StatusBadRequest)
				return
			}
			tun.SetDamageMultiplier(*req.DamageMultiplier)
		}
		if req.SpawnBots != nil {
			tun.SetSpawnBots(*req.SpawnBots)
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dm, spawn := tun.DamageMultiplier(), tun.SpawnBots()
	writeJSON(w, TunablesView{
		DamageMultiplier: &dm,
		SpawnBots:        &spawn,
		OwedTickEpsilon:  tun.OwedTickEpsilon(),
		RageGainRatio:    tun.RageGainRatio(),
	})
}

// /debug/hub - подписчики и потерянные кадры
func (h *DebugHandler) handleHub(w http.ResponseWriter, r *http.Request) {
	type HubDump struct {
		Subscribers int            `json:"subscribers"`
		Dropped     map[string]int `json:"dropped"`
	}

	hub := h.Instance.Hub
	dump := HubDump{Subscribers: hub.SubscriberCount(), Dropped: map[string]int{}}
	err := h.query(r.Context(), func(world *engine.World) {
		for _, p := range world.ActorsOfKind(domain.KindPlayer) {
			if hub.HasSubscriber(p.ID()) {
				dump.Dropped[string(p.ID())] = hub.Dropped(p.ID())
			}
		}
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, dump)
}

func (h *DebugHandler) query(ctx context.Context, fn func(w *engine.World)) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return h.Instance.Query(ctx, fn)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	// Разрешаем запросы с любого источника (нужно для локального debug-клиента)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	w.Header().Set("Content-Type", "application/json")

	// Пустой список - [], а не null
	if data == nil {
		w.Write([]byte("[]"))
		return
	}

	json.NewEncoder(w).Encode(data)
}
