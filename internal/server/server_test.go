package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"ability-server/internal/catalog"
	"ability-server/internal/config"
	"ability-server/internal/engine"
	"ability-server/internal/network"
	"ability-server/internal/version"
	"ability-server/pkg/api"
	"ability-server/pkg/logger"

	"github.com/gorilla/websocket"
)

func TestMain(m *testing.M) {
	logger.Init("warn", "text")
	os.Exit(m.Run())
}

func startServer(t *testing.T) (*engine.Instance, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.Seed = 7
	cfg.TickRate = 50
	cfg.DesiredPowerupCount = 0
	tun := config.DefaultTunables()
	tun.SetSpawnBots(false)

	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	inst := engine.NewInstance(cfg, cat, tun, nil, network.NewBroadcaster())

	ctx, cancel := context.WithCancel(context.Background())
	if err := inst.Prepare(ctx); err != nil {
		cancel()
		t.Fatalf("Prepare: %v", err)
	}
	go inst.Run(ctx)

	ts := httptest.NewServer(New(inst, "0").Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return inst, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) api.ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg api.ServerMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func login(t *testing.T, conn *websocket.Conn, name string) api.ServerMessage {
	t.Helper()
	payload, _ := json.Marshal(api.LoginPayload{Name: name})
	if err := conn.WriteJSON(api.ClientCommand{Action: "LOGIN", Payload: payload}); err != nil {
		t.Fatalf("write login: %v", err)
	}
	return readMessage(t, conn)
}

func TestHealthAndVersion(t *testing.T) {
	_, ts := startServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	defer resp.Body.Close()
	var info version.VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	if info.Protocol != version.Protocol {
		t.Errorf("protocol = %d, want %d", info.Protocol, version.Protocol)
	}
}

func TestWS_LoginReceivesWelcome(t *testing.T) {
	_, ts := startServer(t)
	conn := dial(t, ts)

	msg := login(t, conn, "Алиса")
	if msg.Type != api.MsgWelcome {
		t.Fatalf("first message = %s, want WELCOME", msg.Type)
	}
	if msg.YourID == "" {
		t.Fatal("WELCOME without YourID")
	}
	found := false
	for _, a := range msg.Actors {
		if a.ID == msg.YourID && a.Name == "Алиса" {
			found = true
		}
	}
	if !found {
		t.Error("player is missing from WELCOME")
	}
}

func TestWS_FirstMessageMustBeLogin(t *testing.T) {
	_, ts := startServer(t)
	conn := dial(t, ts)

	if err := conn.WriteJSON(api.ClientCommand{Action: "MOVE", Payload: json.RawMessage(`{"x":1,"y":1}`)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readMessage(t, conn)
	if msg.Type != api.MsgError {
		t.Fatalf("type = %s, want ERROR", msg.Type)
	}
	if msg.Error != errLoginRequired.Error() {
		t.Errorf("error = %q", msg.Error)
	}
}

func TestWS_StartActionReplicates(t *testing.T) {
	_, ts := startServer(t)
	conn := dial(t, ts)
	welcome := login(t, conn, "Боб")

	payload, _ := json.Marshal(api.ActionPayload{Name: "Sprint"})
	// Token подменяется сервером, чужой ID ни на что не влияет
	cmd := api.ClientCommand{Token: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Action: "START_ACTION", Payload: payload}
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		msg := readMessage(t, conn)
		for _, s := range msg.Actions {
			if s.Owner != welcome.YourID {
				continue
			}
			for _, st := range s.States {
				if st.Running {
					return
				}
			}
		}
	}
	t.Fatal("running Sprint never replicated")
}

func TestDebug_ActorsAndTunables(t *testing.T) {
	_, ts := startServer(t)
	conn := dial(t, ts)
	welcome := login(t, conn, "Ева")

	resp, err := http.Get(ts.URL + "/debug/actors")
	if err != nil {
		t.Fatalf("actors: %v", err)
	}
	var actors []struct {
		ID    string `json:"id"`
		Alive bool   `json:"alive"`
	}
	err = json.NewDecoder(resp.Body).Decode(&actors)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode actors: %v", err)
	}
	found := false
	for _, a := range actors {
		if a.ID == welcome.YourID {
			found = a.Alive
		}
	}
	if !found {
		t.Error("live player not listed in /debug/actors")
	}

	resp, err = http.Post(ts.URL+"/debug/tunables", "application/json", strings.NewReader(`{"damage_multiplier":2.5}`))
	if err != nil {
		t.Fatalf("tunables: %v", err)
	}
	var tun TunablesView
	err = json.NewDecoder(resp.Body).Decode(&tun)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode tunables: %v", err)
	}
	if tun.DamageMultiplier == nil || *tun.DamageMultiplier != 2.5 {
		t.Errorf("damage_multiplier = %v, want 2.5", tun.DamageMultiplier)
	}
	if tun.SpawnBots == nil || *tun.SpawnBots {
		t.Error("spawn_bots should stay false")
	}
}

func TestDebug_Errors(t *testing.T) {
	_, ts := startServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"bad owner", http.MethodGet, "/debug/actions?owner=nope", "", http.StatusBadRequest},
		{"unknown owner", http.MethodGet, "/debug/actions?owner=01ARZ3NDEKTSV4RRFFQ69G5FAV", "", http.StatusNotFound},
		{"negative multiplier", http.MethodPost, "/debug/tunables", `{"damage_multiplier":-1}`, http.StatusBadRequest},
		{"broken json", http.MethodPost, "/debug/tunables", `{`, http.StatusBadRequest},
		{"wrong method", http.MethodDelete, "/debug/tunables", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, ts.URL+tt.path, strings.NewReader(tt.body))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}
