package status

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeTarget struct {
	mu       sync.Mutex
	resets   int
	rotation float64
	zoom     float64
	preset   string
	url      string
	product  string
}

func (f *fakeTarget) ResetView() {
	f.mu.Lock()
	f.resets++
	f.mu.Unlock()
}

func (f *fakeTarget) SetSensitivity(r, z float64) {
	f.mu.Lock()
	f.rotation, f.zoom = r, z
	f.mu.Unlock()
}

func (f *fakeTarget) ApplyPreset(name string) bool {
	f.mu.Lock()
	f.preset = name
	f.mu.Unlock()
	return true
}

func (f *fakeTarget) Open(url, product string) {
	f.mu.Lock()
	f.url, f.product = url, product
	f.mu.Unlock()
}

func immediate(fn func()) bool {
	fn()
	return true
}

func TestDispatch(t *testing.T) {
	target := &fakeTarget{}
	handle := Dispatch(immediate, target)

	tests := []struct {
		cmd     Command
		wantErr bool
	}{
		{Command{Cmd: CmdReset}, false},
		{Command{Cmd: CmdSensitivity, Rotation: 0.7, Zoom: 0.4}, false},
		{Command{Cmd: CmdSensitivity, Rotation: -1, Zoom: 0.4}, true},
		{Command{Cmd: CmdPreset, Preset: "Fast"}, false},
		{Command{Cmd: CmdPreset}, true},
		{Command{Cmd: CmdLoad, URL: "https://x/m.glb", Product: "Model 2"}, false},
		{Command{Cmd: CmdLoad}, true},
		{Command{Cmd: "explode"}, true},
	}
	for _, tt := range tests {
		if err := handle(tt.cmd); (err != nil) != tt.wantErr {
			t.Errorf("%+v: err = %v, wantErr %v", tt.cmd, err, tt.wantErr)
		}
	}

	if target.resets != 1 || target.rotation != 0.7 || target.preset != "Fast" || target.product != "Model 2" {
		t.Errorf("target state = %+v", target)
	}
}

func TestDispatch_Busy(t *testing.T) {
	handle := Dispatch(func(func()) bool { return false }, &fakeTarget{})
	if err := handle(Command{Cmd: CmdReset}); err != ErrBusy {
		t.Errorf("expected ErrBusy, got %v", err)
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var v map[string]any
	if err := conn.ReadJSON(&v); err != nil {
		t.Fatalf("read: %v", err)
	}
	return v
}

// readUntil skips messages until one has key set to want.
func readUntil(t *testing.T, conn *websocket.Conn, key, want string) map[string]any {
	t.Helper()
	for i := 0; i < 10; i++ {
		v := readJSON(t, conn)
		if s, _ := v[key].(string); strings.Contains(s, want) {
			return v
		}
	}
	t.Fatalf("no message with %s=%q", key, want)
	return nil
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastAndCommands(t *testing.T) {
	target := &fakeTarget{}
	hub := NewHub(Dispatch(immediate, target))
	defer hub.Close()
	hub.Publish(map[string]any{"state": "loading", "progress": 10})

	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	if got := readJSON(t, conn); got["state"] != "loading" {
		t.Errorf("initial status = %v", got)
	}
	waitClients(t, hub, 1)

	hub.Publish(map[string]any{"state": "ready", "progress": 100})
	readUntil(t, conn, "state", "ready")

	if err := conn.WriteJSON(Command{Cmd: CmdReset}); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(Command{Cmd: "nope"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, "error", "nope")

	target.mu.Lock()
	resets := target.resets
	target.mu.Unlock()
	if resets != 1 {
		t.Errorf("reset commands = %d, want 1", resets)
	}
}

func TestHub_StatusEndpoint(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	hub.Publish(map[string]string{"state": "failed", "error": "boom"})

	resp, err := srv.Client().Get(srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var v map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	if v["error"] != "boom" {
		t.Errorf("status = %v", v)
	}
}

func TestHub_BurstDeliversLatest(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	hub.Publish(map[string]any{"state": "loading", "progress": 0})
	conn := dial(t, srv)
	readJSON(t, conn)
	waitClients(t, hub, 1)

	for i := 1; i <= 200; i++ {
		hub.Publish(map[string]any{"state": "loading", "progress": i % 100})
	}
	hub.Publish(map[string]any{"state": "ready", "progress": 100})

	for i := 0; i < 250; i++ {
		v := readJSON(t, conn)
		if v["state"] == "ready" {
			return
		}
	}
	t.Fatal("final ready status never arrived")
}
