package core

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/history"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []string
	fail   bool

	closed bool
	code   int
	reason string
}

func (c *fakeConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail || c.closed {
		return errors.New("send failed")
	}
	c.frames = append(c.frames, string(f))
	return nil
}

func (c *fakeConn) CloseWith(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.code = code
	c.reason = reason
}

func (c *fakeConn) sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}

// newTestRoom builds a room without starting the run loop; tests feed
// events through handle directly, which mirrors the loop's sequential
// execution.
func newTestRoom(t *testing.T) (*Room, *history.Memory) {
	t.Helper()
	store := history.NewMemory(history.DefaultTTL, history.DefaultCap)
	return newRoom(context.Background(), "r1", store), store
}

func admit(r *Room, role domain.Role, id domain.ClientID) (*Session, *fakeConn) {
	conn := &fakeConn{}
	sess := NewSession(role, id, conn)
	sess.MarkOpen()
	r.handle(admitEvent{sess: sess})
	return sess, conn
}

func readLog(t *testing.T, store history.Store, room domain.RoomID) []domain.Entry {
	t.Helper()
	entries, err := store.Read(context.Background(), room)
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	return entries
}

func TestBroadcastReachesAllClients(t *testing.T) {
	r, store := newTestRoom(t)
	hostSess, _ := admit(r, domain.RoleHost, "")
	_, c1 := admit(r, domain.RoleClient, "C1")
	_, c2 := admit(r, domain.RoleClient, "C2")

	r.handle(frameEvent{sess: hostSess, data: Frame("ping")})

	for name, conn := range map[string]*fakeConn{"C1": c1, "C2": c2} {
		got := conn.sent()
		if len(got) != 1 || got[0] != "ping" {
			t.Errorf("%s frames = %q, want [ping]", name, got)
		}
	}

	entries := readLog(t, store, "r1")
	last := entries[len(entries)-1]
	if last.Direction != domain.DirectionOutbound || last.ClientID != domain.BroadcastTarget || last.Content != "ping" {
		t.Errorf("last entry = %+v, want outbound all ping", last)
	}
}

func TestUnicastReachesOnlyTarget(t *testing.T) {
	r, store := newTestRoom(t)
	hostSess, _ := admit(r, domain.RoleHost, "")
	_, c1 := admit(r, domain.RoleClient, "C1")
	_, c2 := admit(r, domain.RoleClient, "C2")

	r.handle(frameEvent{sess: hostSess, data: Frame(`{"type":"send_to_client","clientId":"C1","data":"pong"}`)})

	if got := c1.sent(); len(got) != 1 || got[0] != "pong" {
		t.Errorf("C1 frames = %q, want [pong]", got)
	}
	if got := c2.sent(); len(got) != 0 {
		t.Errorf("C2 frames = %q, want none", got)
	}

	entries := readLog(t, store, "r1")
	last := entries[len(entries)-1]
	if last.Direction != domain.DirectionOutbound || last.ClientID != "C1" || last.Content != "pong" {
		t.Errorf("last entry = %+v, want outbound C1 pong", last)
	}
}

func TestUnicastToAbsentClientReachesNobody(t *testing.T) {
	r, store := newTestRoom(t)
	hostSess, _ := admit(r, domain.RoleHost, "")
	_, c1 := admit(r, domain.RoleClient, "C1")

	r.handle(frameEvent{sess: hostSess, data: Frame(`{"type":"send_to_client","clientId":"ghost","data":"x"}`)})

	if got := c1.sent(); len(got) != 0 {
		t.Errorf("C1 frames = %q, want none", got)
	}
	entries := readLog(t, store, "r1")
	last := entries[len(entries)-1]
	if last.ClientID != "ghost" || last.Direction != domain.DirectionOutbound {
		t.Errorf("last entry = %+v, want outbound ghost", last)
	}
}

func TestMalformedHostFrameBroadcasts(t *testing.T) {
	r, _ := newTestRoom(t)
	hostSess, _ := admit(r, domain.RoleHost, "")
	_, c1 := admit(r, domain.RoleClient, "C1")

	raw := `{"type":"send_to_client","clientId":`
	r.handle(frameEvent{sess: hostSess, data: Frame(raw)})

	if got := c1.sent(); len(got) != 1 || got[0] != raw {
		t.Errorf("C1 frames = %q, want verbatim broadcast", got)
	}
}

func TestClientMessageForwardedToHost(t *testing.T) {
	r, store := newTestRoom(t)
	_, hostConn := admit(r, domain.RoleHost, "")
	c1Sess, _ := admit(r, domain.RoleClient, "C1")

	before := len(hostConn.sent())
	r.handle(frameEvent{sess: c1Sess, data: Frame("hello")})

	got := hostConn.sent()
	if len(got) != before+1 {
		t.Fatalf("host frames = %q, want one more after client message", got)
	}
	var env struct {
		Type     string `json:"type"`
		ClientID string `json:"clientId"`
		Data     string `json:"data"`
	}
	if err := json.Unmarshal([]byte(got[len(got)-1]), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Type != "client_message" || env.ClientID != "C1" || env.Data != "hello" {
		t.Errorf("envelope = %+v", env)
	}

	entries := readLog(t, store, "r1")
	last := entries[len(entries)-1]
	if last.Direction != domain.DirectionInbound || last.ClientID != "C1" || last.Content != "hello" {
		t.Errorf("last entry = %+v, want inbound C1 hello", last)
	}
}

func TestClientMessageWithoutHostIsDroppedButLogged(t *testing.T) {
	r, store := newTestRoom(t)
	c1Sess, _ := admit(r, domain.RoleClient, "C1")

	r.handle(frameEvent{sess: c1Sess, data: Frame("anyone there")})

	entries := readLog(t, store, "r1")
	last := entries[len(entries)-1]
	if last.Direction != domain.DirectionInbound || last.Content != "anyone there" {
		t.Errorf("last entry = %+v, want inbound entry despite absent host", last)
	}
}

func TestSecondHostEvictsFirst(t *testing.T) {
	r, _ := newTestRoom(t)
	h0Sess, h0Conn := admit(r, domain.RoleHost, "")
	_, c1 := admit(r, domain.RoleClient, "C1")
	h1Sess, h1Conn := admit(r, domain.RoleHost, "")

	if !h0Conn.closed || h0Conn.code != 1000 || h0Conn.reason != "new host connected" {
		t.Errorf("old host close = (%v, %d, %q), want (true, 1000, new host connected)",
			h0Conn.closed, h0Conn.code, h0Conn.reason)
	}
	if h0Sess.State() != StateClosed {
		t.Errorf("old host state = %v, want closed", h0Sess.State())
	}

	// A stale frame from the evicted host must not route.
	r.handle(frameEvent{sess: h0Sess, data: Frame("stale")})
	if got := c1.sent(); len(got) != 0 {
		t.Errorf("C1 frames after stale host frame = %q, want none", got)
	}

	r.handle(frameEvent{sess: h1Sess, data: Frame("fresh")})
	if got := c1.sent(); len(got) != 1 || got[0] != "fresh" {
		t.Errorf("C1 frames = %q, want [fresh]", got)
	}

	// Client traffic goes to the new host only.
	c1Sess := r.clients["C1"]
	r.handle(frameEvent{sess: c1Sess, data: Frame("hi")})
	if n := len(h1Conn.sent()); n == 0 {
		t.Error("new host received nothing")
	}
	for _, f := range h0Conn.sent() {
		var env struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal([]byte(f), &env)
		if env.Type == "client_message" {
			t.Errorf("evicted host received client traffic: %s", f)
		}
	}
}

func TestHostReplayOrder(t *testing.T) {
	store := history.NewMemory(history.DefaultTTL, history.DefaultCap)
	for _, content := range []string{"one", "two", "three"} {
		if err := store.Append(context.Background(), "r1", domain.NewEntry("C9", domain.DirectionInbound, content)); err != nil {
			t.Fatalf("seed history: %v", err)
		}
	}
	r := newRoom(context.Background(), "r1", store)

	_, _ = admit(r, domain.RoleClient, "C1") // appends the "online" entry
	_, hostConn := admit(r, domain.RoleHost, "")

	got := hostConn.sent()
	if len(got) < 2 {
		t.Fatalf("host frames = %q, want history then client_join", got)
	}

	var hist struct {
		Type     string         `json:"type"`
		Messages []domain.Entry `json:"messages"`
	}
	if err := json.Unmarshal([]byte(got[0]), &hist); err != nil {
		t.Fatalf("decode history envelope: %v", err)
	}
	if hist.Type != "history" || len(hist.Messages) != 4 {
		t.Fatalf("history envelope = type %q with %d messages, want history with 4", hist.Type, len(hist.Messages))
	}
	for i, want := range []string{"one", "two", "three", "online"} {
		if hist.Messages[i].Content != want {
			t.Errorf("history[%d] = %q, want %q", i, hist.Messages[i].Content, want)
		}
	}

	var join struct {
		Type     string `json:"type"`
		ClientID string `json:"clientId"`
	}
	if err := json.Unmarshal([]byte(got[1]), &join); err != nil {
		t.Fatalf("decode join envelope: %v", err)
	}
	if join.Type != "client_join" || join.ClientID != "C1" {
		t.Errorf("second frame = %+v, want client_join C1", join)
	}
}

func TestHostDisconnectLeavesClientsOpen(t *testing.T) {
	r, _ := newTestRoom(t)
	hostSess, _ := admit(r, domain.RoleHost, "")
	c1Sess, c1 := admit(r, domain.RoleClient, "C1")

	r.handle(closeEvent{sess: hostSess})

	if c1.closed {
		t.Error("client closed on host disconnect")
	}
	if c1Sess.State() == StateClosed {
		t.Error("client session closed on host disconnect")
	}
	// No notification of host absence reaches clients.
	if got := c1.sent(); len(got) != 0 {
		t.Errorf("C1 frames = %q, want none", got)
	}
}

func TestClientDisconnectNotifiesHostOnly(t *testing.T) {
	r, store := newTestRoom(t)
	_, hostConn := admit(r, domain.RoleHost, "")
	c1Sess, _ := admit(r, domain.RoleClient, "C1")
	_, c2 := admit(r, domain.RoleClient, "C2")

	before := len(hostConn.sent())
	c2Before := len(c2.sent())
	r.handle(closeEvent{sess: c1Sess})

	got := hostConn.sent()
	if len(got) != before+1 {
		t.Fatalf("host frames = %q, want one leave envelope", got)
	}
	var env struct {
		Type     string `json:"type"`
		ClientID string `json:"clientId"`
	}
	if err := json.Unmarshal([]byte(got[len(got)-1]), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Type != "client_leave" || env.ClientID != "C1" {
		t.Errorf("envelope = %+v, want client_leave C1", env)
	}
	if len(c2.sent()) != c2Before {
		t.Error("other client observed the disconnect")
	}

	entries := readLog(t, store, "r1")
	last := entries[len(entries)-1]
	if last.Direction != domain.DirectionSystem || last.Content != "offline" {
		t.Errorf("last entry = %+v, want system offline", last)
	}
}

func TestClientIDCollisionLastWriterWins(t *testing.T) {
	r, _ := newTestRoom(t)
	hostSess, hostConn := admit(r, domain.RoleHost, "")
	oldSess, oldConn := admit(r, domain.RoleClient, "C1")
	_, newConn := admit(r, domain.RoleClient, "C1")

	if !oldConn.closed || oldConn.reason != "client id replaced" {
		t.Errorf("old conn close = (%v, %q), want displaced", oldConn.closed, oldConn.reason)
	}
	if r.Info().ClientCount != 1 {
		t.Errorf("client count = %d, want 1", r.Info().ClientCount)
	}

	r.handle(frameEvent{sess: hostSess, data: Frame(`{"type":"send_to_client","clientId":"C1","data":"x"}`)})
	if got := newConn.sent(); len(got) != 1 || got[0] != "x" {
		t.Errorf("new conn frames = %q, want [x]", got)
	}

	// The displaced session's late close is a no-op: no leave envelope.
	before := len(hostConn.sent())
	r.handle(closeEvent{sess: oldSess})
	if got := hostConn.sent(); len(got) != before {
		t.Errorf("host frames changed on stale close: %q", got)
	}
	if r.Info().ClientCount != 1 {
		t.Errorf("client count after stale close = %d, want 1", r.Info().ClientCount)
	}
}

func TestDeliveryFailureIsDiscarded(t *testing.T) {
	r, store := newTestRoom(t)
	hostSess, _ := admit(r, domain.RoleHost, "")
	_, c1 := admit(r, domain.RoleClient, "C1")
	c1.fail = true

	r.handle(frameEvent{sess: hostSess, data: Frame("ping")})

	if got := c1.sent(); len(got) != 0 {
		t.Errorf("failing conn recorded frames: %q", got)
	}
	entries := readLog(t, store, "r1")
	last := entries[len(entries)-1]
	if last.Content != "ping" {
		t.Errorf("history entry missing after failed delivery: %+v", last)
	}
}

func TestManagerGetOrCreateIsStable(t *testing.T) {
	store := history.NewMemory(history.DefaultTTL, history.DefaultCap)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewManager(ctx, store)

	a := m.GetOrCreate("r1")
	b := m.GetOrCreate("r1")
	if a != b {
		t.Error("GetOrCreate returned distinct actors for one id")
	}
	if _, ok := m.InfoFor("r2"); ok {
		t.Error("InfoFor instantiated a room")
	}

	conn := &fakeConn{}
	sess := NewSession(domain.RoleClient, "C1", conn)
	sess.MarkOpen()
	a.Admit(sess)

	deadline := time.After(2 * time.Second)
	for {
		if info, ok := m.InfoFor("r1"); ok && info.ClientCount == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("room never processed the admit event")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
