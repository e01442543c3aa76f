package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ChromeUniverse/luccachat/internal/auth"
	"github.com/ChromeUniverse/luccachat/internal/models"
	"github.com/ChromeUniverse/luccachat/internal/presence"
	"github.com/ChromeUniverse/luccachat/internal/store/sqlstore"
	"github.com/ChromeUniverse/luccachat/internal/ws"
	"github.com/ChromeUniverse/luccachat/internal/ws/wstest"
	"go.uber.org/zap/zaptest"
)

const testSecret = "test-secret"

type harness struct {
	t          *testing.T
	store      *sqlstore.SQLStore
	registry   *ws.Registry
	handlers   *Handlers
	dispatcher *Dispatcher
	conns      map[string]*wstest.Conn
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	log := zaptest.NewLogger(t)
	reg := ws.NewRegistry()
	out := ws.NewBroadcaster(reg, log)
	gate := ws.NewGate(auth.NewVerifier(testSecret, time.Hour), reg, presence.Nop{}, out, log)
	h := New(s, out, log)
	return &harness{
		t:          t,
		store:      s,
		registry:   reg,
		handlers:   h,
		dispatcher: NewDispatcher(h, gate, reg, out, time.Second, log),
		conns:      map[string]*wstest.Conn{},
	}
}

// user creates a user and binds a connection for them.
func (hs *harness) user(id string) *models.User {
	hs.t.Helper()
	u := &models.User{ID: id, Name: id, Handle: id}
	if err := hs.store.CreateUser(context.Background(), u); err != nil {
		hs.t.Fatalf("Failed to create user %s: %v", id, err)
	}
	c := wstest.NewConn("conn-" + id)
	hs.registry.Bind(c, id)
	hs.conns[id] = c
	return u
}

// offline creates a user without a connection.
func (hs *harness) offline(id string) *models.User {
	hs.t.Helper()
	u := &models.User{ID: id, Name: id, Handle: id}
	if err := hs.store.CreateUser(context.Background(), u); err != nil {
		hs.t.Fatalf("Failed to create user %s: %v", id, err)
	}
	return u
}

func (hs *harness) conn(id string) *wstest.Conn { return hs.conns[id] }

func (hs *harness) send(actor string, frame map[string]any) {
	hs.t.Helper()
	raw, err := json.Marshal(frame)
	if err != nil {
		hs.t.Fatalf("marshal frame: %v", err)
	}
	hs.dispatcher.Dispatch(context.Background(), hs.conns[actor], raw)
}

func (hs *harness) reset() {
	for _, c := range hs.conns {
		c.Reset()
	}
}

// group creates a group owned by creator with the given extra members.
func (hs *harness) group(id, creator string, public bool, members ...string) *models.Chat {
	hs.t.Helper()
	ctx := context.Background()
	c := &models.Chat{ID: id, Name: "Group " + id, CreatorID: creator, IsPublic: public, InviteCode: "code-" + id}
	if err := hs.store.CreateGroup(ctx, c); err != nil {
		hs.t.Fatalf("Failed to create group %s: %v", id, err)
	}
	for _, m := range members {
		if err := hs.store.AddMember(ctx, id, m); err != nil {
			hs.t.Fatalf("Failed to add %s to %s: %v", m, id, err)
		}
	}
	hs.reset()
	return c
}

func (hs *harness) dm(id, a, b string) {
	hs.t.Helper()
	ctx := context.Background()
	req := &models.Request{ID: "req-" + id, SenderID: a, ReceiverID: b}
	if err := hs.store.CreateRequest(ctx, req); err != nil {
		hs.t.Fatalf("Failed to create request: %v", err)
	}
	if err := hs.store.AcceptRequest(ctx, req.ID, &models.Chat{ID: id}); err != nil {
		hs.t.Fatalf("Failed to accept request: %v", err)
	}
}

func expectTypes(t *testing.T, who string, c *wstest.Conn, want ...string) {
	t.Helper()
	got := c.Types()
	if len(got) != len(want) {
		t.Fatalf("%s: expected frames %v, got %v", who, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: expected frames %v, got %v", who, want, got)
		}
	}
}

func expectError(t *testing.T, c *wstest.Conn, kind, msg string) map[string]any {
	t.Helper()
	last := c.Last()
	if last == nil {
		t.Fatalf("expected %s error reply, got nothing", kind)
	}
	if last["type"] != kind || last["error"] != true {
		t.Fatalf("expected %s error reply, got %v", kind, last)
	}
	if msg != "" && last["msg"] != msg {
		t.Fatalf("expected msg %q, got %v", msg, last["msg"])
	}
	return last
}
