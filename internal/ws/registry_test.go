package ws

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ChromeUniverse/luccachat/internal/ws/wstest"
)

func TestRegistryBindResolve(t *testing.T) {
	r := NewRegistry()
	c := wstest.NewConn("c1")

	if _, ok := r.IdentityOf(c); ok {
		t.Error("Expected unbound connection to have no identity")
	}

	r.Bind(c, "alice")

	if got, ok := r.Resolve("alice"); !ok || got != c {
		t.Errorf("Expected alice to resolve to c1, got %v", got)
	}
	if id, ok := r.IdentityOf(c); !ok || id != "alice" {
		t.Errorf("Expected identity alice, got %q", id)
	}

	userID, current := r.Unbind(c)
	if userID != "alice" || !current {
		t.Errorf("Expected (alice, true) from Unbind, got (%q, %v)", userID, current)
	}
	if _, ok := r.Resolve("alice"); ok {
		t.Error("Expected alice to be offline after unbind")
	}
}

func TestRegistryNewestBindWins(t *testing.T) {
	r := NewRegistry()
	first := wstest.NewConn("first")
	second := wstest.NewConn("second")

	r.Bind(first, "alice")
	r.Bind(second, "alice")

	if got, _ := r.Resolve("alice"); got != second {
		t.Errorf("Expected alice to resolve to the newest connection, got %v", got)
	}
	if _, ok := r.IdentityOf(first); ok {
		t.Error("Expected the evicted connection to lose its identity")
	}
	if first.Closed() {
		t.Error("Expected the evicted connection to stay open")
	}

	// The stale connection closing later must not unroute the newer one.
	if _, current := r.Unbind(first); current {
		t.Error("Expected stale unbind to report not current")
	}
	if got, ok := r.Resolve("alice"); !ok || got != second {
		t.Error("Expected alice to still resolve to the newest connection")
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 bound connection, got %d", r.Len())
	}
}

func TestRegistryRebindOtherUser(t *testing.T) {
	r := NewRegistry()
	c := wstest.NewConn("c1")

	r.Bind(c, "alice")
	r.Bind(c, "bob")

	if _, ok := r.Resolve("alice"); ok {
		t.Error("Expected alice to be unrouted after the connection re-authenticated as bob")
	}
	if id, _ := r.IdentityOf(c); id != "bob" {
		t.Errorf("Expected identity bob, got %q", id)
	}
}

func TestLiveConnectionsFor(t *testing.T) {
	r := NewRegistry()
	a, b := wstest.NewConn("a"), wstest.NewConn("b")
	r.Bind(a, "alice")
	r.Bind(b, "bob")

	conns := r.LiveConnectionsFor([]string{"alice", "carol", "bob", "alice"})
	if len(conns) != 2 {
		t.Fatalf("Expected 2 live connections, got %d", len(conns))
	}
	if conns[0] != a || conns[1] != b {
		t.Errorf("Unexpected connections %v", conns)
	}
}

func TestRegistryConcurrentBindUnbind(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i%5)
			for j := 0; j < 100; j++ {
				c := wstest.NewConn(fmt.Sprintf("%d-%d", i, j))
				r.Bind(c, user)
				r.Resolve(user)
				r.LiveConnectionsFor([]string{user})
				r.Unbind(c)
			}
		}(i)
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", r.Len())
	}
	for i := 0; i < 5; i++ {
		if _, ok := r.Resolve(fmt.Sprintf("user-%d", i)); ok {
			t.Errorf("Expected user-%d to be offline", i)
		}
	}
}
