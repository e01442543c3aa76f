package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/ChromeUniverse/luccachat/internal/models"
	"github.com/ChromeUniverse/luccachat/internal/store"
)

func TestRequests(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	createTestUser(t, "a", "alice")
	createTestUser(t, "b", "bob")

	req := &models.Request{ID: "r1", SenderID: "a", ReceiverID: "b"}
	if err := testStore.CreateRequest(ctx, req); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if err := testStore.CreateRequest(ctx, &models.Request{ID: "r2", SenderID: "a", ReceiverID: "b"}); !errors.Is(err, store.ErrConflict) {
		t.Errorf("Expected ErrConflict for duplicate request, got %v", err)
	}

	found, err := testStore.FindRequest(ctx, "a", "b")
	if err != nil {
		t.Fatalf("FindRequest failed: %v", err)
	}
	if found.ID != "r1" || found.Sender.Handle != "alice" || found.Receiver.Handle != "bob" {
		t.Errorf("Unexpected request: %+v", found)
	}
	if _, err := testStore.FindRequest(ctx, "b", "a"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for reverse direction, got %v", err)
	}

	if err := testStore.DeleteRequest(ctx, "r1"); err != nil {
		t.Errorf("DeleteRequest failed: %v", err)
	}
	if err := testStore.DeleteRequest(ctx, "r1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestAcceptRequest(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	createTestUser(t, "a", "alice")
	createTestUser(t, "b", "bob")
	testStore.CreateRequest(ctx, &models.Request{ID: "r1", SenderID: "a", ReceiverID: "b"})

	dm := &models.Chat{ID: "dm1"}
	if err := testStore.AcceptRequest(ctx, "r1", dm); err != nil {
		t.Fatalf("AcceptRequest failed: %v", err)
	}
	if len(dm.Members) != 2 {
		t.Errorf("Expected 2 members on returned dm, got %d", len(dm.Members))
	}

	if _, err := testStore.GetRequest(ctx, "r1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected request to be gone, got %v", err)
	}
	chat, err := testStore.FindDM(ctx, "b", "a")
	if err != nil {
		t.Fatalf("FindDM failed: %v", err)
	}
	if chat.Kind != models.ChatDM || chat.CreatorID != "" || chat.InviteCode != "" || len(chat.Members) != 2 {
		t.Errorf("Unexpected dm: %+v", chat)
	}

	if err := testStore.AcceptRequest(ctx, "r1", &models.Chat{ID: "dm2"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound accepting twice, got %v", err)
	}
	if _, err := testStore.GetChat(ctx, "dm2"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected no second dm, got %v", err)
	}
}

func TestRequestPairIsUnordered(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	createTestUser(t, "a", "alice")
	createTestUser(t, "b", "bob")

	if err := testStore.CreateRequest(ctx, &models.Request{ID: "r1", SenderID: "a", ReceiverID: "b"}); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if err := testStore.CreateRequest(ctx, &models.Request{ID: "r2", SenderID: "b", ReceiverID: "a"}); !errors.Is(err, store.ErrConflict) {
		t.Errorf("Expected ErrConflict for the reverse request, got %v", err)
	}
}

func TestAcceptRequestWithExistingDM(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()
	ctx := context.Background()

	createTestUser(t, "a", "alice")
	createTestUser(t, "b", "bob")
	testStore.CreateRequest(ctx, &models.Request{ID: "r1", SenderID: "a", ReceiverID: "b"})
	if err := testStore.AcceptRequest(ctx, "r1", &models.Chat{ID: "dm1"}); err != nil {
		t.Fatalf("AcceptRequest failed: %v", err)
	}

	// A request filed after the DM exists must not produce a second one.
	if err := testStore.CreateRequest(ctx, &models.Request{ID: "r2", SenderID: "b", ReceiverID: "a"}); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if err := testStore.AcceptRequest(ctx, "r2", &models.Chat{ID: "dm2"}); !errors.Is(err, store.ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}
	if n := countDMs(t, "a", "b"); n != 1 {
		t.Errorf("Expected exactly one DM, got %d", n)
	}
	if _, err := testStore.GetChat(ctx, "dm2"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected no second dm, got %v", err)
	}
}

func countDMs(t *testing.T, userA, userB string) int {
	t.Helper()
	var n int
	err := testStore.db.QueryRow(`
		SELECT COUNT(*)
		FROM chats c
		JOIN members a ON a.chat_id = c.id AND a.user_id = ?
		JOIN members b ON b.chat_id = c.id AND b.user_id = ?
		WHERE c.kind = ?
	`, userA, userB, models.ChatDM).Scan(&n)
	if err != nil {
		t.Fatalf("count dms: %v", err)
	}
	return n
}
