package handlers

import (
	"context"
	"strings"
	"testing"

	"github.com/ChromeUniverse/luccachat/internal/models"
	"github.com/ChromeUniverse/luccachat/internal/store/sqlstore"
)

// removingStore drops a member right after their chat is loaded, like a
// remove-member committing while add-message is in flight.
type removingStore struct {
	*sqlstore.SQLStore
	chatID, userID string
}

func (s *removingStore) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	chat, err := s.SQLStore.GetChat(ctx, id)
	if err == nil && id == s.chatID {
		s.SQLStore.RemoveMember(ctx, s.chatID, s.userID)
	}
	return chat, err
}

func TestAddMessage(t *testing.T) {
	hs := newHarness(t)
	hs.user("alice")
	hs.user("bob")
	hs.offline("carol")
	hs.user("dave")
	hs.group("g1", "alice", false, "bob", "carol")

	hs.send("bob", map[string]any{"type": "add-message", "chatId": "g1", "messageId": "m1", "content": "  hello  "})

	expectTypes(t, "alice", hs.conn("alice"), "add-message")
	expectTypes(t, "bob", hs.conn("bob"), "add-message")
	expectTypes(t, "dave", hs.conn("dave"))

	msg := hs.conn("alice").Last()["message"].(map[string]any)
	if msg["id"] != "m1" || msg["content"] != "hello" || msg["authorId"] != "bob" {
		t.Errorf("unexpected message payload: %v", msg)
	}
	if author, _ := msg["author"].(map[string]any); author["handle"] != "bob" {
		t.Errorf("expected author bob embedded, got %v", msg["author"])
	}

	stored, err := hs.store.GetMessage(context.Background(), "m1")
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	chat, _ := hs.store.GetChat(context.Background(), "g1")
	if !chat.Latest.Equal(stored.CreatedAt) {
		t.Errorf("expected latest %v, got %v", stored.CreatedAt, chat.Latest)
	}
}

func TestAddMessageDuplicateIDIsNoop(t *testing.T) {
	hs := newHarness(t)
	hs.user("alice")
	hs.group("g1", "alice", false)

	hs.send("alice", map[string]any{"type": "add-message", "chatId": "g1", "messageId": "m1", "content": "first"})
	hs.send("alice", map[string]any{"type": "add-message", "chatId": "g1", "messageId": "m1", "content": "retry"})

	expectTypes(t, "alice", hs.conn("alice"), "add-message")
	msgs, _ := hs.store.GetChatMessages(context.Background(), "g1")
	if len(msgs) != 1 || msgs[0].Content != "first" {
		t.Errorf("expected the first message only, got %+v", msgs)
	}
}

func TestAddMessageGeneratesID(t *testing.T) {
	hs := newHarness(t)
	hs.user("alice")
	hs.group("g1", "alice", false)

	hs.send("alice", map[string]any{"type": "add-message", "chatId": "g1", "content": "hi"})

	msg := hs.conn("alice").Last()["message"].(map[string]any)
	if id, _ := msg["id"].(string); id == "" {
		t.Error("expected a generated message id")
	}
}

func TestAddMessageNonMember(t *testing.T) {
	hs := newHarness(t)
	hs.user("alice")
	hs.user("mallory")
	hs.group("g1", "alice", false)

	hs.send("mallory", map[string]any{"type": "add-message", "chatId": "g1", "messageId": "m1", "content": "hi"})

	expectTypes(t, "alice", hs.conn("alice"))
	expectTypes(t, "mallory", hs.conn("mallory"))
	if _, err := hs.store.GetMessage(context.Background(), "m1"); err == nil {
		t.Error("message from a non-member was stored")
	}
	if hs.conn("mallory").Closed() {
		t.Error("authorization failures must not close the connection")
	}
}

func TestAddMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Empty", "   "},
		{"TooLong", strings.Repeat("x", 2001)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := newHarness(t)
			hs.user("alice")
			hs.group("g1", "alice", false)

			hs.send("alice", map[string]any{"type": "add-message", "chatId": "g1", "content": tt.content})

			reply := expectError(t, hs.conn("alice"), "add-message", "")
			fields, _ := reply["errors"].(map[string]any)
			if _, ok := fields["content"]; !ok {
				t.Errorf("expected a content field error, got %v", reply)
			}
		})
	}
}

func TestAddMessageUnknownChat(t *testing.T) {
	hs := newHarness(t)
	hs.user("alice")

	hs.send("alice", map[string]any{"type": "add-message", "chatId": "nope", "content": "hi"})

	expectError(t, hs.conn("alice"), "add-message", "not found")
}

func TestDeleteMessage(t *testing.T) {
	hs := newHarness(t)
	hs.user("alice")
	hs.user("bob")
	hs.group("g1", "alice", false, "bob")
	hs.send("bob", map[string]any{"type": "add-message", "chatId": "g1", "messageId": "m1", "content": "hi"})
	hs.reset()

	// Only the author may delete, not even the group creator.
	hs.send("alice", map[string]any{"type": "delete-message", "messageId": "m1"})
	expectTypes(t, "alice", hs.conn("alice"))
	if _, err := hs.store.GetMessage(context.Background(), "m1"); err != nil {
		t.Fatalf("message removed by a non-author: %v", err)
	}

	hs.send("bob", map[string]any{"type": "delete-message", "messageId": "m1"})
	for _, who := range []string{"alice", "bob"} {
		expectTypes(t, who, hs.conn(who), "delete-message")
		last := hs.conn(who).Last()
		if last["chatId"] != "g1" || last["messageId"] != "m1" {
			t.Errorf("%s: unexpected payload %v", who, last)
		}
	}
	if _, err := hs.store.GetMessage(context.Background(), "m1"); err == nil {
		t.Error("expected message to be deleted")
	}

	hs.reset()
	hs.send("bob", map[string]any{"type": "delete-message", "messageId": "m1"})
	expectError(t, hs.conn("bob"), "delete-message", "not found")
}

func TestAddMessageAfterConcurrentRemoval(t *testing.T) {
	hs := newHarness(t)
	hs.user("alice")
	hs.user("bob")
	hs.group("g1", "alice", false, "bob")
	hs.handlers.Store = &removingStore{SQLStore: hs.store, chatID: "g1", userID: "bob"}

	hs.send("bob", map[string]any{"type": "add-message", "chatId": "g1", "messageId": "m1", "content": "too late"})

	expectTypes(t, "alice", hs.conn("alice"))
	expectTypes(t, "bob", hs.conn("bob"))
	if _, err := hs.store.GetMessage(context.Background(), "m1"); err == nil {
		t.Error("message stored after its author was removed")
	}
}
