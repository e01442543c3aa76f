package protocol

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ChromeUniverse/luccachat/internal/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Command
	}{
		{
			name: "Add Message",
			raw:  `{"type":"add-message","chatId":"c1","content":"hi","messageId":"m1"}`,
			want: &AddMessage{ChatID: "c1", Content: "hi", MessageID: "m1"},
		},
		{
			name: "Update Group",
			raw:  `{"type":"update-group","groupId":"g1","name":"n","description":"d","isPublic":true}`,
			want: &UpdateGroup{GroupID: "g1", Name: "n", Description: "d", IsPublic: true},
		},
		{
			name: "Join By Invite Code",
			raw:  `{"type":"join-group","inviteCode":"abc"}`,
			want: &JoinGroup{InviteCode: "abc"},
		},
		{
			name: "Accept Request",
			raw:  `{"type":"remove-request","requestId":"r1","action":"accept"}`,
			want: &RemoveRequest{RequestID: "r1", Action: ActionAccept},
		},
		{
			name: "Send Request By Handle",
			raw:  `{"type":"send-request","handle":"bob"}`,
			want: &SendRequest{Handle: "bob"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "Not JSON", raw: `hello`},
		{name: "Unknown Type", raw: `{"type":"launch-rockets"}`},
		{name: "Missing Type", raw: `{"chatId":"c1"}`},
		{name: "Server Only Type", raw: `{"type":"add-member","groupId":"g1"}`},
		{name: "Missing Chat Id", raw: `{"type":"add-message","content":"hi"}`},
		{name: "Wrong Field Type", raw: `{"type":"update-group","groupId":"g1","isPublic":"yes"}`},
		{name: "Remove Member Without Member", raw: `{"type":"remove-member","groupId":"g1"}`},
		{name: "Join Without Target", raw: `{"type":"join-group"}`},
		{name: "Unknown Request Action", raw: `{"type":"remove-request","requestId":"r1","action":"ignore"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestEventDatesRoundTrip(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 30, 0, 123000000, time.UTC)
	event := NewMessageAdded(&models.Message{ID: "m1", ChatID: "c1", AuthorID: "u1", Content: "hi", CreatedAt: created})

	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var wire map[string]map[string]any
	json.Unmarshal(raw, &wire)
	if got := wire["message"]["createdAt"]; got != "2024-05-01T10:30:00.123Z" {
		t.Errorf("Expected ISO-8601 createdAt, got %v", got)
	}

	var decoded MessageAdded
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !decoded.Message.CreatedAt.Equal(created) {
		t.Errorf("Expected %v, got %v", created, decoded.Message.CreatedAt)
	}
}

func TestErrorReplyShape(t *testing.T) {
	raw, _ := json.Marshal(NewErrorReply(KindUpdateGroup, "invalid fields", map[string]string{"name": "name is required"}))
	want := `{"type":"update-group","error":true,"msg":"invalid fields","errors":{"name":"name is required"}}`
	if string(raw) != want {
		t.Errorf("Expected %s, got %s", want, raw)
	}
}
