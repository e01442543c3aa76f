package models

import "time"

type ChatKind string

const (
	ChatDM    ChatKind = "DM"
	ChatGroup ChatKind = "GROUP"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Handle       string    `json:"handle"`
	AccentColor  string    `json:"accentColor"`
	AuthProvider string    `json:"-"`
	AuthSubject  string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Chat is either a DM between two users or a creator-owned group.
// Name, Description, InviteCode and CreatorID are empty for DMs.
type Chat struct {
	ID          string    `json:"id"`
	Kind        ChatKind  `json:"type"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	IsPublic    bool      `json:"isPublic"`
	InviteCode  string    `json:"inviteCode,omitempty"`
	CreatorID   string    `json:"creatorId,omitempty"`
	Latest      time.Time `json:"latest"`
	CreatedAt   time.Time `json:"createdAt"`
	Members     []User    `json:"members"`
}

func (c *Chat) IsGroup() bool { return c.Kind == ChatGroup }

// HasMember reports whether userID is in the loaded member set.
func (c *Chat) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

func (c *Chat) MemberIDs() []string {
	ids := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	AuthorID  string    `json:"authorId"`
	Author    *User     `json:"author,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Request is a pending friend request.
type Request struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Sender     *User     `json:"sender,omitempty"`
	Receiver   *User     `json:"receiver,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Now returns the current time in the precision and zone persisted timestamps use.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
