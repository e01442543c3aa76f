package protocol

import "github.com/ChromeUniverse/luccachat/internal/models"

// AuthAck answers an auth frame. On failure the connection is closed right
// after it is sent.
type AuthAck struct {
	Type  Kind   `json:"type"`
	Error bool   `json:"error"`
	Msg   string `json:"msg,omitempty"`
}

func NewAuthAck(msg string) AuthAck {
	return AuthAck{Type: KindAuth, Error: msg != "", Msg: msg}
}

// ErrorReply is sent back to the actor when a command fails validation or
// references something that does not exist. Errors is keyed by wire field.
type ErrorReply struct {
	Type   Kind              `json:"type"`
	Error  bool              `json:"error"`
	Msg    string            `json:"msg"`
	Errors map[string]string `json:"errors,omitempty"`
}

func NewErrorReply(kind Kind, msg string, fields map[string]string) ErrorReply {
	return ErrorReply{Type: kind, Error: true, Msg: msg, Errors: fields}
}

type MessageAdded struct {
	Type    Kind            `json:"type"`
	Message *models.Message `json:"message"`
}

func NewMessageAdded(m *models.Message) MessageAdded {
	return MessageAdded{Type: KindAddMessage, Message: m}
}

type MessageDeleted struct {
	Type      Kind   `json:"type"`
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

func NewMessageDeleted(chatID, messageID string) MessageDeleted {
	return MessageDeleted{Type: KindDeleteMessage, ChatID: chatID, MessageID: messageID}
}

// ChatSnapshot carries a whole chat; used for create-group and join-group acks.
type ChatSnapshot struct {
	Type     Kind             `json:"type"`
	Error    bool             `json:"error"`
	Chat     *models.Chat     `json:"chat"`
	Messages []models.Message `json:"messages,omitempty"`
}

func NewGroupCreated(c *models.Chat) ChatSnapshot {
	return ChatSnapshot{Type: KindCreateGroup, Chat: c}
}

func NewGroupJoined(c *models.Chat, messages []models.Message) ChatSnapshot {
	return ChatSnapshot{Type: KindJoinGroup, Chat: c, Messages: messages}
}

type GroupUpdated struct {
	Type        Kind   `json:"type"`
	GroupID     string `json:"groupId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
}

func NewGroupUpdated(c *models.Chat) GroupUpdated {
	return GroupUpdated{
		Type:        KindUpdateGroup,
		GroupID:     c.ID,
		Name:        c.Name,
		Description: c.Description,
		IsPublic:    c.IsPublic,
	}
}

// GroupDeleted tells the recipient the chat is gone for them, either because
// it was deleted or because they were removed from it.
type GroupDeleted struct {
	Type    Kind   `json:"type"`
	GroupID string `json:"groupId"`
}

func NewGroupDeleted(groupID string) GroupDeleted {
	return GroupDeleted{Type: KindDeleteGroup, GroupID: groupID}
}

type MemberRemoved struct {
	Type     Kind   `json:"type"`
	GroupID  string `json:"groupId"`
	MemberID string `json:"memberId"`
}

func NewMemberRemoved(groupID, memberID string) MemberRemoved {
	return MemberRemoved{Type: KindRemoveMember, GroupID: groupID, MemberID: memberID}
}

type MemberAdded struct {
	Type    Kind         `json:"type"`
	GroupID string       `json:"groupId"`
	Member  *models.User `json:"member"`
}

func NewMemberAdded(groupID string, member *models.User) MemberAdded {
	return MemberAdded{Type: KindAddMember, GroupID: groupID, Member: member}
}

type InviteRegenerated struct {
	Type       Kind   `json:"type"`
	GroupID    string `json:"groupId"`
	InviteCode string `json:"inviteCode"`
}

func NewInviteRegenerated(groupID, code string) InviteRegenerated {
	return InviteRegenerated{Type: KindRegenInvite, GroupID: groupID, InviteCode: code}
}

type UserChanged struct {
	Type  Kind         `json:"type"`
	Error bool         `json:"error"`
	User  *models.User `json:"user"`
}

// NewSettingsUpdated acknowledges the actor's own settings change.
func NewSettingsUpdated(u *models.User) UserChanged {
	return UserChanged{Type: KindUpdateUserSettings, User: u}
}

// NewUserInfo propagates a user's new profile to their contacts.
func NewUserInfo(u *models.User) UserChanged {
	return UserChanged{Type: KindUpdateUserInfo, User: u}
}

type RequestChanged struct {
	Type    Kind            `json:"type"`
	Error   bool            `json:"error"`
	Request *models.Request `json:"request"`
}

func NewRequestSent(r *models.Request) RequestChanged {
	return RequestChanged{Type: KindSendRequest, Request: r}
}

func NewRequestReceived(r *models.Request) RequestChanged {
	return RequestChanged{Type: KindAddRequest, Request: r}
}

// RequestRemoved reports a resolved request; Chat is the new DM on accept.
type RequestRemoved struct {
	Type      Kind          `json:"type"`
	RequestID string        `json:"requestId"`
	Action    RequestAction `json:"action"`
	Chat      *models.Chat  `json:"chat,omitempty"`
}

func NewRequestRemoved(requestID string, action RequestAction, dm *models.Chat) RequestRemoved {
	return RequestRemoved{Type: KindRemoveRequest, RequestID: requestID, Action: action, Chat: dm}
}
