// Package protocol defines the JSON frames exchanged over a chat connection.
// Every frame carries a "type" discriminator; inbound frames are parsed into
// one concrete Command variant before any handler sees them.
package protocol

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindAuth               Kind = "auth"
	KindAddMessage         Kind = "add-message"
	KindDeleteMessage      Kind = "delete-message"
	KindCreateGroup        Kind = "create-group"
	KindUpdateGroup        Kind = "update-group"
	KindDeleteGroup        Kind = "delete-group"
	KindRemoveMember       Kind = "remove-member"
	KindJoinGroup          Kind = "join-group"
	KindRegenInvite        Kind = "regen-invite"
	KindUpdateUserSettings Kind = "update-user-settings"
	KindSendRequest        Kind = "send-request"
	KindRemoveRequest      Kind = "remove-request"

	// Server-originated only.
	KindAddMember      Kind = "add-member"
	KindUpdateUserInfo Kind = "update-user-info"
	KindAddRequest     Kind = "add-request"
)

// ErrMalformed is returned for frames that are not a recognized command.
var ErrMalformed = errors.New("malformed envelope")

// Command is the closed set of inbound frames.
type Command interface {
	Kind() Kind
	validate() error
}

type Auth struct {
	Token string `json:"token"`
}

type AddMessage struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId,omitempty"`
	Content   string `json:"content"`
}

type DeleteMessage struct {
	MessageID string `json:"messageId"`
}

type CreateGroup struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
}

type UpdateGroup struct {
	GroupID     string `json:"groupId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
}

type DeleteGroup struct {
	GroupID string `json:"groupId"`
}

type RemoveMember struct {
	GroupID  string `json:"groupId"`
	MemberID string `json:"memberId"`
}

// JoinGroup targets a group by id, by invite code, or both.
type JoinGroup struct {
	GroupID    string `json:"groupId,omitempty"`
	InviteCode string `json:"inviteCode,omitempty"`
}

type RegenInvite struct {
	GroupID string `json:"groupId"`
}

type UpdateUserSettings struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	Handle      string `json:"handle"`
	AccentColor string `json:"accentColor"`
}

// SendRequest targets a user by id or, failing that, by handle.
type SendRequest struct {
	UserID string `json:"userId,omitempty"`
	Handle string `json:"handle,omitempty"`
}

type RequestAction string

const (
	ActionAccept RequestAction = "accept"
	ActionReject RequestAction = "reject"
)

type RemoveRequest struct {
	RequestID string        `json:"requestId"`
	Action    RequestAction `json:"action"`
}

func (*Auth) Kind() Kind               { return KindAuth }
func (*AddMessage) Kind() Kind         { return KindAddMessage }
func (*DeleteMessage) Kind() Kind      { return KindDeleteMessage }
func (*CreateGroup) Kind() Kind        { return KindCreateGroup }
func (*UpdateGroup) Kind() Kind        { return KindUpdateGroup }
func (*DeleteGroup) Kind() Kind        { return KindDeleteGroup }
func (*RemoveMember) Kind() Kind       { return KindRemoveMember }
func (*JoinGroup) Kind() Kind          { return KindJoinGroup }
func (*RegenInvite) Kind() Kind        { return KindRegenInvite }
func (*UpdateUserSettings) Kind() Kind { return KindUpdateUserSettings }
func (*SendRequest) Kind() Kind        { return KindSendRequest }
func (*RemoveRequest) Kind() Kind      { return KindRemoveRequest }

func (c *Auth) validate() error          { return require("token", c.Token) }
func (c *AddMessage) validate() error    { return require("chatId", c.ChatID) }
func (c *DeleteMessage) validate() error { return require("messageId", c.MessageID) }
func (c *CreateGroup) validate() error   { return nil }
func (c *UpdateGroup) validate() error   { return require("groupId", c.GroupID) }
func (c *DeleteGroup) validate() error   { return require("groupId", c.GroupID) }
func (c *RegenInvite) validate() error   { return require("groupId", c.GroupID) }

func (c *UpdateUserSettings) validate() error { return require("userId", c.UserID) }

func (c *RemoveMember) validate() error {
	if err := require("groupId", c.GroupID); err != nil {
		return err
	}
	return require("memberId", c.MemberID)
}

func (c *JoinGroup) validate() error {
	if strings.TrimSpace(c.GroupID) == "" && strings.TrimSpace(c.InviteCode) == "" {
		return errors.Wrap(ErrMalformed, "groupId or inviteCode required")
	}
	return nil
}

func (c *SendRequest) validate() error {
	if strings.TrimSpace(c.UserID) == "" && strings.TrimSpace(c.Handle) == "" {
		return errors.Wrap(ErrMalformed, "userId or handle required")
	}
	return nil
}

func (c *RemoveRequest) validate() error {
	if err := require("requestId", c.RequestID); err != nil {
		return err
	}
	if c.Action != ActionAccept && c.Action != ActionReject {
		return errors.Wrapf(ErrMalformed, "unknown action %q", c.Action)
	}
	return nil
}

func require(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.Wrapf(ErrMalformed, "%s required", field)
	}
	return nil
}

// Parse decodes raw into its Command variant. Unknown kinds and frames
// missing required identifiers yield ErrMalformed.
func Parse(raw []byte) (Command, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}

	var cmd Command
	switch head.Type {
	case KindAuth:
		cmd = &Auth{}
	case KindAddMessage:
		cmd = &AddMessage{}
	case KindDeleteMessage:
		cmd = &DeleteMessage{}
	case KindCreateGroup:
		cmd = &CreateGroup{}
	case KindUpdateGroup:
		cmd = &UpdateGroup{}
	case KindDeleteGroup:
		cmd = &DeleteGroup{}
	case KindRemoveMember:
		cmd = &RemoveMember{}
	case KindJoinGroup:
		cmd = &JoinGroup{}
	case KindRegenInvite:
		cmd = &RegenInvite{}
	case KindUpdateUserSettings:
		cmd = &UpdateUserSettings{}
	case KindSendRequest:
		cmd = &SendRequest{}
	case KindRemoveRequest:
		cmd = &RemoveRequest{}
	default:
		return nil, errors.Wrapf(ErrMalformed, "unknown type %q", head.Type)
	}

	if err := json.Unmarshal(raw, cmd); err != nil {
		return nil, errors.Wrapf(ErrMalformed, "%s: %v", head.Type, err)
	}
	if err := cmd.validate(); err != nil {
		return nil, errors.WithMessage(err, string(head.Type))
	}
	return cmd, nil
}
