package store

import (
	"context"

	"github.com/ChromeUniverse/luccachat/internal/models"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
	// ErrNotMember is returned when a write requires chat membership the
	// author no longer has.
	ErrNotMember = errors.New("not a member")
)

// Store is the persistent state behind the real-time core. Every mutating
// method is applied as a single transaction.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByHandle(ctx context.Context, handle string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	// ContactIDs lists every user sharing at least one chat with userID.
	ContactIDs(ctx context.Context, userID string) ([]string, error)

	// Chat operations
	CreateGroup(ctx context.Context, chat *models.Chat) error
	GetChat(ctx context.Context, id string) (*models.Chat, error)
	GetChatByInviteCode(ctx context.Context, code string) (*models.Chat, error)
	UpdateGroup(ctx context.Context, id, name, description string, isPublic bool) error
	SetInviteCode(ctx context.Context, id, code string) error
	DeleteChat(ctx context.Context, id string) error
	AddMember(ctx context.Context, chatID, userID string) error
	RemoveMember(ctx context.Context, chatID, userID string) error
	IsMember(ctx context.Context, chatID, userID string) (bool, error)
	FindDM(ctx context.Context, userA, userB string) (*models.Chat, error)

	// Message operations
	// SaveMessage inserts msg and bumps the chat's latest timestamp. It
	// reports false without error when a message with the same id exists,
	// and fails with ErrNotMember when the author is not in the chat.
	SaveMessage(ctx context.Context, msg *models.Message) (bool, error)
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	GetChatMessages(ctx context.Context, chatID string) ([]models.Message, error)

	// Request operations
	// CreateRequest fails with ErrConflict when any request between the two
	// users is pending, in either direction.
	CreateRequest(ctx context.Context, req *models.Request) error
	GetRequest(ctx context.Context, id string) (*models.Request, error)
	FindRequest(ctx context.Context, senderID, receiverID string) (*models.Request, error)
	DeleteRequest(ctx context.Context, id string) error
	// AcceptRequest deletes the request and creates dm in one transaction.
	// It fails with ErrConflict when the two users already share a DM.
	AcceptRequest(ctx context.Context, requestID string, dm *models.Chat) error
}
