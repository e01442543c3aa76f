// Package handlers applies authenticated chat commands to the store and fans
// the resulting deltas out to connected members.
package handlers

import (
	"context"
	"strings"

	"github.com/ChromeUniverse/luccachat/internal/models"
	"github.com/ChromeUniverse/luccachat/internal/protocol"
	"github.com/ChromeUniverse/luccachat/internal/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Publisher delivers events to whichever of the given users are online.
type Publisher interface {
	Broadcast(event any, userIDs []string) int
	Send(event any, userID string) bool
}

// Handlers holds one method per mutating command. Every method receives the
// actor already resolved from the connection registry.
type Handlers struct {
	Store store.Store
	Out   Publisher
	Log   *zap.Logger

	newID         func() string
	newInviteCode func() string
}

func New(s store.Store, out Publisher, log *zap.Logger) *Handlers {
	return &Handlers{
		Store:         s,
		Out:           out,
		Log:           log.Named("handlers"),
		newID:         uuid.NewString,
		newInviteCode: newInviteCode,
	}
}

func newInviteCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// memberOf returns the member entry for userID, if present.
func memberOf(chat *models.Chat, userID string) *models.User {
	for i := range chat.Members {
		if chat.Members[i].ID == userID {
			return &chat.Members[i]
		}
	}
	return nil
}

func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }

func isConflict(err error) bool { return errors.Is(err, store.ErrConflict) }

// loadGroup fetches a GROUP chat; DMs are never addressable by group commands.
func (h *Handlers) loadGroup(ctx context.Context, actor string, kind protocol.Kind, groupID string) (*models.Chat, error) {
	chat, err := h.Store.GetChat(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroup() {
		return nil, deny(actor, kind, chat.ID, "not a group")
	}
	return chat, nil
}

// ownedGroup is loadGroup restricted to the group's creator.
func (h *Handlers) ownedGroup(ctx context.Context, actor string, kind protocol.Kind, groupID string) (*models.Chat, error) {
	chat, err := h.loadGroup(ctx, actor, kind, groupID)
	if err != nil {
		return nil, err
	}
	if chat.CreatorID != actor {
		return nil, deny(actor, kind, chat.ID, "not the creator")
	}
	return chat, nil
}

func notFound(format string, args ...any) error {
	return errors.Wrapf(store.ErrNotFound, format, args...)
}
