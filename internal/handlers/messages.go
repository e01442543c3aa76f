package handlers

import (
	"context"

	"github.com/ChromeUniverse/luccachat/internal/models"
	"github.com/ChromeUniverse/luccachat/internal/protocol"
	"github.com/ChromeUniverse/luccachat/internal/store"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// AddMessage stores a message and delivers it to every member of its chat.
// A client-supplied messageId makes retries idempotent.
func (h *Handlers) AddMessage(ctx context.Context, actor string, cmd *protocol.AddMessage) error {
	chat, err := h.Store.GetChat(ctx, cmd.ChatID)
	if err != nil {
		return err
	}
	author := memberOf(chat, actor)
	if author == nil {
		return deny(actor, cmd.Kind(), chat.ID, "not a member")
	}

	content := clean(cmd.Content)
	if errs := validateContent(content); errs != nil {
		return invalid(errs)
	}

	msg := &models.Message{
		ID:        cmd.MessageID,
		ChatID:    chat.ID,
		AuthorID:  actor,
		Author:    author,
		Content:   content,
		CreatedAt: models.Now(),
	}
	if msg.ID == "" {
		msg.ID = h.newID()
	}
	created, err := h.Store.SaveMessage(ctx, msg)
	if errors.Is(err, store.ErrNotMember) {
		return deny(actor, cmd.Kind(), chat.ID, "removed before the message was stored")
	}
	if err != nil {
		return err
	}
	if !created {
		h.Log.Debug("duplicate message ignored", zap.String("message", msg.ID), zap.String("actor", actor))
		return nil
	}

	h.Out.Broadcast(protocol.NewMessageAdded(msg), chat.MemberIDs())
	return nil
}

// DeleteMessage removes one of the actor's own messages.
func (h *Handlers) DeleteMessage(ctx context.Context, actor string, cmd *protocol.DeleteMessage) error {
	msg, err := h.Store.GetMessage(ctx, cmd.MessageID)
	if err != nil {
		return err
	}
	if msg.AuthorID != actor {
		return deny(actor, cmd.Kind(), msg.ID, "not the author")
	}
	chat, err := h.Store.GetChat(ctx, msg.ChatID)
	if err != nil {
		return err
	}
	if err := h.Store.DeleteMessage(ctx, msg.ID); err != nil {
		return err
	}

	h.Out.Broadcast(protocol.NewMessageDeleted(chat.ID, msg.ID), chat.MemberIDs())
	return nil
}
