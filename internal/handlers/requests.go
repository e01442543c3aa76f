package handlers

import (
	"context"

	"github.com/ChromeUniverse/luccachat/internal/models"
	"github.com/ChromeUniverse/luccachat/internal/protocol"
)

// SendRequest files a friend request to a user picked by id or handle.
func (h *Handlers) SendRequest(ctx context.Context, actor string, cmd *protocol.SendRequest) error {
	field := "userId"
	var (
		target *models.User
		err    error
	)
	if cmd.UserID != "" {
		target, err = h.Store.GetUserByID(ctx, cmd.UserID)
	} else {
		field = "handle"
		target, err = h.Store.GetUserByHandle(ctx, clean(cmd.Handle))
	}
	switch {
	case isNotFound(err):
		return invalid(fieldErrors{field: "user not found"})
	case err != nil:
		return err
	case target.ID == actor:
		return invalid(fieldErrors{field: "you can't send a request to yourself"})
	}

	if err := h.noPendingRequest(ctx, actor, target.ID, field); err != nil {
		return err
	}
	if _, err := h.Store.FindDM(ctx, actor, target.ID); err == nil {
		return invalid(fieldErrors{field: "already friends"})
	} else if !isNotFound(err) {
		return err
	}

	sender, err := h.Store.GetUserByID(ctx, actor)
	if err != nil {
		return err
	}
	req := &models.Request{
		ID:         h.newID(),
		SenderID:   actor,
		ReceiverID: target.ID,
		Sender:     sender,
		Receiver:   target,
		CreatedAt:  models.Now(),
	}
	if err := h.Store.CreateRequest(ctx, req); err != nil {
		if isConflict(err) {
			return invalid(fieldErrors{field: "request already sent"})
		}
		return err
	}

	h.Out.Send(protocol.NewRequestReceived(req), target.ID)
	h.Out.Send(protocol.NewRequestSent(req), actor)
	return nil
}

// noPendingRequest rejects when a request exists in either direction.
func (h *Handlers) noPendingRequest(ctx context.Context, actor, target, field string) error {
	if _, err := h.Store.FindRequest(ctx, actor, target); err == nil {
		return invalid(fieldErrors{field: "request already sent"})
	} else if !isNotFound(err) {
		return err
	}
	if _, err := h.Store.FindRequest(ctx, target, actor); err == nil {
		return invalid(fieldErrors{field: "this user already sent you a request"})
	} else if !isNotFound(err) {
		return err
	}
	return nil
}

// RemoveRequest lets the receiver accept or reject a pending request.
// Accepting turns it into a DM between both users.
func (h *Handlers) RemoveRequest(ctx context.Context, actor string, cmd *protocol.RemoveRequest) error {
	req, err := h.Store.GetRequest(ctx, cmd.RequestID)
	if err != nil {
		return err
	}
	if req.ReceiverID != actor {
		return deny(actor, cmd.Kind(), req.ID, "not the receiver")
	}

	if cmd.Action == protocol.ActionReject {
		if err := h.Store.DeleteRequest(ctx, req.ID); err != nil {
			return err
		}
		h.Out.Send(protocol.NewRequestRemoved(req.ID, cmd.Action, nil), actor)
		return nil
	}

	dm := &models.Chat{ID: h.newID()}
	if err := h.Store.AcceptRequest(ctx, req.ID, dm); err != nil {
		if !isConflict(err) {
			return err
		}
		// Already friends through another request; this one is stale.
		if err := h.Store.DeleteRequest(ctx, req.ID); err != nil && !isNotFound(err) {
			return err
		}
		return rejected("already friends")
	}
	h.Out.Broadcast(protocol.NewRequestRemoved(req.ID, cmd.Action, dm), []string{req.SenderID, req.ReceiverID})
	return nil
}
