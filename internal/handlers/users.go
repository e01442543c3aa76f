package handlers

import (
	"context"

	"github.com/ChromeUniverse/luccachat/internal/protocol"
)

const handleTaken = "handle is already taken"

// UpdateUserSettings changes the actor's profile and pushes the new profile to
// everyone sharing a chat with them.
func (h *Handlers) UpdateUserSettings(ctx context.Context, actor string, cmd *protocol.UpdateUserSettings) error {
	if cmd.UserID != actor {
		return deny(actor, cmd.Kind(), cmd.UserID, "settings of another user")
	}
	user, err := h.Store.GetUserByID(ctx, actor)
	if err != nil {
		return err
	}

	name, handle, accent := clean(cmd.Name), clean(cmd.Handle), clean(cmd.AccentColor)
	errs := validateSettings(name, handle, accent)
	if _, bad := errs["handle"]; !bad && handle != user.Handle {
		other, err := h.Store.GetUserByHandle(ctx, handle)
		switch {
		case err == nil && other.ID != actor:
			errs.add("handle", handleTaken)
		case err != nil && !isNotFound(err):
			return err
		}
	}
	if errs != nil {
		return invalid(errs)
	}

	user.Name, user.Handle, user.AccentColor = name, handle, accent
	if err := h.Store.UpdateUser(ctx, user); err != nil {
		if isConflict(err) {
			return invalid(fieldErrors{"handle": handleTaken})
		}
		return err
	}
	contacts, err := h.Store.ContactIDs(ctx, actor)
	if err != nil {
		return err
	}

	h.Out.Send(protocol.NewSettingsUpdated(user), actor)
	h.Out.Broadcast(protocol.NewUserInfo(user), contacts)
	return nil
}
