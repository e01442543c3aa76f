package handlers

import (
	"context"

	"github.com/ChromeUniverse/luccachat/internal/models"
	"github.com/ChromeUniverse/luccachat/internal/protocol"
)

// CreateGroup makes a group with the actor as creator and sole member.
func (h *Handlers) CreateGroup(ctx context.Context, actor string, cmd *protocol.CreateGroup) error {
	name, description := clean(cmd.Name), clean(cmd.Description)
	if errs := validateGroup(name, description); errs != nil {
		return invalid(errs)
	}

	chat := &models.Chat{
		ID:          h.newID(),
		Kind:        models.ChatGroup,
		Name:        name,
		Description: description,
		IsPublic:    cmd.IsPublic,
		InviteCode:  h.newInviteCode(),
		CreatorID:   actor,
	}
	if err := h.Store.CreateGroup(ctx, chat); err != nil {
		return err
	}
	created, err := h.Store.GetChat(ctx, chat.ID)
	if err != nil {
		return err
	}

	h.Out.Send(protocol.NewGroupCreated(created), actor)
	return nil
}

func (h *Handlers) UpdateGroup(ctx context.Context, actor string, cmd *protocol.UpdateGroup) error {
	chat, err := h.ownedGroup(ctx, actor, cmd.Kind(), cmd.GroupID)
	if err != nil {
		return err
	}
	name, description := clean(cmd.Name), clean(cmd.Description)
	if errs := validateGroup(name, description); errs != nil {
		return invalid(errs)
	}
	if err := h.Store.UpdateGroup(ctx, chat.ID, name, description, cmd.IsPublic); err != nil {
		return err
	}

	chat.Name, chat.Description, chat.IsPublic = name, description, cmd.IsPublic
	h.Out.Broadcast(protocol.NewGroupUpdated(chat), chat.MemberIDs())
	return nil
}

// DeleteGroup removes the group with its members and messages. Everyone who
// was a member, creator included, is told.
func (h *Handlers) DeleteGroup(ctx context.Context, actor string, cmd *protocol.DeleteGroup) error {
	chat, err := h.ownedGroup(ctx, actor, cmd.Kind(), cmd.GroupID)
	if err != nil {
		return err
	}
	recipients := chat.MemberIDs()
	if err := h.Store.DeleteChat(ctx, chat.ID); err != nil {
		return err
	}

	h.Out.Broadcast(protocol.NewGroupDeleted(chat.ID), recipients)
	return nil
}

// RemoveMember kicks a member (creator only) or lets a member leave. The
// creator can never be removed this way.
func (h *Handlers) RemoveMember(ctx context.Context, actor string, cmd *protocol.RemoveMember) error {
	chat, err := h.loadGroup(ctx, actor, cmd.Kind(), cmd.GroupID)
	if err != nil {
		return err
	}
	target := cmd.MemberID
	switch {
	case target == chat.CreatorID:
		return deny(actor, cmd.Kind(), chat.ID, "creator cannot be removed")
	case actor != chat.CreatorID && actor != target:
		return deny(actor, cmd.Kind(), chat.ID, "may only remove self")
	}
	if !chat.HasMember(target) {
		return notFound("member %s of %s", target, chat.ID)
	}

	recipients := chat.MemberIDs()
	if err := h.Store.RemoveMember(ctx, chat.ID, target); err != nil {
		return err
	}

	h.Out.Send(protocol.NewGroupDeleted(chat.ID), target)
	h.Out.Broadcast(protocol.NewMemberRemoved(chat.ID, target), without(recipients, target))
	return nil
}

// JoinGroup adds the actor to a public group, or to any group whose current
// invite code they hold.
func (h *Handlers) JoinGroup(ctx context.Context, actor string, cmd *protocol.JoinGroup) error {
	var (
		chat *models.Chat
		err  error
	)
	if cmd.GroupID != "" {
		chat, err = h.Store.GetChat(ctx, cmd.GroupID)
	} else {
		chat, err = h.Store.GetChatByInviteCode(ctx, cmd.InviteCode)
	}
	if err != nil {
		return err
	}
	if !chat.IsGroup() {
		return deny(actor, cmd.Kind(), chat.ID, "not a group")
	}
	if chat.HasMember(actor) {
		return rejected("already a member")
	}
	if !chat.IsPublic && (cmd.InviteCode == "" || cmd.InviteCode != chat.InviteCode) {
		return deny(actor, cmd.Kind(), chat.ID, "private group without matching invite")
	}

	existing := chat.MemberIDs()
	if err := h.Store.AddMember(ctx, chat.ID, actor); err != nil {
		if isConflict(err) {
			return rejected("already a member")
		}
		return err
	}

	joined, err := h.Store.GetChat(ctx, chat.ID)
	if err != nil {
		return err
	}
	messages, err := h.Store.GetChatMessages(ctx, chat.ID)
	if err != nil {
		return err
	}
	member := memberOf(joined, actor)
	if member == nil {
		return notFound("member %s of %s", actor, chat.ID)
	}

	h.Out.Send(protocol.NewGroupJoined(joined, messages), actor)
	h.Out.Broadcast(protocol.NewMemberAdded(chat.ID, member), existing)
	return nil
}

func (h *Handlers) RegenInvite(ctx context.Context, actor string, cmd *protocol.RegenInvite) error {
	chat, err := h.ownedGroup(ctx, actor, cmd.Kind(), cmd.GroupID)
	if err != nil {
		return err
	}
	code := h.newInviteCode()
	if err := h.Store.SetInviteCode(ctx, chat.ID, code); err != nil {
		return err
	}

	h.Out.Broadcast(protocol.NewInviteRegenerated(chat.ID, code), chat.MemberIDs())
	return nil
}
