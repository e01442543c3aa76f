package sqlstore

import (
	"context"
	"database/sql"

	"github.com/ChromeUniverse/luccachat/internal/models"
	"github.com/pkg/errors"
)

const chatColumns = "c.id, c.kind, c.name, c.description, c.is_public, c.invite_code, c.creator_id, c.latest, c.created_at"

func scanChat(row scanner) (*models.Chat, error) {
	var (
		c                                         models.Chat
		name, description, inviteCode, creatorID sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Kind, &name, &description, &c.IsPublic, &inviteCode, &creatorID, &c.Latest, &c.CreatedAt); err != nil {
		return nil, translate(err)
	}
	c.Name = name.String
	c.Description = description.String
	c.InviteCode = inviteCode.String
	c.CreatorID = creatorID.String
	return &c, nil
}

// insertChat writes the chat row and its initial members.
func (s *SQLStore) insertChat(ctx context.Context, q querier, chat *models.Chat, memberIDs ...string) error {
	query := s.rebind(`INSERT INTO chats (id, kind, name, description, is_public, invite_code, creator_id, latest, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := q.ExecContext(ctx, query, chat.ID, chat.Kind, nullable(chat.Name), nullable(chat.Description),
		chat.IsPublic, nullable(chat.InviteCode), nullable(chat.CreatorID), chat.Latest, chat.CreatedAt)
	if err != nil {
		return errors.Wrapf(translate(err), "insert chat %s", chat.ID)
	}
	for _, id := range memberIDs {
		if err := s.addMember(ctx, q, chat.ID, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) CreateGroup(ctx context.Context, chat *models.Chat) error {
	chat.Kind = models.ChatGroup
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = models.Now()
	}
	if chat.Latest.IsZero() {
		chat.Latest = chat.CreatedAt
	}
	return s.withTx(ctx, func(q querier) error {
		return s.insertChat(ctx, q, chat, chat.CreatorID)
	})
}

func (s *SQLStore) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	return s.getChat(ctx, s.db, "c.id = ?", id)
}

func (s *SQLStore) GetChatByInviteCode(ctx context.Context, code string) (*models.Chat, error) {
	return s.getChat(ctx, s.db, "c.invite_code = ?", code)
}

func (s *SQLStore) getChat(ctx context.Context, q querier, where string, arg any) (*models.Chat, error) {
	query := s.rebind("SELECT " + chatColumns + " FROM chats c WHERE " + where)
	chat, err := scanChat(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, errors.Wrapf(err, "get chat %v", arg)
	}
	members, err := s.chatMembers(ctx, q, chat.ID)
	if err != nil {
		return nil, err
	}
	chat.Members = members
	return chat, nil
}

func (s *SQLStore) chatMembers(ctx context.Context, q querier, chatID string) ([]models.User, error) {
	query := s.rebind(`
		SELECT ` + userColumns + `
		FROM users u
		JOIN members m ON u.id = m.user_id
		WHERE m.chat_id = ?
		ORDER BY u.handle ASC
	`)
	rows, err := q.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, errors.Wrapf(err, "members of %s", chatID)
	}
	defer rows.Close()

	members := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan member")
		}
		members = append(members, *u)
	}
	return members, errors.Wrap(rows.Err(), "iterate members")
}

func (s *SQLStore) UpdateGroup(ctx context.Context, id, name, description string, isPublic bool) error {
	query := s.rebind("UPDATE chats SET name = ?, description = ?, is_public = ? WHERE id = ? AND kind = ?")
	res, err := s.db.ExecContext(ctx, query, name, nullable(description), isPublic, id, models.ChatGroup)
	if err != nil {
		return errors.Wrapf(translate(err), "update group %s", id)
	}
	return affectedOne(res, "group", id)
}

func (s *SQLStore) SetInviteCode(ctx context.Context, id, code string) error {
	query := s.rebind("UPDATE chats SET invite_code = ? WHERE id = ? AND kind = ?")
	res, err := s.db.ExecContext(ctx, query, code, id, models.ChatGroup)
	if err != nil {
		return errors.Wrapf(translate(err), "set invite code %s", id)
	}
	return affectedOne(res, "group", id)
}

func (s *SQLStore) DeleteChat(ctx context.Context, id string) error {
	return s.withTx(ctx, func(q querier) error {
		// Delete messages first (foreign key constraint)
		if _, err := q.ExecContext(ctx, s.rebind("DELETE FROM messages WHERE chat_id = ?"), id); err != nil {
			return errors.Wrapf(err, "delete messages of %s", id)
		}
		if _, err := q.ExecContext(ctx, s.rebind("DELETE FROM members WHERE chat_id = ?"), id); err != nil {
			return errors.Wrapf(err, "delete members of %s", id)
		}
		res, err := q.ExecContext(ctx, s.rebind("DELETE FROM chats WHERE id = ?"), id)
		if err != nil {
			return errors.Wrapf(err, "delete chat %s", id)
		}
		return affectedOne(res, "chat", id)
	})
}

func (s *SQLStore) AddMember(ctx context.Context, chatID, userID string) error {
	return s.addMember(ctx, s.db, chatID, userID)
}

func (s *SQLStore) addMember(ctx context.Context, q querier, chatID, userID string) error {
	query := s.rebind("INSERT INTO members (chat_id, user_id) VALUES (?, ?)")
	_, err := q.ExecContext(ctx, query, chatID, userID)
	return errors.Wrapf(translate(err), "add member %s to %s", userID, chatID)
}

func (s *SQLStore) RemoveMember(ctx context.Context, chatID, userID string) error {
	query := s.rebind("DELETE FROM members WHERE chat_id = ? AND user_id = ?")
	res, err := s.db.ExecContext(ctx, query, chatID, userID)
	if err != nil {
		return errors.Wrapf(err, "remove member %s from %s", userID, chatID)
	}
	return affectedOne(res, "member", userID)
}

func (s *SQLStore) IsMember(ctx context.Context, chatID, userID string) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM members WHERE chat_id = ? AND user_id = ?)")
	err := s.db.QueryRowContext(ctx, query, chatID, userID).Scan(&exists)
	return exists, errors.Wrap(err, "is member")
}

func (s *SQLStore) FindDM(ctx context.Context, userA, userB string) (*models.Chat, error) {
	id, err := s.findDMID(ctx, s.db, userA, userB)
	if err != nil {
		return nil, err
	}
	return s.GetChat(ctx, id)
}

func (s *SQLStore) findDMID(ctx context.Context, q querier, userA, userB string) (string, error) {
	var id string
	query := s.rebind(`
		SELECT c.id
		FROM chats c
		JOIN members a ON a.chat_id = c.id AND a.user_id = ?
		JOIN members b ON b.chat_id = c.id AND b.user_id = ?
		WHERE c.kind = ?
		LIMIT 1
	`)
	if err := q.QueryRowContext(ctx, query, userA, userB, models.ChatDM).Scan(&id); err != nil {
		return "", errors.Wrapf(translate(err), "find dm %s/%s", userA, userB)
	}
	return id, nil
}
