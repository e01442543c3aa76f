package sqlstore

import (
	"context"

	"github.com/ChromeUniverse/luccachat/internal/models"
	"github.com/ChromeUniverse/luccachat/internal/store"
	"github.com/pkg/errors"
)

func (s *SQLStore) SaveMessage(ctx context.Context, msg *models.Message) (bool, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = models.Now()
	}
	created := false
	err := s.withTx(ctx, func(q querier) error {
		// The membership row stays locked until commit, so a concurrent
		// removal cannot land between the check and the insert.
		var member int
		check := s.rebind("SELECT 1 FROM members WHERE chat_id = ? AND user_id = ?" + s.lockShared())
		if err := q.QueryRowContext(ctx, check, msg.ChatID, msg.AuthorID).Scan(&member); err != nil {
			if errors.Is(translate(err), store.ErrNotFound) {
				return errors.Wrapf(store.ErrNotMember, "%s in %s", msg.AuthorID, msg.ChatID)
			}
			return errors.Wrap(err, "check membership")
		}

		query := s.rebind("INSERT INTO messages (id, chat_id, author_id, content, created_at) VALUES (?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING")
		res, err := q.ExecContext(ctx, query, msg.ID, msg.ChatID, msg.AuthorID, msg.Content, msg.CreatedAt)
		if err != nil {
			return errors.Wrapf(translate(err), "insert message %s", msg.ID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "rows affected")
		}
		if n == 0 {
			return nil
		}
		res, err = q.ExecContext(ctx, s.rebind("UPDATE chats SET latest = ? WHERE id = ?"), msg.CreatedAt, msg.ChatID)
		if err != nil {
			return errors.Wrapf(err, "bump latest of %s", msg.ChatID)
		}
		if err := affectedOne(res, "chat", msg.ChatID); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (s *SQLStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	query := s.rebind(`
		SELECT m.id, m.chat_id, m.author_id, m.content, m.created_at, ` + userColumns + `
		FROM messages m
		JOIN users u ON m.author_id = u.id
		WHERE m.id = ?
	`)
	m, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, errors.Wrapf(err, "get message %s", id)
	}
	return m, nil
}

func scanMessage(row scanner) (*models.Message, error) {
	var (
		m models.Message
		u models.User
	)
	err := row.Scan(&m.ID, &m.ChatID, &m.AuthorID, &m.Content, &m.CreatedAt,
		&u.ID, &u.Name, &u.Handle, &u.AccentColor, &u.AuthProvider, &u.AuthSubject, &u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	m.Author = &u
	return &m, nil
}

func (s *SQLStore) DeleteMessage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM messages WHERE id = ?"), id)
	if err != nil {
		return errors.Wrapf(err, "delete message %s", id)
	}
	return affectedOne(res, "message", id)
}

func (s *SQLStore) GetChatMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	query := s.rebind(`
		SELECT m.id, m.chat_id, m.author_id, m.content, m.created_at, ` + userColumns + `
		FROM messages m
		JOIN users u ON m.author_id = u.id
		WHERE m.chat_id = ?
		ORDER BY m.created_at ASC
	`)
	rows, err := s.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, errors.Wrapf(err, "messages of %s", chatID)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		messages = append(messages, *m)
	}
	return messages, errors.Wrap(rows.Err(), "iterate messages")
}
