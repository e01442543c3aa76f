package sqlstore

import (
	"context"

	"github.com/ChromeUniverse/luccachat/internal/models"
	"github.com/pkg/errors"
)

const userColumns = "u.id, u.name, u.handle, u.accent_color, COALESCE(u.auth_provider, ''), COALESCE(u.auth_subject, ''), u.created_at"

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Handle, &u.AccentColor, &u.AuthProvider, &u.AuthSubject, &u.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = models.Now()
	}
	if user.AccentColor == "" {
		user.AccentColor = "blue"
	}
	query := s.rebind("INSERT INTO users (id, name, handle, accent_color, auth_provider, auth_subject, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)")
	_, err := s.db.ExecContext(ctx, query, user.ID, user.Name, user.Handle, user.AccentColor,
		nullable(user.AuthProvider), nullable(user.AuthSubject), user.CreatedAt)
	return errors.Wrapf(translate(err), "create user %s", user.ID)
}

func (s *SQLStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, s.db, "u.id = ?", id)
}

func (s *SQLStore) GetUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	return s.getUser(ctx, s.db, "u.handle = ?", handle)
}

func (s *SQLStore) getUser(ctx context.Context, q querier, where string, arg any) (*models.User, error) {
	query := s.rebind("SELECT " + userColumns + " FROM users u WHERE " + where)
	u, err := scanUser(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, errors.Wrapf(err, "get user %v", arg)
	}
	return u, nil
}

func (s *SQLStore) UpdateUser(ctx context.Context, user *models.User) error {
	query := s.rebind("UPDATE users SET name = ?, handle = ?, accent_color = ? WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, user.Name, user.Handle, user.AccentColor, user.ID)
	if err != nil {
		return errors.Wrapf(translate(err), "update user %s", user.ID)
	}
	return affectedOne(res, "user", user.ID)
}

func (s *SQLStore) ContactIDs(ctx context.Context, userID string) ([]string, error) {
	query := s.rebind(`
		SELECT DISTINCT other.user_id
		FROM members mine
		JOIN members other ON mine.chat_id = other.chat_id
		WHERE mine.user_id = ? AND other.user_id <> ?
	`)
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "contacts of %s", userID)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan contact")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "iterate contacts")
}
