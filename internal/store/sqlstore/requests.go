package sqlstore

import (
	"context"

	"github.com/ChromeUniverse/luccachat/internal/models"
	"github.com/ChromeUniverse/luccachat/internal/store"
	"github.com/pkg/errors"
)

func (s *SQLStore) CreateRequest(ctx context.Context, req *models.Request) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = models.Now()
	}
	query := s.rebind("INSERT INTO requests (id, sender_id, receiver_id, pair_key, created_at) VALUES (?, ?, ?, ?, ?)")
	_, err := s.db.ExecContext(ctx, query, req.ID, req.SenderID, req.ReceiverID, pairKey(req.SenderID, req.ReceiverID), req.CreatedAt)
	return errors.Wrapf(translate(err), "create request %s", req.ID)
}

// pairKey names the unordered pair of users, so A->B and B->A collide.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

func (s *SQLStore) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	return s.getRequest(ctx, "id = ?", id)
}

func (s *SQLStore) FindRequest(ctx context.Context, senderID, receiverID string) (*models.Request, error) {
	return s.getRequest(ctx, "sender_id = ? AND receiver_id = ?", senderID, receiverID)
}

func (s *SQLStore) getRequest(ctx context.Context, where string, args ...any) (*models.Request, error) {
	var r models.Request
	query := s.rebind("SELECT id, sender_id, receiver_id, created_at FROM requests WHERE " + where)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&r.ID, &r.SenderID, &r.ReceiverID, &r.CreatedAt)
	if err != nil {
		return nil, errors.Wrapf(translate(err), "get request %v", args)
	}
	if r.Sender, err = s.GetUserByID(ctx, r.SenderID); err != nil {
		return nil, err
	}
	if r.Receiver, err = s.GetUserByID(ctx, r.ReceiverID); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLStore) DeleteRequest(ctx context.Context, id string) error {
	return s.deleteRequest(ctx, s.db, id)
}

func (s *SQLStore) deleteRequest(ctx context.Context, q querier, id string) error {
	res, err := q.ExecContext(ctx, s.rebind("DELETE FROM requests WHERE id = ?"), id)
	if err != nil {
		return errors.Wrapf(err, "delete request %s", id)
	}
	return affectedOne(res, "request", id)
}

func (s *SQLStore) AcceptRequest(ctx context.Context, requestID string, dm *models.Chat) error {
	req, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	dm.Kind = models.ChatDM
	dm.Name, dm.Description, dm.InviteCode, dm.CreatorID = "", "", "", ""
	dm.IsPublic = false
	if dm.CreatedAt.IsZero() {
		dm.CreatedAt = models.Now()
	}
	if dm.Latest.IsZero() {
		dm.Latest = dm.CreatedAt
	}
	err = s.withTx(ctx, func(q querier) error {
		if err := s.deleteRequest(ctx, q, requestID); err != nil {
			return err
		}
		// Clears a reverse request left from before pair keys were enforced.
		query := s.rebind("DELETE FROM requests WHERE sender_id = ? AND receiver_id = ?")
		if _, err := q.ExecContext(ctx, query, req.ReceiverID, req.SenderID); err != nil {
			return errors.Wrapf(err, "delete reverse of %s", requestID)
		}
		existing, err := s.findDMID(ctx, q, req.SenderID, req.ReceiverID)
		switch {
		case err == nil:
			return errors.Wrapf(store.ErrConflict, "dm %s already exists", existing)
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		return s.insertChat(ctx, q, dm, req.SenderID, req.ReceiverID)
	})
	if err != nil {
		return err
	}
	dm.Members = []models.User{*req.Sender, *req.Receiver}
	return nil
}
