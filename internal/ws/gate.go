package ws

import (
	"context"

	"github.com/ChromeUniverse/luccachat/internal/auth"
	"github.com/ChromeUniverse/luccachat/internal/protocol"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Verifier decodes a bearer credential into a user id.
type Verifier interface {
	Verify(token string) (string, error)
}

// Presence records which users currently hold a live connection.
type Presence interface {
	Online(ctx context.Context, userID, connID string) error
	Refresh(ctx context.Context, userID, connID string) error
	Offline(ctx context.Context, userID, connID string) error
}

// Gate authenticates connections and binds them in the Registry.
type Gate struct {
	verifier    Verifier
	registry    *Registry
	presence    Presence
	broadcaster *Broadcaster
	log         *zap.Logger
}

func NewGate(verifier Verifier, registry *Registry, presence Presence, broadcaster *Broadcaster, log *zap.Logger) *Gate {
	return &Gate{
		verifier:    verifier,
		registry:    registry,
		presence:    presence,
		broadcaster: broadcaster,
		log:         log.Named("gate"),
	}
}

// Authenticate verifies credential and binds c to its user. A failed attempt
// is acknowledged with error=true and the connection is closed; the client
// has to reconnect to try again.
func (g *Gate) Authenticate(ctx context.Context, c Conn, credential string) error {
	userID, err := g.verifier.Verify(credential)
	if err != nil {
		msg := "invalid credential"
		if errors.Is(err, auth.ErrExpired) {
			msg = "credential expired"
		}
		g.log.Info("authentication failed", zap.String("conn", c.ID()), zap.Error(err))
		g.broadcaster.SendTo(c, protocol.NewAuthAck(msg))
		_ = c.Close()
		return err
	}

	g.registry.Bind(c, userID)
	if err := g.presence.Online(ctx, userID, c.ID()); err != nil {
		g.log.Warn("mark online", zap.String("user", userID), zap.Error(err))
	}
	g.broadcaster.SendTo(c, protocol.NewAuthAck(""))
	g.log.Debug("authenticated", zap.String("conn", c.ID()), zap.String("user", userID))
	return nil
}

// Disconnect unbinds c after its transport closed.
func (g *Gate) Disconnect(ctx context.Context, c Conn) {
	userID, current := g.registry.Unbind(c)
	if userID == "" {
		return
	}
	if current {
		if err := g.presence.Offline(ctx, userID, c.ID()); err != nil {
			g.log.Warn("mark offline", zap.String("user", userID), zap.Error(err))
		}
	}
	g.log.Debug("disconnected", zap.String("conn", c.ID()), zap.String("user", userID), zap.Bool("current", current))
}

// Heartbeat renews presence for c's user, if c is still routable.
func (g *Gate) Heartbeat(ctx context.Context, c Conn) {
	userID, ok := g.registry.IdentityOf(c)
	if !ok {
		return
	}
	if err := g.presence.Refresh(ctx, userID, c.ID()); err != nil {
		g.log.Debug("refresh presence", zap.String("user", userID), zap.Error(err))
	}
}
