package handlers

import (
	"context"
	"time"

	"github.com/ChromeUniverse/luccachat/internal/protocol"
	"github.com/ChromeUniverse/luccachat/internal/store"
	"github.com/ChromeUniverse/luccachat/internal/ws"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultStoreTimeout = 5 * time.Second

// Authenticator binds a connection to the user named by a credential.
type Authenticator interface {
	Authenticate(ctx context.Context, c ws.Conn, credential string) error
}

// Identities resolves the user bound to a connection.
type Identities interface {
	IdentityOf(c ws.Conn) (string, bool)
}

// Replier sends a frame to a single connection.
type Replier interface {
	SendTo(c ws.Conn, event any) bool
}

type handlerFunc func(ctx context.Context, actor string, cmd protocol.Command) error

func route[C protocol.Command](fn func(context.Context, string, C) error) handlerFunc {
	return func(ctx context.Context, actor string, cmd protocol.Command) error {
		return fn(ctx, actor, cmd.(C))
	}
}

// Dispatcher turns raw frames into handler calls and handler results into
// replies. It implements ws.Handler.
type Dispatcher struct {
	gate       Authenticator
	identities Identities
	reply      Replier
	timeout    time.Duration
	log        *zap.Logger
	routes     map[protocol.Kind]handlerFunc
}

var _ ws.Handler = (*Dispatcher)(nil)

func NewDispatcher(h *Handlers, gate Authenticator, identities Identities, reply Replier, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &Dispatcher{
		gate:       gate,
		identities: identities,
		reply:      reply,
		timeout:    timeout,
		log:        log.Named("dispatch"),
		routes: map[protocol.Kind]handlerFunc{
			protocol.KindAddMessage:         route(h.AddMessage),
			protocol.KindDeleteMessage:      route(h.DeleteMessage),
			protocol.KindCreateGroup:        route(h.CreateGroup),
			protocol.KindUpdateGroup:        route(h.UpdateGroup),
			protocol.KindDeleteGroup:        route(h.DeleteGroup),
			protocol.KindRemoveMember:       route(h.RemoveMember),
			protocol.KindJoinGroup:          route(h.JoinGroup),
			protocol.KindRegenInvite:        route(h.RegenInvite),
			protocol.KindUpdateUserSettings: route(h.UpdateUserSettings),
			protocol.KindSendRequest:        route(h.SendRequest),
			protocol.KindRemoveRequest:      route(h.RemoveRequest),
		},
	}
}

// Dispatch handles one inbound frame from c. Frames of one connection are
// dispatched in arrival order by its read loop.
func (d *Dispatcher) Dispatch(ctx context.Context, c ws.Conn, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("handler panic", zap.String("conn", c.ID()), zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	cmd, err := protocol.Parse(raw)
	if err != nil {
		d.log.Warn("discarding frame", zap.String("conn", c.ID()), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if a, ok := cmd.(*protocol.Auth); ok {
		_ = d.gate.Authenticate(ctx, c, a.Token)
		return
	}

	actor, ok := d.identities.IdentityOf(c)
	if !ok {
		d.log.Warn("protocol violation: command before authentication",
			zap.String("conn", c.ID()), zap.String("type", string(cmd.Kind())))
		_ = c.Close()
		return
	}

	fn, ok := d.routes[cmd.Kind()]
	if !ok {
		d.log.Warn("no handler", zap.String("type", string(cmd.Kind())))
		return
	}
	d.settle(c, actor, cmd.Kind(), fn(ctx, actor, cmd))
}

// settle reports a handler result back to the actor or the log.
func (d *Dispatcher) settle(c ws.Conn, actor string, kind protocol.Kind, err error) {
	if err == nil {
		return
	}
	var (
		verr *ValidationError
		aerr *AuthorizationError
	)
	switch {
	case errors.As(err, &verr):
		d.log.Debug("rejected", zap.String("actor", actor), zap.String("type", string(kind)), zap.Error(err))
		d.reply.SendTo(c, protocol.NewErrorReply(kind, verr.Msg, verr.Fields))
	case errors.As(err, &aerr):
		d.log.Warn("protocol violation",
			zap.String("actor", aerr.Actor),
			zap.String("type", string(aerr.Kind)),
			zap.String("entity", aerr.Entity),
			zap.String("reason", aerr.Reason))
	case errors.Is(err, store.ErrNotFound):
		d.log.Debug("not found", zap.String("actor", actor), zap.String("type", string(kind)), zap.Error(err))
		d.reply.SendTo(c, protocol.NewErrorReply(kind, "not found", nil))
	default:
		d.log.Error("command failed", zap.String("actor", actor), zap.String("type", string(kind)), zap.Error(err))
	}
}
