package ws

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Broadcaster delivers events to the live connections of a recipient set.
// Offline recipients are skipped; nothing is queued for them.
type Broadcaster struct {
	registry *Registry
	log      *zap.Logger
}

func NewBroadcaster(registry *Registry, log *zap.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, log: log.Named("broadcast")}
}

// Broadcast serializes event once and enqueues it on every live connection
// among userIDs. It returns the number of connections it reached.
func (b *Broadcaster) Broadcast(event any, userIDs []string) int {
	if len(userIDs) == 0 {
		return 0
	}
	payload, err := json.Marshal(event)
	if err != nil {
		b.log.Error("marshal event", zap.Error(err))
		return 0
	}

	delivered := 0
	for _, c := range b.registry.LiveConnectionsFor(userIDs) {
		if c.Send(payload) {
			delivered++
			continue
		}
		// Slow or dead client: drop it, its read loop unbinds it.
		b.log.Warn("connection not accepting frames, closing", zap.String("conn", c.ID()))
		_ = c.Close()
	}
	return delivered
}

// Send is Broadcast to a single user.
func (b *Broadcaster) Send(event any, userID string) bool {
	return b.Broadcast(event, []string{userID}) == 1
}

// SendTo writes event to c directly, bypassing identity resolution. Used for
// replies on connections that may not be bound.
func (b *Broadcaster) SendTo(c Conn, event any) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		b.log.Error("marshal event", zap.Error(err))
		return false
	}
	return c.Send(payload)
}
