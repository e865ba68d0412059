package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Bus publishes invitation lifecycle events. Events go to Redis pub/sub
// (for other service instances) and to the local WebSocket hub when one
// is attached.
type Bus struct {
	rdb   *redis.Client
	log   *zap.Logger
	ctx   context.Context
	wsHub WSHub
}

type WSHub interface {
	Publish(orgID string, message map[string]interface{})
}

func New(rdb *redis.Client, log *zap.Logger) *Bus {
	return &Bus{
		rdb: rdb,
		log: log,
		ctx: context.Background(),
	}
}

// SetWSHub sets the WebSocket hub for event broadcasting
func (b *Bus) SetWSHub(hub WSHub) {
	b.wsHub = hub
}

// PublishOrg publishes an event to an organization's channel
func (b *Bus) PublishOrg(orgID string, event map[string]interface{}) error {
	channel := "org:" + orgID

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// rdb is nil when running on the in-memory fallback stack; the
	// local hub still gets the event.
	if b.rdb != nil {
		if err := b.rdb.Publish(b.ctx, channel, data).Err(); err != nil {
			b.log.Error("Failed to publish event", zap.String("channel", channel), zap.Error(err))
		}
	}

	if b.wsHub != nil {
		b.wsHub.Publish(orgID, event)
	}

	b.log.Debug("Published event", zap.String("channel", channel), zap.String("event", string(data)))
	return nil
}
