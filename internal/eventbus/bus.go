package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	// Published by writers in this process after every committed change
	TopicTournamentUpdated = "tournament.updated"
	// Published when the storage watcher sees a change from another process
	TopicStorageChanged = "storage.changed"

	KeyMetadata = "key"
)

// Bus is an in-process pub/sub. Publish returns only after every subscriber
// acked the message, which makes same-process delivery synchronous.
type Bus struct {
	pubsub *gochannel.GoChannel
}

func New(logger *slog.Logger) *Bus {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{BlockPublishUntilSubscriberAck: true},
		// gochannel logs every publish without subscribers at info
		watermill.NewSlogLoggerWithLevelMapping(logger, map[slog.Level]slog.Level{
			slog.LevelInfo: slog.LevelDebug,
		}),
	)
	return &Bus{pubsub: pubsub}
}

// Publish sends a notification without payload, key names the changed record
// entry when known.
func (b *Bus) Publish(topic string, key string) error {
	msg := message.NewMessage(watermill.NewUUID(), nil)
	if key != "" {
		msg.Metadata.Set(KeyMetadata, key)
	}
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// NotifyTournamentUpdated is the same-process signal services emit after a commit
func (b *Bus) NotifyTournamentUpdated(ctx context.Context) {
	if err := b.Publish(TopicTournamentUpdated, ""); err != nil {
		slog.WarnContext(ctx, "failed to notify tournament update", "error", err)
	}
}

// StorageChanged bridges the storage watcher onto the bus
func (b *Bus) StorageChanged(ctx context.Context, key string) {
	if err := b.Publish(TopicStorageChanged, key); err != nil {
		slog.WarnContext(ctx, "failed to publish storage change", "key", key, "error", err)
	}
}
