package viewsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AdamBeresnev/championship-draw/internal/draw"
	"github.com/AdamBeresnev/championship-draw/internal/eventbus"
	"github.com/ThreeDotsLabs/watermill/message"
)

type Loader interface {
	Load(ctx context.Context) (*draw.Snapshot, error)
}

type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// Observer keeps a view's copy of the tournament record current. Every
// notification, same-process or cross-process, replaces the copy wholesale
// with a fresh read from the repository.
type Observer struct {
	name       string
	loader     Loader
	subscriber Subscriber
	onChange   func(ctx context.Context, snapshot draw.Snapshot)

	// Held from Load until the copy is replaced, so a slow read can't land
	// after a newer one
	refreshMu sync.Mutex

	mu      sync.RWMutex
	current draw.Snapshot
}

func NewObserver(name string, loader Loader, subscriber Subscriber, onChange func(ctx context.Context, snapshot draw.Snapshot)) *Observer {
	return &Observer{
		name:       name,
		loader:     loader,
		subscriber: subscriber,
		onChange:   onChange,
		current:    draw.NewSnapshot(),
	}
}

func (o *Observer) Current() draw.Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current.Clone()
}

// Refresh re-reads the whole record. A failed read keeps the previous copy.
func (o *Observer) Refresh(ctx context.Context) error {
	o.refreshMu.Lock()
	defer o.refreshMu.Unlock()

	snapshot, err := o.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("%s view failed to reload state: %w", o.name, err)
	}

	o.mu.Lock()
	o.current = snapshot.Clone()
	o.mu.Unlock()

	if o.onChange != nil {
		o.onChange(ctx, snapshot.Clone())
	}
	return nil
}

// Start performs the initial load and begins consuming notifications in the
// background until ctx is done.
func (o *Observer) Start(ctx context.Context) error {
	topics := []string{eventbus.TopicTournamentUpdated, eventbus.TopicStorageChanged}
	channels := make([]<-chan *message.Message, 0, len(topics))
	for _, topic := range topics {
		messages, err := o.subscriber.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
		channels = append(channels, messages)
	}

	if err := o.Refresh(ctx); err != nil {
		return err
	}

	for _, messages := range channels {
		go o.consume(ctx, messages)
	}
	return nil
}

// Run is Start blocking until ctx is done
func (o *Observer) Run(ctx context.Context) error {
	if err := o.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (o *Observer) consume(ctx context.Context, messages <-chan *message.Message) {
	for msg := range messages {
		if err := o.Refresh(ctx); err != nil {
			slog.Error("view refresh failed", "view", o.name, "key", msg.Metadata.Get(eventbus.KeyMetadata), "error", err)
		}
		// A nack would make the bus redeliver forever, the next change
		// triggers a full reload anyway
		msg.Ack()
	}
}
