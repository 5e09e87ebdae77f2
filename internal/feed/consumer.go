// Package feed reacts to the change-notification stream. The only reaction a
// change event demands is a wholesale reload of the affected in-memory
// collection; payloads are treated as hints, never as patches.
package feed

import (
	"context"
	"encoding/json"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/assetdesk/assetdesk-backend/internal/events"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
)

// Reloader refreshes one in-memory collection from storage.
type Reloader interface {
	Load(ctx context.Context) error
}

// ReloaderFunc adapts a plain function to the Reloader interface.
type ReloaderFunc func(ctx context.Context) error

// Load implements Reloader.
func (f ReloaderFunc) Load(ctx context.Context) error { return f(ctx) }

// Consumer watches the resource-events subscription and triggers reloads.
type Consumer struct {
	subscription *gcppubsub.Subscriber
	reloaders    map[enums.Resource]Reloader
	logg         *logger.Logger
}

// NewConsumer builds a feed consumer over the events subscription. The
// reloaders map routes each watched resource to the snapshot it refreshes.
func NewConsumer(subscription *gcppubsub.Subscriber, reloaders map[enums.Resource]Reloader, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, errors.New("events subscription is required")
	}
	if len(reloaders) == 0 {
		return nil, errors.New("at least one reloader is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	for resource := range reloaders {
		if !resource.IsValid() {
			return nil, errors.New("reloader registered for unknown resource " + resource.String())
		}
	}
	return &Consumer{
		subscription: subscription,
		reloaders:    reloaders,
		logg:         logg,
	}, nil
}

// Run processes change events until the context is canceled or the
// subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"resource":   msg.Attributes["resource"],
		"event_type": msg.Attributes["event_type"],
	})

	var event events.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		// Malformed envelopes never become valid on redelivery.
		c.logg.Warn(logCtx, "dropping undecodable change event")
		return processResult{ack: true}
	}
	if !event.Resource.IsValid() || !event.EventType.IsValid() {
		c.logg.Warn(logCtx, "dropping change event with unknown envelope fields")
		return processResult{ack: true}
	}

	reloader, ok := c.reloaders[event.Resource]
	if !ok {
		c.logg.Info(logCtx, "no reload wired for resource, skipping")
		return processResult{ack: true}
	}

	if err := reloader.Load(ctx); err != nil {
		c.logg.Error(logCtx, "snapshot reload failed, leaving event for redelivery", err)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "snapshot reloaded")
	return processResult{ack: true}
}
