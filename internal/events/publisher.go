package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
)

const publishTimeout = 10 * time.Second

// Event is the change-feed envelope published on every committed mutation.
// Consumers treat it as a reload hint only; the payload carries no resolved
// foreign-key context.
type Event struct {
	EventType enums.ResourceEventType `json:"eventType"`
	Resource  enums.Resource          `json:"resource"`
	Payload   any                     `json:"payload,omitempty"`
}

// Publisher emits resource change events. Fire-and-forget: failures are
// logged and never surfaced to the mutation that triggered them.
type Publisher interface {
	Publish(ctx context.Context, eventType enums.ResourceEventType, resource enums.Resource, payload any)
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type topicPublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type gcpTopic struct {
	*gcppubsub.Publisher
}

func (t *gcpTopic) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return t.Publisher.Publish(ctx, msg)
}

type publisher struct {
	topic topicPublisher
	logg  *logger.Logger
}

// NewPublisher constructs the change-feed publisher over the events topic.
func NewPublisher(topic *gcppubsub.Publisher, logg *logger.Logger) (Publisher, error) {
	if topic == nil {
		return nil, fmt.Errorf("events topic publisher is required")
	}
	return newPublisher(&gcpTopic{Publisher: topic}, logg)
}

func newPublisher(topic topicPublisher, logg *logger.Logger) (Publisher, error) {
	if topic == nil {
		return nil, fmt.Errorf("events topic publisher is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &publisher{topic: topic, logg: logg}, nil
}

// Publish serializes and emits one event. The send is detached from the
// caller's context so an already-finished request cannot cancel it.
func (p *publisher) Publish(ctx context.Context, eventType enums.ResourceEventType, resource enums.Resource, payload any) {
	logCtx := p.logg.WithFields(ctx, map[string]any{
		"event_type": eventType.String(),
		"resource":   resource.String(),
	})

	if !eventType.IsValid() || !resource.IsValid() {
		p.logg.Warn(logCtx, "dropping change event with invalid envelope")
		return
	}

	data, err := json.Marshal(Event{EventType: eventType, Resource: resource, Payload: payload})
	if err != nil {
		p.logg.Error(logCtx, "dropping change event, payload not serializable", err)
		return
	}

	msg := &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": eventType.String(),
			"resource":   resource.String(),
		},
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		result := p.topic.Publish(sendCtx, msg)
		if result == nil {
			p.logg.Warn(logCtx, "events publisher returned nil result")
			return
		}
		if _, err := result.Get(sendCtx); err != nil {
			p.logg.Error(logCtx, "change event publish failed", err)
		}
	}()
}
