package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
)

// PubSubForwarder publishes analytics events to a Pub/Sub topic.
type PubSubForwarder struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubForwarder constructs a Pub/Sub backed forwarder.
func NewPubSubForwarder(topic *pubsub.Topic) (*PubSubForwarder, error) {
	if topic == nil {
		return nil, errors.New("analytics pubsub forwarder: topic is required")
	}
	return &PubSubForwarder{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// Forward implements Forwarder.
func (p *PubSubForwarder) Forward(ctx context.Context, e Event) error {
	if p == nil || p.topic == nil {
		return errors.New("analytics pubsub forwarder: not initialised")
	}

	data, err := p.marshal(e)
	if err != nil {
		return fmt.Errorf("marshal analytics event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "eventId", e.ID)
	setAttr(attrs, "event", e.Event)
	setAttr(attrs, "formId", e.FormID)
	setAttr(attrs, "source", e.Source)
	setAttr(attrs, "lang", e.Lang)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish analytics event: %w", err)
	}
	return nil
}

func setAttr(attrs map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
