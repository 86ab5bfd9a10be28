package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPubSubForwarderPublishesEvent(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "site-analytics")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	fwd, err := NewPubSubForwarder(topic)
	if err != nil {
		t.Fatalf("NewPubSubForwarder: %v", err)
	}

	evt := Event{
		ID:     "01jq0000000000000000000000",
		Event:  EventFormSubmit,
		FormID: "3f1c-contact",
		Source: "contact",
		Lang:   "de",
		At:     time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC),
	}
	if err := fwd.Forward(ctx, evt); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	var payload Event
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.FormID != evt.FormID || payload.Event != EventFormSubmit {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["source"]; attr != "contact" {
		t.Fatalf("expected source attribute, got %q", attr)
	}
	if _, ok := messages[0].Attributes["page"]; ok {
		t.Fatalf("empty fields should not become attributes")
	}
}

func TestNewPubSubForwarderRequiresTopic(t *testing.T) {
	if _, err := NewPubSubForwarder(nil); err == nil {
		t.Fatalf("expected error for nil topic")
	}
}
