// Package changefeed broadcasts "entity changed" notifications between the
// writers of a document and the streams watching it.
package changefeed

import (
	"context"
	"errors"
)

// ErrClosed is returned when publishing to or subscribing on a closed feed.
var ErrClosed = errors.New("changefeed: closed")

// Message is a single change notification. Payload is advisory; watchers are
// expected to re-read the entity instead of trusting it.
type Message struct {
	Topic   string
	Payload string
}

// Subscription is a live watch on one topic.
type Subscription interface {
	// Messages is closed once the subscription is closed.
	Messages() <-chan Message
	Close() error
}

// Feed publishes and subscribes to topic notifications.
type Feed interface {
	Publish(ctx context.Context, topic, payload string) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// Topic builds the topic name for an entity kind and id.
func Topic(kind, id string) string {
	return kind + ":" + id
}
