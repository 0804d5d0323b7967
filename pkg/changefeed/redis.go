package changefeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/dlool-api/pkg/config"
)

// NewRedisClient returns a configured Redis client after a successful ping.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// RedisFeed carries notifications over Redis PUBLISH/SUBSCRIBE so that every
// API replica observes writes made by any other replica.
type RedisFeed struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisFeed wraps client. Channel names are namespaced with prefix.
func NewRedisFeed(client redis.UniversalClient, prefix string) *RedisFeed {
	return &RedisFeed{client: client, prefix: prefix}
}

func (f *RedisFeed) channel(topic string) string {
	if f.prefix == "" {
		return topic
	}
	return f.prefix + ":" + topic
}

// Publish sends payload to every subscriber of topic.
func (f *RedisFeed) Publish(ctx context.Context, topic, payload string) error {
	if err := f.client.Publish(ctx, f.channel(topic), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe opens a Redis subscription on topic and waits for the server to
// confirm it, so a publish issued after Subscribe returns is never missed.
func (f *RedisFeed) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	ps := f.client.Subscribe(ctx, f.channel(topic))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	sub := &redisSubscription{
		ps:    ps,
		topic: topic,
		out:   make(chan Message, localBuffer),
		done:  make(chan struct{}),
	}
	go sub.pump()

	if done := ctx.Done(); done != nil {
		go func() {
			select {
			case <-done:
				_ = sub.Close()
			case <-sub.done:
			}
		}()
	}
	return sub, nil
}

type redisSubscription struct {
	ps    *redis.PubSub
	topic string
	out   chan Message
	done  chan struct{}
	once  sync.Once
	err   error
}

func (s *redisSubscription) pump() {
	defer close(s.out)
	in := s.ps.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- Message{Topic: s.topic, Payload: msg.Payload}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSubscription) Messages() <-chan Message {
	return s.out
}

func (s *redisSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.ps.Close()
	})
	return s.err
}
