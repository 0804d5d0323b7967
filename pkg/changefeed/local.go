package changefeed

import (
	"context"
	"sync"
)

const localBuffer = 16

// LocalFeed fans notifications out to subscribers in the same process.
type LocalFeed struct {
	mu     sync.Mutex
	subs   map[string]map[*localSubscription]struct{}
	closed bool
}

// NewLocalFeed constructs an in-process feed.
func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subs: make(map[string]map[*localSubscription]struct{})}
}

// Publish delivers payload to every current subscriber of topic. A subscriber
// whose buffer is full already has a notification pending, so the message is
// dropped for it.
func (f *LocalFeed) Publish(ctx context.Context, topic, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	for sub := range f.subs[topic] {
		select {
		case sub.ch <- Message{Topic: topic, Payload: payload}:
		default:
		}
	}
	return nil
}

// Subscribe registers a watch on topic. The subscription is closed when ctx is
// done or Close is called.
func (f *LocalFeed) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}

	sub := &localSubscription{feed: f, topic: topic, ch: make(chan Message, localBuffer), done: make(chan struct{})}
	if f.subs[topic] == nil {
		f.subs[topic] = make(map[*localSubscription]struct{})
	}
	f.subs[topic][sub] = struct{}{}

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

// Subscribers reports how many watches are open on topic.
func (f *LocalFeed) Subscribers(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[topic])
}

// Close terminates every open subscription.
func (f *LocalFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	var all []*localSubscription
	for _, set := range f.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	f.mu.Unlock()

	for _, sub := range all {
		_ = sub.Close()
	}
	return nil
}

func (f *LocalFeed) remove(sub *localSubscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.subs[sub.topic]
	delete(set, sub)
	if len(set) == 0 {
		delete(f.subs, sub.topic)
	}
}

type localSubscription struct {
	feed  *LocalFeed
	topic string
	ch    chan Message
	done  chan struct{}
	once  sync.Once
}

func (s *localSubscription) Messages() <-chan Message {
	return s.ch
}

func (s *localSubscription) Close() error {
	s.once.Do(func() {
		s.feed.remove(s)
		// Publish holds feed.mu while sending, so after remove no sender can
		// reach ch.
		close(s.ch)
		close(s.done)
	})
	return nil
}
