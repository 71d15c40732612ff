// Package events broadcasts committed record changes over Redis pub/sub so
// other sessions know to re-fetch. Delivery is at-most-once; subscribers
// treat an event as a hint, never as the data itself.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/ldi/jobsite/internal/logging"
	"github.com/ldi/jobsite/pkg/models"
)

const publishTimeout = 2 * time.Second

// ChangesChannel returns the pub/sub channel for an instance.
func ChangesChannel(instance string) string {
	return fmt.Sprintf("jobsite:%s:changes", instance)
}

// Bus publishes and subscribes to change events for one instance.
// It is safe for concurrent use.
type Bus struct {
	rdb      *redis.Client
	instance string
	breaker  *gobreaker.CircuitBreaker
}

func NewBus(opts *redis.Options, instance string) (*Bus, error) {
	if instance == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	if strings.ContainsAny(instance, ": ") {
		return nil, fmt.Errorf("instance name %q must not contain ':' or spaces", instance)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-changes",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	return &Bus{
		rdb:      redis.NewClient(opts),
		instance: instance,
		breaker:  breaker,
	}, nil
}

func (b *Bus) Close() error {
	return b.rdb.Close()
}

func (b *Bus) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Publish sends a change through the circuit breaker. While the breaker is
// open calls fail fast with gobreaker.ErrOpenState.
func (b *Bus) Publish(ctx context.Context, change models.Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	_, err = b.breaker.Execute(func() (interface{}, error) {
		return nil, b.rdb.Publish(ctx, ChangesChannel(b.instance), payload).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Hook adapts Publish to a store change listener. Failures are logged and
// never reach the writer.
func (b *Bus) Hook() func(ctx context.Context, change models.Change) {
	return func(ctx context.Context, change models.Change) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		if err := b.Publish(ctx, change); err != nil {
			logging.Logger.WithFields(logrus.Fields{
				"collection": change.Collection,
				"project_id": change.ProjectID,
			}).Warnf("Event ID: CHANGE_PUBLISH_FAILED, Description: %v", err)
		}
	}
}

// Subscription delivers changes until closed or its context ends.
type Subscription struct {
	events <-chan models.Change
	errors <-chan error
	cancel func()
	once   sync.Once
}

func (s *Subscription) Events() <-chan models.Change { return s.events }

// Errors reports undecodable messages; the subscription keeps running.
func (s *Subscription) Errors() <-chan error { return s.errors }

func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe listens for changes on this instance's channel. The returned
// subscription is ready to receive when Subscribe returns.
func (b *Bus) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, ChangesChannel(b.instance))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	events := make(chan models.Change, 10)
	errs := make(chan error, 10)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(events)
		defer close(errs)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var change models.Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					select {
					case errs <- fmt.Errorf("failed to unmarshal change event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}
				select {
				case events <- change:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{events: events, errors: errs, cancel: cancel}, nil
}
