package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"desaweb/pkg/logger"
)

// Redis shares events between server instances through a pub/sub channel.
// Published events come back through the subscription and are then fanned
// out locally, so every instance numbers the same stream on its own.
type Redis struct {
	rdb     *redis.Client
	channel string
	local   *Memory
}

var _ Bus = (*Redis)(nil)

func NewRedis(rdb *redis.Client, channel string) *Redis {
	return &Redis{rdb: rdb, channel: channel, local: NewMemory(DefaultRetain)}
}

func (r *Redis) Publish(ctx context.Context, ev Event) error {
	jsonstr, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := r.rdb.Publish(ctx, r.channel, jsonstr).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Run relays the channel into the local bus until ctx ends.
func (r *Redis) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.WithField("channel", r.channel).Warnf("dropping malformed event: %v", err)
				continue
			}
			r.local.deliver(ev)
		}
	}
}

func (r *Redis) Subscribe(ctx context.Context) (<-chan Event, error) {
	return r.local.Subscribe(ctx)
}

func (r *Redis) Since(seq uint64) []Event {
	return r.local.Since(seq)
}
