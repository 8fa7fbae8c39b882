package chat

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

const relayChannel = "cipherchat-events"

// Relay bridges broadcasts across server instances over redis pub/sub.
// Every instance publishes its appends and fans out what it receives,
// its own included, so a pair chatting through different instances
// still sees each other live.
type Relay struct {
	rdb *redis.Client
}

func NewRelay(rdb *redis.Client) *Relay {
	return &Relay{rdb: rdb}
}

func (r *Relay) Publish(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.rdb.Publish(context.Background(), relayChannel, payload).Err()
}

// Run subscribes to the relay channel and feeds every event into hub's
// local fan-out loop. It returns when ctx is cancelled.
func (r *Relay) Run(ctx context.Context, hub *Hub) {
	pubsub := r.rdb.Subscribe(ctx, relayChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("relay: dropping malformed event: %v", err)
				continue
			}
			hub.deliver(ev)
		}
	}
}
