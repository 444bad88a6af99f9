package contracts

import "github.com/hilthontt/watchparty/internal/domain"

// AmqpMessage is the envelope mirrored to the broker. Data holds the event
// exactly as the streaming transports send it.
type AmqpMessage struct {
	EventType domain.EventType `json:"eventType"`
	Seq       uint64           `json:"seq"`
	Data      []byte           `json:"data"`
}

const routingKeyPrefix = "room."

// RoutingKey maps an event type to its topic, e.g. room.video_update.
func RoutingKey(eventType domain.EventType) string {
	return routingKeyPrefix + string(eventType)
}

// AllRoomEvents binds a queue to every mirrored event.
const AllRoomEvents = routingKeyPrefix + "#"
