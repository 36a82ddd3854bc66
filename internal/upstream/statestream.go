package upstream

import (
	"fmt"
	"strings"

	"github.com/nerrad567/hamh-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/hamh-bridge/internal/model"
)

// statestreamTopic is Home Assistant's MQTT statestream pattern:
// homeassistant/<domain>/<object_id>/state.
const statestreamTopic = "homeassistant/+/+/state"

// StatestreamHandler is invoked once per translated state change.
type StatestreamHandler func(model.EntityState)

// SubscribeStatestream connects client to Home Assistant's MQTT
// statestream and invokes handler for every inbound state change,
// translated into an EntityState. This is additive to HTTP polling: it
// shortens state-change latency between Dispatcher refresh ticks but
// never drives topology (Create/Start/Refresh remain HTTP-only).
func SubscribeStatestream(client *mqtt.Client, handler StatestreamHandler) error {
	return client.Subscribe(statestreamTopic, 0, func(topic string, payload []byte) error {
		entityID, ok := entityIDFromTopic(topic)
		if !ok {
			return fmt.Errorf("upstream: unexpected statestream topic %q", topic)
		}
		on := statestreamPayloadIsOn(payload)
		handler(model.EntityState{EntityID: entityID, On: on})
		return nil
	})
}

// entityIDFromTopic extracts "domain.object_id" from
// "homeassistant/domain/object_id/state".
func entityIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "homeassistant" || parts[3] != "state" {
		return "", false
	}
	return parts[1] + "." + parts[2], true
}

// statestreamPayloadIsOn treats any of the canonical "on" state strings
// as on; everything else (including off/unavailable/unknown) is off.
func statestreamPayloadIsOn(payload []byte) bool {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "on", "true", "open", "home", "playing":
		return true
	default:
		return false
	}
}
