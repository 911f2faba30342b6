// Package chat implements the realtime trip channel over websockets.
// Clients authenticate at upgrade time, join one trip room at a time
// and exchange persisted messages with everyone in the room.
package chat

import "encoding/json"

const (
	EventJoinTrip    = "join-trip"
	EventJoined      = "joined"
	EventTripMessage = "trip-message"
	EventError       = "error"
)

// Event is the wire envelope for every websocket frame in both
// directions.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinTripPayload struct {
	TripID string `json:"tripId"`
}

type tripMessagePayload struct {
	TripID string `json:"tripId"`
	Text   string `json:"message"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func newEvent(name string, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	return Event{Event: name, Data: data}
}

func errorEvent(message string) Event {
	return newEvent(EventError, errorPayload{Message: message})
}
