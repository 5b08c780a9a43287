package domain

import "time"

type EventType string

const (
	EventArrivedDepot        EventType = "arrived_depot"
	EventCollectionStarted   EventType = "collection_started"
	EventCollectionCompleted EventType = "collection_completed"
	EventDisposal            EventType = "disposal"
	EventCapacityExceeded    EventType = "capacity_exceeded"
)

// Emitted by playback when a vehicle reaches a stop.
type StopEvent struct {
	VehicleID VehicleID `json:"vehicle_id"`
	StopID    StopID    `json:"stop_id"`
	Type      EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	LoadAfter float64   `json:"load_after"`
}
