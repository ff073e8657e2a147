// Package event implements the Event Bus: typed
// publish/subscribe fan-out with in-flight handler tracking and a
// deterministic flush barrier the main loop uses before shutdown.
package event

import "time"

// Event is the payload carried by a publish call. Type drives dispatch;
// Payload is opaque to the bus itself.
type Event struct {
	Type      string
	Payload   any
	PublishedAt time.Time
}

// Handler is invoked once per matching subscription, in the insertion
// order of subscriptions.
type Handler func(Event)
