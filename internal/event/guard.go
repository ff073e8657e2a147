package event

import "github.com/google/uuid"

// StateGuard is a dispatch predicate: a subscription carrying one only
// receives events the guard accepts. Guards run synchronously inside the
// publish path and must be cheap and side-effect free.
type StateGuard func(Event) bool

// SubscribeFiltered registers h for eventType behind a state guard. A
// nil guard behaves like Subscribe.
func (b *Bus) SubscribeFiltered(eventType string, guard StateGuard, h Handler) uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New()
	sub := &subscription{id: id, eventType: eventType, guard: guard, handler: h}
	if eventType == wildcardType {
		b.wildcard = append(b.wildcard, sub)
	} else {
		b.byType[eventType] = append(b.byType[eventType], sub)
	}
	return id
}
