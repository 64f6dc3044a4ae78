package messaging

import "context"

// NopPublisher drops every event. Used when MESSAGING_BACKEND=none.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NopPublisher) Close() error                                        { return nil }

// eventID returns the event's own id when it carries a BaseEvent.
func eventID(eventData interface{}) string {
	switch e := eventData.(type) {
	case ConsultEvent:
		return e.EventID
	case *ConsultEvent:
		return e.EventID
	case ConsultsExpiredEvent:
		return e.EventID
	case *ConsultsExpiredEvent:
		return e.EventID
	}
	return NewBaseEvent("").EventID
}
