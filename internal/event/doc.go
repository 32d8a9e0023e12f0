// Package event provides a pub-sub event bus for decoupled inter-component
// communication in agentboard.
//
// The session channel publishes what it reads off the wire, the orchestration
// monitor subscribes to those events and publishes its own state changes, and
// the terminal view subscribes to the monitor's events to know when to redraw.
// None of them holds a reference to the others' internals.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Channel:
//   - [FragmentReceivedEvent]: a streamed answer fragment arrived
//   - [TraceReceivedEvent]: a raw trace payload arrived
//   - [ConnectionChangedEvent]: the session state changed
//
// Monitor:
//   - [RosterLoadedEvent], [TurnStartedEvent], [TurnFailedEvent]
//   - [TranscriptUpdatedEvent], [TraceAppendedEvent], [BoardChangedEvent]
//   - [AnomalyRecordedEvent]: an inbound event had no open turn
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called synchronously
// on the publishing goroutine and protected against panics; a panicking
// handler will not prevent other handlers from being called.
//
// # Basic Usage
//
//	bus := event.NewBus()
//
//	id := bus.Subscribe(event.TypeBoardChanged, func(e event.Event) {
//	    changed := e.(event.BoardChangedEvent)
//	    log.Printf("%d agents changed", len(changed.AgentIDs))
//	})
//	defer bus.Unsubscribe(id)
//
//	bus.Publish(event.NewFragmentReceivedEvent("session_1", "Hel"))
package event
