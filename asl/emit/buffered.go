package emit

import (
	"context"
	"sync"
)

// BufferedEmitter stores events in memory, grouped by execution ID, and
// offers filtered retrieval. Useful for tests and for hosts that want to
// inspect an execution's event history without standing up a real backend.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// HistoryFilter narrows GetHistoryWithFilter results. Zero-value fields are
// not applied; all set fields combine with AND logic.
type HistoryFilter struct {
	StateName string
	Msg       string
}

// NewBufferedEmitter returns an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.ExecutionID] = append(b.events[event.ExecutionID], event)
}

func (b *BufferedEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		b.Emit(e)
	}
	return nil
}

func (b *BufferedEmitter) Flush(context.Context) error { return nil }

// GetHistory returns a copy of every event recorded for executionID, in
// emission order.
func (b *BufferedEmitter) GetHistory(executionID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := b.events[executionID]
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// GetHistoryWithFilter returns GetHistory(executionID) narrowed by filter.
func (b *BufferedEmitter) GetHistoryWithFilter(executionID string, filter HistoryFilter) []Event {
	var result []Event
	for _, event := range b.GetHistory(executionID) {
		if filter.StateName != "" && event.StateName != filter.StateName {
			continue
		}
		if filter.Msg != "" && event.Msg != filter.Msg {
			continue
		}
		result = append(result, event)
	}
	if result == nil {
		return []Event{}
	}
	return result
}

// Clear removes stored events for executionID, or every execution if
// executionID is empty.
func (b *BufferedEmitter) Clear(executionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if executionID == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, executionID)
}
