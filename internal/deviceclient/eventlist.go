package deviceclient

import (
	"sync"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
)

// DefaultEventCapacity bounds the live-event list when no capacity is configured.
const DefaultEventCapacity = 100

// EventList is the live-event FIFO shared by every device client.
// When full, the oldest entry is dropped to make room for the new one.
type EventList struct {
	mu       sync.Mutex
	capacity int
	events   []models.LiveEvent

	countMu sync.Mutex
	counts  map[string]int
}

// NewEventList creates a list holding at most capacity events.
func NewEventList(capacity int) *EventList {
	if capacity <= 0 {
		capacity = DefaultEventCapacity
	}
	return &EventList{
		capacity: capacity,
		events:   make([]models.LiveEvent, 0, capacity),
		counts:   make(map[string]int),
	}
}

// Capacity returns the maximum number of retained events.
func (l *EventList) Capacity() int {
	return l.capacity
}

// Push appends ev and reports whether an older event had to be dropped.
func (l *EventList) Push(ev models.LiveEvent) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	dropped := false
	if len(l.events) == l.capacity {
		oldest := l.events[0]
		copy(l.events, l.events[1:])
		l.events = l.events[:len(l.events)-1]
		l.adjustCount(oldest.DeviceName, -1)
		dropped = true
	}
	l.events = append(l.events, ev)
	l.adjustCount(ev.DeviceName, 1)
	return dropped
}

func (l *EventList) adjustCount(device string, delta int) {
	l.countMu.Lock()
	defer l.countMu.Unlock()
	n := l.counts[device] + delta
	if n <= 0 {
		delete(l.counts, device)
		return
	}
	l.counts[device] = n
}

// Snapshot copies every retained event, oldest first.
func (l *EventList) Snapshot() []models.LiveEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.LiveEvent, len(l.events))
	copy(out, l.events)
	return out
}

// DeviceEvents copies the retained events of one device, oldest first.
func (l *EventList) DeviceEvents(device string) []models.LiveEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.LiveEvent
	for _, ev := range l.events {
		if ev.DeviceName == device {
			out = append(out, ev)
		}
	}
	return out
}

// Take removes and returns up to max of the oldest events. max <= 0 takes all.
func (l *EventList) Take(max int) []models.LiveEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	if max <= 0 || max > len(l.events) {
		max = len(l.events)
	}
	out := make([]models.LiveEvent, max)
	copy(out, l.events[:max])
	l.events = append(l.events[:0], l.events[max:]...)
	for _, ev := range out {
		l.adjustCount(ev.DeviceName, -1)
	}
	return out
}

// Len returns the number of retained events.
func (l *EventList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Count returns how many retained events belong to device.
func (l *EventList) Count(device string) int {
	l.countMu.Lock()
	defer l.countMu.Unlock()
	return l.counts[device]
}

// Flush removes every event of device and returns how many were removed.
func (l *EventList) Flush(device string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.events[:0]
	removed := 0
	for _, ev := range l.events {
		if ev.DeviceName == device {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	l.events = kept

	l.countMu.Lock()
	delete(l.counts, device)
	l.countMu.Unlock()
	return removed
}
