package event

// Sink receives events from the combat core. Emit runs synchronously inside
// the mutating call that produced the event.
type Sink interface {
	Emit(ev Event)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(ev Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

type discard struct{}

func (discard) Emit(Event) {}

// Discard drops every event.
var Discard Sink = discard{}

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

type multi []Sink

func (m multi) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// Multi fans one event out to several sinks in order. Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Recorder keeps every emitted event in order. Not safe for concurrent use.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(ev Event) { r.Events = append(r.Events, ev) }

// Count returns how many recorded events have the given type.
func (r *Recorder) Count(eventType string) int {
	n := 0
	for _, ev := range r.Events {
		if ev.EventType() == eventType {
			n++
		}
	}
	return n
}

// Reset drops all recorded events.
func (r *Recorder) Reset() { r.Events = r.Events[:0] }
