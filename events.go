package grainfield

// EventKind tags an Event.
type EventKind int

const (
	EventVoiceStarted EventKind = iota
	EventVoiceStolen
	EventVoiceRejected
	EventVoiceReleased
	EventLateDropped
)

func (k EventKind) String() string {
	switch k {
	case EventVoiceStarted:
		return "voice-started"
	case EventVoiceStolen:
		return "voice-stolen"
	case EventVoiceRejected:
		return "voice-rejected"
	case EventVoiceReleased:
		return "voice-released"
	case EventLateDropped:
		return "late-dropped"
	}
	return "unknown"
}

// Event reports what the audio goroutine did with scheduled requests.
//   - EventVoiceStarted: Ticket started on VoiceID at sample At
//   - EventVoiceStolen: VoiceID was evicted to make room for Ticket
//   - EventVoiceRejected: the pool could not take Ticket
//   - EventVoiceReleased: a gate closed and VoiceID began its release
//   - EventLateDropped: Count events arrived after their time and were dropped
type Event struct {
	Kind    EventKind
	Ticket  Ticket
	VoiceID uint64
	At      int64
	Count   uint64
}

// Stats are cumulative counters since the engine was created.
type Stats struct {
	Started      uint64
	Stolen       uint64
	Rejected     uint64
	LateDropped  uint64
	Pending      int
	ActiveVoices int
}

func (e *Engine) Stats() Stats {
	return Stats{
		Started:      e.started.Load(),
		Stolen:       e.stolen.Load(),
		Rejected:     e.rejected.Load(),
		LateDropped:  e.sched.Dropped(),
		Pending:      e.sched.Pending(),
		ActiveVoices: int(e.activeVoices.Load()),
	}
}

// Watch returns a channel that receives engine events. Only the most recent
// Watch channel receives events. Events are dropped rather than blocking the
// audio goroutine when the channel is full; receive in a goroutine.
func (e *Engine) Watch() <-chan Event {
	ch := make(chan Event, max(e.cfg.eventBuffer, 1))
	e.events.Store(&ch)
	return ch
}

func (e *Engine) emit(ev Event) {
	ch := e.events.Load()
	if ch == nil {
		return
	}
	select {
	case *ch <- ev:
	default:
		// Channel full; drop event
	}
}
