package pipeline

import "sync"

// EventType enumerates the progress stream's message kinds.
type EventType string

const (
	EventProgress     EventType = "progress"
	EventStepComplete EventType = "step-complete"
	EventError        EventType = "error"
	EventDone         EventType = "done"
)

// Event is one message on a run's progress stream.
type Event struct {
	Type     EventType `json:"type"`
	StepID   string    `json:"step_id,omitempty"`
	Progress int       `json:"progress,omitempty"`
	Message  string    `json:"message,omitempty"`
	Data     any       `json:"data,omitempty"`
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Type == EventError || e.Type == EventDone
}

// Sink receives a run's events. Send must not block the pipeline for long;
// Close is called exactly once, when the sink is superseded or the stream
// ends.
type Sink interface {
	Send(Event)
	Close()
}

// Registry maps project ids to their attached sinks. It is an explicit
// dependency handed to the orchestrator, never package state. Attaching a
// sink for a project that already has one supersedes the old sink, which is
// closed; a terminal event closes and removes the sink.
type Registry struct {
	mu    sync.Mutex
	sinks map[string]Sink
}

func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]Sink)}
}

// Attach registers a sink for the project, superseding any previous one.
func (r *Registry) Attach(projectID string, s Sink) {
	r.mu.Lock()
	old := r.sinks[projectID]
	r.sinks[projectID] = s
	r.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// Detach removes and closes the project's sink, if any.
func (r *Registry) Detach(projectID string) {
	r.mu.Lock()
	s := r.sinks[projectID]
	delete(r.sinks, projectID)
	r.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

// Send delivers the event to the project's sink. Events for projects with no
// sink are dropped. Terminal events close and remove the sink afterwards.
func (r *Registry) Send(projectID string, e Event) {
	r.mu.Lock()
	s := r.sinks[projectID]
	if s != nil && e.Terminal() {
		delete(r.sinks, projectID)
	}
	r.mu.Unlock()
	if s == nil {
		return
	}
	s.Send(e)
	if e.Terminal() {
		s.Close()
	}
}
