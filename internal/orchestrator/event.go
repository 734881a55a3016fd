package orchestrator

import "encoding/json"

// EventType discriminates the progress frames pushed to the caller.
type EventType string

const (
	EventStart    EventType = "start"
	EventLog      EventType = "log"
	EventPhase    EventType = "phase"
	EventStat     EventType = "stat"
	EventInfo     EventType = "info"
	EventProgress EventType = "progress"
	EventCost     EventType = "cost"
	EventPerf     EventType = "perf"
	EventWarning  EventType = "warning"
	EventError    EventType = "error"
	EventResult   EventType = "result"
	EventComplete EventType = "complete"
)

// Event is one immutable unit of progress information decoded from worker
// output. Only the fields relevant to the variant are set; MarshalJSON
// flattens them into a self-describing frame.
type Event struct {
	Type      EventType
	Message   string
	IsError   bool // log origin is stderr
	Phase     string
	Key       string
	Value     any
	Current   int
	Total     int
	Label     string
	Error     string
	ErrorType string
	Values    map[string]float64 // cost and perf figures
	Result    json.RawMessage
}

// Terminal reports whether no further event may follow this one.
func (e Event) Terminal() bool {
	return e.Type == EventError || e.Type == EventComplete
}

func (e Event) MarshalJSON() ([]byte, error) {
	frame := map[string]any{"type": string(e.Type)}

	switch e.Type {
	case EventStart, EventInfo:
		frame["message"] = e.Message
	case EventLog:
		frame["message"] = e.Message
		if e.IsError {
			frame["isError"] = true
		}
	case EventPhase:
		frame["phase"] = e.Phase
	case EventStat:
		frame["key"] = e.Key
		frame["value"] = e.Value
	case EventProgress:
		frame["current"] = e.Current
		frame["total"] = e.Total
		frame["label"] = e.Label
	case EventCost, EventPerf:
		for k, v := range e.Values {
			frame[k] = v
		}
	case EventWarning:
		frame["phase"] = e.Phase
		frame["message"] = e.Message
	case EventError:
		frame["error"] = e.Error
		if e.ErrorType != "" {
			frame["errorType"] = e.ErrorType
		}
	case EventResult:
		frame["result"] = e.Result
	case EventComplete:
	}

	return json.Marshal(frame)
}
