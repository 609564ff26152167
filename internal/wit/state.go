package wit

import "slices"

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateWritingBody
	StateAwaitingResponse
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateWritingBody:
		return "writing_body"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

var validTransitions = map[State][]State{
	StateIdle:             {StateStarting},
	StateStarting:         {StateWritingBody, StateAwaitingResponse, StateCompleted},
	StateWritingBody:      {StateAwaitingResponse, StateCompleted},
	StateAwaitingResponse: {StateCompleted},
}

func canTransition(from, to State) bool {
	validTo, ok := validTransitions[from]
	if !ok {
		return false
	}
	return slices.Contains(validTo, to)
}
