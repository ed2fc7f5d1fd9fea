// Package fsm defines the voice pipeline state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle         State = "idle"
	StateCapturing    State = "capturing"
	StateTranscribing State = "transcribing"
	StateGenerating   State = "generating"
	StateSynthesizing State = "synthesizing"
	StateAborted      State = "aborted"
)

const (
	EventStart       Event = "start"
	EventStop        Event = "stop"
	EventCancel      Event = "cancel"
	EventTranscribed Event = "transcribed"
	EventNoSpeech    Event = "no_speech"
	EventGenerated   Event = "generated"
	EventSpoken      Event = "spoken"
	EventFail        Event = "fail"
	EventReset       Event = "reset"
)

// Processing reports whether a run is in flight.
func (s State) Processing() bool {
	switch s {
	case StateCapturing, StateTranscribing, StateGenerating, StateSynthesizing:
		return true
	default:
		return false
	}
}

// Playing reports whether the reply is being spoken.
func (s State) Playing() bool {
	return s == StateSynthesizing
}

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		switch current {
		case StateIdle, StateAborted:
			return current, invalidTransition(current, event)
		case StateCapturing, StateTranscribing, StateGenerating, StateSynthesizing:
			return StateAborted, nil
		}
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateCapturing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateCapturing:
		switch event {
		case EventStop:
			return StateTranscribing, nil
		case EventCancel:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTranscribing:
		switch event {
		case EventTranscribed:
			return StateGenerating, nil
		case EventNoSpeech:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateGenerating:
		switch event {
		case EventGenerated:
			return StateSynthesizing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateSynthesizing:
		switch event {
		case EventSpoken:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAborted:
		switch event {
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
