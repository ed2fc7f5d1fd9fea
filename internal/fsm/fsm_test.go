package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateIdle
	steps := []struct {
		event Event
		want  State
	}{
		{EventStart, StateCapturing},
		{EventStop, StateTranscribing},
		{EventTranscribed, StateGenerating},
		{EventGenerated, StateSynthesizing},
		{EventSpoken, StateIdle},
	}

	for _, step := range steps {
		next, err := Transition(s, step.event)
		require.NoError(t, err)
		require.Equal(t, step.want, next)
		s = next
	}
}

func TestTransitionNoSpeechReturnsToIdle(t *testing.T) {
	next, err := Transition(StateTranscribing, EventNoSpeech)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionFailFromActiveStatesAborts(t *testing.T) {
	states := []State{StateCapturing, StateTranscribing, StateGenerating, StateSynthesizing}
	for _, state := range states {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateAborted, next)

		next, err = Transition(next, EventReset)
		require.NoError(t, err)
		require.Equal(t, StateIdle, next)
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "idle stop invalid", state: StateIdle, event: EventStop, want: StateIdle, wantErr: true},
		{name: "idle cancel invalid", state: StateIdle, event: EventCancel, want: StateIdle, wantErr: true},
		{name: "idle fail invalid", state: StateIdle, event: EventFail, want: StateIdle, wantErr: true},
		{name: "capturing start invalid", state: StateCapturing, event: EventStart, want: StateCapturing, wantErr: true},
		{name: "capturing transcribed invalid", state: StateCapturing, event: EventTranscribed, want: StateCapturing, wantErr: true},
		{name: "transcribing cancel invalid", state: StateTranscribing, event: EventCancel, want: StateTranscribing, wantErr: true},
		{name: "transcribing generated invalid", state: StateTranscribing, event: EventGenerated, want: StateTranscribing, wantErr: true},
		{name: "generating spoken invalid", state: StateGenerating, event: EventSpoken, want: StateGenerating, wantErr: true},
		{name: "synthesizing start invalid", state: StateSynthesizing, event: EventStart, want: StateSynthesizing, wantErr: true},
		{name: "aborted start invalid", state: StateAborted, event: EventStart, want: StateAborted, wantErr: true},
		{name: "aborted fail invalid", state: StateAborted, event: EventFail, want: StateAborted, wantErr: true},
		{name: "aborted reset valid", state: StateAborted, event: EventReset, want: StateIdle, wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}

func TestDerivedFlags(t *testing.T) {
	tests := []struct {
		state      State
		processing bool
		playing    bool
	}{
		{StateIdle, false, false},
		{StateCapturing, true, false},
		{StateTranscribing, true, false},
		{StateGenerating, true, false},
		{StateSynthesizing, true, true},
		{StateAborted, false, false},
	}

	for _, tc := range tests {
		require.Equal(t, tc.processing, tc.state.Processing(), tc.state)
		require.Equal(t, tc.playing, tc.state.Playing(), tc.state)
	}
}
