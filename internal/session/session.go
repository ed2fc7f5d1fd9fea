// Package session sequences one voice run from capture to spoken reply and
// records every step in the pipeline event log.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/workingedge/atlas/internal/config"
	"github.com/workingedge/atlas/internal/events"
	"github.com/workingedge/atlas/internal/fsm"
	"github.com/workingedge/atlas/internal/ipc"
	"github.com/workingedge/atlas/internal/transcribe"
)

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

const replyPreviewRunes = 100

// Result is the complete output of one Run invocation.
type Result struct {
	// State is the state the run ended in; Aborted when a stage failed.
	State       fsm.State
	Transcript  transcribe.Result
	Reply       string
	Cancelled   bool
	Err         error
	AudioDevice string
	Recording   time.Duration
	StartedAt   time.Time
	FinishedAt  time.Time
	Events      []events.Event
}

// Deps wires a Controller. Committer, Indicator, Metrics and Events are optional.
type Deps struct {
	Events      *events.Log
	Credentials config.Credentials
	Recorder    Recorder
	Transcriber Transcriber
	Responder   Responder
	Speaker     Speaker
	Committer   Committer
	Indicator   Indicator
	Metrics     Metrics
}

// Controller drives the pipeline state machine for the owner process.
type Controller struct {
	log         *events.Log
	credentials config.Credentials
	recorder    Recorder
	transcriber Transcriber
	responder   Responder
	speaker     Speaker
	committer   Committer
	indicator   Indicator
	metrics     Metrics

	mu    sync.RWMutex
	state fsm.State

	actions chan action
}

func NewController(deps Deps) *Controller {
	if deps.Events == nil {
		deps.Events = events.New(nil)
	}
	if deps.Indicator == nil {
		deps.Indicator = noopIndicator{}
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}

	return &Controller{
		log:         deps.Events,
		credentials: deps.Credentials,
		recorder:    deps.Recorder,
		transcriber: deps.Transcriber,
		responder:   deps.Responder,
		speaker:     deps.Speaker,
		committer:   deps.Committer,
		indicator:   deps.Indicator,
		metrics:     deps.Metrics,
		state:       fsm.StateIdle,
		actions:     make(chan action, 1),
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Events returns the log the controller appends to.
func (c *Controller) Events() *events.Log {
	return c.log
}

func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Run captures until a stop or cancel action arrives, then runs the rest of
// the pipeline to Idle or Aborted.
func (c *Controller) Run(ctx context.Context) Result {
	run := &runState{mark: c.log.Len(), result: Result{StartedAt: time.Now()}}

	if err := c.credentials.Check(); err != nil {
		c.log.Error(events.StepConfiguration, err.Error())
		c.indicator.ShowError(ctx, "Please configure API keys first")
		run.result.State = c.State()
		run.result.Err = err
		return c.finish(run, OutcomeRefused)
	}

	c.drainActions()
	if err := c.transition(fsm.EventStart); err != nil {
		run.result.State = c.State()
		run.result.Err = fmt.Errorf("%w: %v", ErrBusy, err)
		return c.finish(run, "")
	}

	c.indicator.ShowRecording(ctx)
	if err := c.recorder.Start(ctx); err != nil {
		c.abort(ctx, run, err)
		return c.finish(run, OutcomeAborted)
	}

	select {
	case <-ctx.Done():
		c.cancelCapture(run)
		run.result.Err = ctx.Err()
		return c.finish(run, OutcomeCancelled)
	case a := <-c.actions:
		switch a {
		case actionCancel:
			c.cancelCapture(run)
			return c.finish(run, OutcomeCancelled)
		case actionStop:
			return c.finish(run, c.process(ctx, run))
		default:
			c.abort(ctx, run, fmt.Errorf("unknown action %d", a))
			return c.finish(run, OutcomeAborted)
		}
	}
}

type runState struct {
	mark   int
	result Result
}

// process runs the post-capture stages and returns the run outcome.
func (c *Controller) process(ctx context.Context, run *runState) string {
	result := &run.result

	if err := c.transition(fsm.EventStop); err != nil {
		c.abort(ctx, run, err)
		return OutcomeAborted
	}
	c.indicator.CueStop(ctx)

	rec, err := c.recorder.Stop(ctx)
	result.AudioDevice = c.recorder.Device()
	if err != nil {
		c.abort(ctx, run, err)
		return OutcomeAborted
	}
	result.Recording = rec.Duration
	c.metrics.Recorded(rec.Duration)
	c.log.Success(events.StepRecording, "Audio recording completed", rec.Duration)

	c.indicator.ShowTranscribing(ctx)
	c.log.Info(events.StepTranscription, "Attempting primary transcription...")
	started := time.Now()
	transcript, err := c.transcriber.Transcribe(ctx, rec)
	if err != nil {
		c.abort(ctx, run, err)
		return OutcomeAborted
	}
	elapsed := time.Since(started)
	c.metrics.ObserveStage("transcription", elapsed)
	c.metrics.Transcribed(string(transcript.Provider))
	result.Transcript = transcript
	c.log.Success(events.StepTranscription, "Audio transcribed successfully", elapsed)
	c.log.Info(events.StepTranscription, `Text: "`+transcript.Text+`"`)

	if transcript.Blank() {
		c.log.Warning(events.StepTranscription, "No speech detected in audio")
		c.indicator.ShowWarning(ctx, "No speech detected. Please try again.")
		if err := c.transition(fsm.EventNoSpeech); err != nil {
			c.abort(ctx, run, err)
			return OutcomeAborted
		}
		result.State = c.State()
		result.Err = ErrEmptyTranscript
		return OutcomeNoSpeech
	}
	if err := c.transition(fsm.EventTranscribed); err != nil {
		c.abort(ctx, run, err)
		return OutcomeAborted
	}

	c.indicator.ShowGenerating(ctx)
	c.log.Info(events.StepGeneration, "Sending transcription to Gemini AI...")
	started = time.Now()
	reply, err := c.responder.Generate(ctx, transcript.Text)
	if err != nil {
		c.abort(ctx, run, err)
		return OutcomeAborted
	}
	elapsed = time.Since(started)
	c.metrics.ObserveStage("generation", elapsed)
	result.Reply = reply
	c.log.Success(events.StepGeneration, "AI response generated successfully", elapsed)
	c.log.Info(events.StepGeneration, `Response: "`+preview(reply, replyPreviewRunes)+`..."`)

	if c.committer != nil {
		if err := c.committer.Commit(ctx, reply); err != nil {
			c.log.Warning(events.StepGeneration, "Copy to clipboard failed: "+err.Error())
		}
	}
	if err := c.transition(fsm.EventGenerated); err != nil {
		c.abort(ctx, run, err)
		return OutcomeAborted
	}

	c.indicator.ShowSpeaking(ctx)
	c.log.Info(events.StepPlayback, "Starting text-to-speech playback...")
	started = time.Now()
	if err := c.speaker.Speak(ctx, reply, transcript.Language); err != nil {
		c.abort(ctx, run, err)
		return OutcomeAborted
	}
	elapsed = time.Since(started)
	c.metrics.ObserveStage("playback", elapsed)
	c.log.Success(events.StepPlayback, "Playback completed", elapsed)

	if err := c.transition(fsm.EventSpoken); err != nil {
		c.abort(ctx, run, err)
		return OutcomeAborted
	}
	c.log.Success(events.StepComplete, "Total process completed", time.Since(result.StartedAt))
	c.indicator.CueComplete(ctx)
	c.indicator.Hide(context.WithoutCancel(ctx))
	result.State = c.State()
	return OutcomeCompleted
}

// abort surfaces err once as an event and a notification, then resets.
func (c *Controller) abort(ctx context.Context, run *runState, err error) {
	message := "Process failed: " + err.Error()
	c.log.Error(events.StepError, message)
	c.indicator.ShowError(context.WithoutCancel(ctx), message)

	_ = c.transition(fsm.EventFail)
	run.result.State = c.State()
	run.result.Err = err
	_ = c.transition(fsm.EventReset)
}

func (c *Controller) cancelCapture(run *runState) {
	_ = c.recorder.Cancel(context.Background())
	run.result.AudioDevice = c.recorder.Device()
	c.indicator.CueCancel(context.Background())
	c.indicator.Hide(context.Background())
	if err := c.transition(fsm.EventCancel); err != nil {
		_ = c.transition(fsm.EventFail)
		_ = c.transition(fsm.EventReset)
	}
	c.log.Info(events.StepRecording, "Recording cancelled")
	run.result.State = c.State()
	run.result.Cancelled = true
}

func (c *Controller) finish(run *runState, outcome string) Result {
	run.result.FinishedAt = time.Now()
	run.result.Events = c.log.Since(run.mark)
	if outcome != "" {
		c.metrics.RunFinished(outcome)
	}
	return run.result
}

func (c *Controller) drainActions() {
	for {
		select {
		case <-c.actions:
		default:
			return
		}
	}
}

// Say speaks text outside a run, as a replay of an earlier reply.
func (c *Controller) Say(ctx context.Context, text string, language string) error {
	if state := c.State(); state != fsm.StateIdle {
		return fmt.Errorf("%w (state %s)", ErrBusy, state)
	}

	c.log.Info(events.StepPlayback, "Replaying AI response...")
	started := time.Now()
	if err := c.speaker.Speak(ctx, text, language); err != nil {
		c.log.Error(events.StepPlayback, "Playback failed")
		c.indicator.ShowError(context.WithoutCancel(ctx), "Failed to play response")
		return err
	}
	c.log.Success(events.StepPlayback, "Replay completed", time.Since(started))
	return nil
}

// Handle serves IPC commands for the active owner session.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		return c.status()
	case "toggle":
		return c.requestStop("toggle")
	case "stop":
		return c.requestStop("stop")
	case "cancel":
		return c.requestCancel()
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) status() ipc.Response {
	state := c.State()
	resp := ipc.Response{
		OK:         true,
		State:      string(state),
		Message:    "status",
		Processing: state.Processing(),
		Playing:    state.Playing(),
	}
	if state == fsm.StateCapturing {
		level := c.recorder.Level()
		resp.Level = &level
	}
	return resp
}

// requestStop enqueues a stop action when state permits it.
func (c *Controller) requestStop(source string) ipc.Response {
	state := c.State()
	if state != fsm.StateCapturing && state.Processing() {
		return ipc.Response{OK: false, State: string(state), Error: "already " + string(state)}
	}
	if state != fsm.StateCapturing {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot %s from state %s", source, state)}
	}

	select {
	case c.actions <- actionStop:
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "stop already requested"}
	}
}

// requestCancel enqueues a cancel action; only a capture can be cancelled.
func (c *Controller) requestCancel() ipc.Response {
	state := c.State()
	if state != fsm.StateCapturing && state.Processing() {
		return ipc.Response{OK: false, State: string(state), Error: "cannot cancel while " + string(state)}
	}
	if state != fsm.StateCapturing {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot cancel from state %s", state)}
	}

	select {
	case c.actions <- actionCancel:
		return ipc.Response{OK: true, State: string(state), Message: "cancel requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "cancel already requested"}
	}
}

// FallbackNotice returns an orchestrator hook that records the switch to the
// on-device provider.
func FallbackNotice(log *events.Log, metrics Metrics) func(error) {
	return func(primaryErr error) {
		log.Info(events.StepTranscription,
			"Primary transcription failed: "+primaryErr.Error()+"; falling back to on-device recognition...")
		if metrics != nil {
			metrics.FallbackUsed()
		}
	}
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
