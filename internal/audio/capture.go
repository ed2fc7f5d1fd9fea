package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Constraints are the fixed processing requirements of a microphone stream.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	SampleRate       int
}

// DefaultConstraints mirrors the voice-assistant capture profile.
func DefaultConstraints() Constraints {
	return Constraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		SampleRate:       44100,
	}
}

// streamProperties maps constraints onto module-filter-apply stream properties.
func streamProperties(c Constraints) map[string]string {
	if !c.EchoCancellation && !c.NoiseSuppression {
		return nil
	}

	method := "webrtc"
	args := "analog_gain_control=0 digital_gain_control=1"
	if c.NoiseSuppression {
		args += " noise_suppression=1"
	} else {
		args += " noise_suppression=0"
	}

	props := map[string]string{
		"filter.want": "echo-cancel",
		"filter.apply.echo-cancel.parameters": fmt.Sprintf("aec_method=%s aec_args=%q", method, args),
	}
	if c.EchoCancellation {
		props["media.role"] = "phone"
	}
	return props
}

// chunkBytes returns the size of 20ms of mono s16 audio at rate.
func chunkBytes(rate int) int {
	if rate <= 0 {
		rate = 16000
	}
	return rate / 50 * 2
}

// Capture streams fixed-size PCM chunks from one selected Pulse source.
type Capture struct {
	device    Device
	chunkSize int

	client *pulse.Client
	stream *pulse.RecordStream

	chunks chan []byte
	stopCh chan struct{}

	mu      sync.Mutex
	pending []byte
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

// StartCapture creates and starts a mono s16 record stream honoring constraints.
func StartCapture(ctx context.Context, selected Device, constraints Constraints) (*Capture, error) {
	client, err := newClient("audio-input-microphone")
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	capture := &Capture{
		device:    selected,
		chunkSize: chunkBytes(constraints.SampleRate),
		client:    client,
		chunks:    make(chan []byte, 128),
		stopCh:    make(chan struct{}),
	}

	props := streamProperties(constraints)
	writer := pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(constraints.SampleRate),
		pulse.RecordBufferFragmentSize(uint32(capture.chunkSize)),
		pulse.RecordMediaName("atlas voice capture"),
		pulse.RecordRawOption(func(req *pulseproto.CreateRecordStream) {
			for key, value := range props {
				req.Properties[key] = pulseproto.PropListString(value)
			}
		}),
	)
	if err != nil {
		capture.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	capture.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = capture.Stop()
		case <-capture.stopCh:
		}
	}()

	return capture, nil
}

// Device returns capture metadata for logging and diagnostics.
func (c *Capture) Device() Device {
	return c.device
}

// Chunks returns the PCM stream as fixed-size byte slices.
func (c *Capture) Chunks() <-chan []byte {
	return c.chunks
}

// BytesCaptured reports total bytes accepted from Pulse.
func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// Stop halts the stream, flushes residual PCM, and closes Chunks exactly once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()

	c.mu.Lock()
	pending := append([]byte(nil), c.pending...)
	c.pending = nil
	c.mu.Unlock()

	if len(pending) > 0 {
		select {
		case c.chunks <- pending:
		default:
		}
	}

	close(c.chunks)
	return nil
}

// Close is a convenience alias for Stop.
func (c *Capture) Close() {
	_ = c.Stop()
}

// onPCM receives raw Pulse frames and emits chunkSize slices to c.chunks.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-c.stopCh:
		return 0, io.EOF
	default:
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same mutex as c.stopped to avoid Add/Wait races.
	c.inflight.Add(1)

	c.pending = append(c.pending, buffer...)

	size := c.chunkSize
	chunks := make([][]byte, 0, len(c.pending)/size)
	for len(c.pending) >= size {
		chunk := make([]byte, size)
		copy(chunk, c.pending[:size])
		c.pending = c.pending[size:]
		chunks = append(chunks, chunk)
	}
	c.mu.Unlock()
	defer c.inflight.Done()

	c.bytes.Add(int64(len(buffer)))

	for _, chunk := range chunks {
		select {
		case <-c.stopCh:
			return 0, io.EOF
		case c.chunks <- chunk:
		}
	}

	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

// PulseAcquirer selects a microphone from preferences and opens a Pulse
// capture stream on it.
type PulseAcquirer struct {
	Input    string
	Fallback string
	Logger   *slog.Logger

	selected atomic.Pointer[Device]
}

// Acquire implements Acquirer.
func (a *PulseAcquirer) Acquire(ctx context.Context, constraints Constraints) (Stream, error) {
	selection, err := SelectDevice(ctx, a.Input, a.Fallback)
	if err != nil {
		return nil, &AcquisitionError{Err: err}
	}
	if selection.Warning != "" && a.Logger != nil {
		a.Logger.Warn(selection.Warning)
	}

	capture, err := StartCapture(ctx, selection.Device, constraints)
	if err != nil {
		return nil, &AcquisitionError{Device: selection.Device.ID, Err: err}
	}
	device := selection.Device
	a.selected.Store(&device)
	return capture, nil
}

// Selected reports the device used by the most recent successful Acquire.
func (a *PulseAcquirer) Selected() (Device, bool) {
	device := a.selected.Load()
	if device == nil {
		return Device{}, false
	}
	return *device, true
}
