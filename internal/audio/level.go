package audio

import (
	"encoding/binary"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

const (
	levelFFTSize     = 256
	levelMinDecibels = -100.0
	levelMaxDecibels = -30.0
	levelSmoothing   = 0.8
)

// LevelMeter turns the most recent PCM window into a normalized average
// spectral magnitude. It is not safe for concurrent use.
type LevelMeter struct {
	fft      *fourier.FFT
	ring     []float64
	pos      int
	frame    []float64
	coeffs   []complex128
	smoothed []float64
}

// NewLevelMeter analyzes windows of size samples; size must be even.
func NewLevelMeter(size int) *LevelMeter {
	if size <= 0 || size%2 != 0 {
		size = levelFFTSize
	}
	return &LevelMeter{
		fft:      fourier.NewFFT(size),
		ring:     make([]float64, size),
		frame:    make([]float64, size),
		coeffs:   make([]complex128, size/2+1),
		smoothed: make([]float64, size/2),
	}
}

// Push appends little-endian s16 samples to the analysis window.
func (m *LevelMeter) Push(pcm []byte) {
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i : i+2]))
		m.ring[m.pos] = float64(sample) / 32768
		m.pos = (m.pos + 1) % len(m.ring)
	}
}

// Level returns the current reading in [0,1].
func (m *LevelMeter) Level() float64 {
	n := len(m.ring)
	copy(m.frame, m.ring[m.pos:])
	copy(m.frame[n-m.pos:], m.ring[:m.pos])
	window.Blackman(m.frame)

	m.coeffs = m.fft.Coefficients(m.coeffs, m.frame)

	bins := len(m.smoothed)
	sum := 0.0
	for k := 0; k < bins; k++ {
		magnitude := cmplx.Abs(m.coeffs[k]) / float64(n)
		m.smoothed[k] = levelSmoothing*m.smoothed[k] + (1-levelSmoothing)*magnitude
		sum += scaleDecibels(m.smoothed[k])
	}
	return clamp01(sum / float64(bins))
}

// Reset clears the window and smoothing history.
func (m *LevelMeter) Reset() {
	clear(m.ring)
	clear(m.smoothed)
	m.pos = 0
}

func scaleDecibels(magnitude float64) float64 {
	if magnitude <= 0 {
		return 0
	}
	db := 20 * math.Log10(magnitude)
	return clamp01((db - levelMinDecibels) / (levelMaxDecibels - levelMinDecibels))
}

func clamp01(v float64) float64 {
	switch {
	case !(v > 0):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
