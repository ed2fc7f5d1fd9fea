package audio

import (
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func pcmFromSamples(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

func sineSamples(n int, freq float64, rate float64, amplitude float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(math.Round(amplitude * 32767 * math.Sin(2*math.Pi*freq*float64(i)/rate)))
	}
	return out
}

func TestLevelMeterSilenceIsZero(t *testing.T) {
	meter := NewLevelMeter(levelFFTSize)
	meter.Push(make([]byte, levelFFTSize*2))
	require.Equal(t, 0.0, meter.Level())
}

func TestLevelMeterToneRaisesLevel(t *testing.T) {
	meter := NewLevelMeter(levelFFTSize)
	meter.Push(pcmFromSamples(sineSamples(levelFFTSize*4, 440, 16000, 0.8)))

	var level float64
	for i := 0; i < 10; i++ {
		level = meter.Level()
	}
	require.Greater(t, level, 0.0)
	require.LessOrEqual(t, level, 1.0)

	meter.Reset()
	require.Equal(t, 0.0, meter.Level())
}

func TestLevelMeterSamplesStayInUnitRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	meter := NewLevelMeter(levelFFTSize)

	for round := 0; round < 200; round++ {
		samples := make([]int16, 1+rng.Intn(600))
		for i := range samples {
			switch round % 3 {
			case 0:
				samples[i] = int16(rng.Intn(65536) - 32768)
			case 1:
				samples[i] = math.MaxInt16
			default:
				samples[i] = math.MinInt16
			}
		}
		meter.Push(pcmFromSamples(samples))

		level := meter.Level()
		require.GreaterOrEqual(t, level, 0.0)
		require.LessOrEqual(t, level, 1.0)
	}
}

func TestLevelMeterIgnoresOddTrailingByte(t *testing.T) {
	meter := NewLevelMeter(8)
	meter.Push([]byte{0xff, 0x7f, 0x01})
	require.Equal(t, 1, meter.pos)
}

func TestScaleDecibelsClamps(t *testing.T) {
	require.Equal(t, 0.0, scaleDecibels(0))
	require.Equal(t, 0.0, scaleDecibels(1e-9))
	require.Equal(t, 1.0, scaleDecibels(1))
	require.InDelta(t, 0.5, scaleDecibels(math.Pow(10, -65.0/20)), 1e-9)
	require.Equal(t, 0.0, clamp01(math.NaN()))
}
