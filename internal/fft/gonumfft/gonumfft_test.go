package gonumfft_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staticfloat/bladeRF-power/internal/fft"
	"github.com/staticfloat/bladeRF-power/internal/fft/gonumfft"
)

// tone builds n samples of a complex exponential at the given cycles/buffer.
func tone(n int, cycles float64) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		theta := 2 * math.Pi * cycles * float64(i) / float64(n)
		out[i] = complex(math.Cos(theta), math.Sin(theta))
	}
	return out
}

func TestTransformPeakBin(t *testing.T) {
	const n = 64
	const cycles = 5

	in := tone(n, cycles)
	dst := make([]complex128, n)

	err := fft.TransformOnce(gonumfft.Planner(), in, dst)
	require.NoError(t, err)

	peak := 0
	for i := 1; i < n; i++ {
		if cmplxAbs(dst[i]) > cmplxAbs(dst[peak]) {
			peak = i
		}
	}
	assert.Equal(t, cycles, peak)
}

func TestTransformDstTooSmall(t *testing.T) {
	in := tone(16, 1)
	dst := make([]complex128, 8)

	err := fft.TransformOnce(gonumfft.Planner(), in, dst)
	assert.ErrorIs(t, err, fft.ErrDstTooSmall)
}

func TestTransformReusablePlan(t *testing.T) {
	const n = 32
	in := tone(n, 3)
	dst1 := make([]complex128, n)
	dst2 := make([]complex128, n)

	planner := gonumfft.Planner()

	p, err := planner(in, dst1)
	require.NoError(t, err)
	require.NoError(t, p.Transform())
	require.NoError(t, p.Close())

	p2, err := planner(in, dst2)
	require.NoError(t, err)
	require.NoError(t, p2.Transform())
	require.NoError(t, p2.Close())

	for i := range dst1 {
		assert.InDelta(t, real(dst1[i]), real(dst2[i]), 1e-9)
		assert.InDelta(t, imag(dst1[i]), imag(dst2[i]), 1e-9)
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
