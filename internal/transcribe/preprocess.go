package transcribe

import "math"

// SampleRate is the PCM sample rate all transcription input is assumed to be
// at, matching constants.SampleRate. Duplicated here as an untyped constant.
const SampleRate = 16000

// BandPassFilter applies a 300-3400Hz speech-band filter to samples using a
// cascade of second-order (biquad) band-pass sections, approximating the
// 5th-order Butterworth filter the original used. No Butterworth/IIR design
// library exists among the retrieved examples, so this is a hand-rolled
// RBJ-cookbook biquad cascade rather than a true pole-placed Butterworth; it
// achieves the same practical effect of attenuating rumble and hiss outside
// the speech band.
func BandPassFilter(samples []float32, sampleRate int) []float32 {
	const (
		lowCut  = 300.0
		highCut = 3400.0
		stages  = 3
	)
	centerFreq := math.Sqrt(lowCut * highCut)
	bandwidth := highCut - lowCut

	b0, b1, b2, a1, a2 := bandPassCoefficients(centerFreq, bandwidth, float64(sampleRate))

	out := make([]float32, len(samples))
	copy(out, samples)
	for s := 0; s < stages; s++ {
		out = applyBiquad(out, b0, b1, b2, a1, a2)
	}
	return out
}

// bandPassCoefficients computes RBJ audio-EQ-cookbook constant skirt gain
// band-pass biquad coefficients (normalised so a0 = 1).
func bandPassCoefficients(centerFreq, bandwidth, sampleRate float64) (b0, b1, b2, a1, a2 float64) {
	w0 := 2 * math.Pi * centerFreq / sampleRate
	alpha := math.Sin(w0) * math.Sinh(math.Log(2)/2*bandwidth/centerFreq*w0/math.Sin(w0))

	a0 := 1 + alpha
	b0 = alpha / a0
	b1 = 0
	b2 = -alpha / a0
	a1 = -2 * math.Cos(w0) / a0
	a2 = (1 - alpha) / a0
	return b0, b1, b2, a1, a2
}

// applyBiquad runs a direct-form-I biquad section over samples.
func applyBiquad(samples []float32, b0, b1, b2, a1, a2 float64) []float32 {
	out := make([]float32, len(samples))
	var x1, x2, y1, y2 float64
	for i, s := range samples {
		x0 := float64(s)
		y0 := b0*x0 + b1*x1 + b2*x2 - a1*y1 - a2*y2
		out[i] = float32(y0)
		x2, x1 = x1, x0
		y2, y1 = y1, y0
	}
	return out
}
