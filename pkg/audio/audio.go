// Package audio provides the waveform value type shared by all providers and
// the decoding/conditioning helpers needed to bring caller-supplied recordings
// into the fixed format the acoustic model expects: mono float32 samples at
// the model sample rate, peak-normalised.
package audio

import "time"

// ModelSampleRate is the sample rate (Hz) required by the acoustic model.
// Both user recordings and synthesised reference audio are resampled to this
// rate before inference so that frame counts are comparable.
const ModelSampleRate = 16000

// Waveform is a mono audio signal. Samples are float32 in [-1.0, 1.0].
// Waveform is a value type; functions in this package never mutate their
// input and always return fresh sample slices.
type Waveform struct {
	// Samples holds the mono PCM samples.
	Samples []float32

	// SampleRate is the sample rate in Hz.
	SampleRate int
}

// Duration returns the playing time of the waveform.
func (w Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(w.Samples)) / float64(w.SampleRate) * float64(time.Second))
}

// Empty reports whether the waveform contains no samples.
func (w Waveform) Empty() bool {
	return len(w.Samples) == 0
}

// Normalize peak-normalises the waveform so that the loudest sample has
// magnitude 1.0. A silent waveform is returned unchanged (copied).
func Normalize(w Waveform) Waveform {
	out := Waveform{
		Samples:    make([]float32, len(w.Samples)),
		SampleRate: w.SampleRate,
	}
	var peak float32
	for _, s := range w.Samples {
		if s > peak {
			peak = s
		} else if -s > peak {
			peak = -s
		}
	}
	if peak == 0 {
		copy(out.Samples, w.Samples)
		return out
	}
	for i, s := range w.Samples {
		out.Samples[i] = s / peak
	}
	return out
}

// Resample converts the waveform to targetRate using linear interpolation.
// If the waveform is already at targetRate it is returned unchanged.
// Linear interpolation is sufficient here: the downstream consumer is a
// phoneme model, not a listener.
func Resample(w Waveform, targetRate int) Waveform {
	if w.SampleRate == targetRate || len(w.Samples) == 0 || w.SampleRate <= 0 {
		return w
	}
	ratio := float64(w.SampleRate) / float64(targetRate)
	n := int(float64(len(w.Samples)) / ratio)
	if n < 1 {
		n = 1
	}
	out := make([]float32, n)
	for i := range n {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(w.Samples)-1 {
			out[i] = w.Samples[len(w.Samples)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = w.Samples[idx]*(1-frac) + w.Samples[idx+1]*frac
	}
	return Waveform{Samples: out, SampleRate: targetRate}
}

// Condition prepares an arbitrary decoded waveform for acoustic inference:
// resample to [ModelSampleRate], then peak-normalise.
func Condition(w Waveform) Waveform {
	return Normalize(Resample(w, ModelSampleRate))
}
