package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// WAV format codes from the RIFF specification.
const (
	wavFormatPCM       = 1
	wavFormatIEEEFloat = 3
)

// ErrNotWAV is returned by [DecodeWAV] when the input does not carry a
// RIFF/WAVE header.
var ErrNotWAV = errors.New("audio: not a RIFF/WAVE stream")

// DecodeWAV reads a WAV stream and returns its contents as a mono [Waveform].
// Supported encodings are 16-bit signed PCM and 32-bit IEEE float. Multi-
// channel audio is down-mixed to mono by averaging all channels per frame.
func DecodeWAV(r io.Reader) (Waveform, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Waveform{}, fmt.Errorf("audio: read wav: %w", err)
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Waveform{}, ErrNotWAV
	}

	var (
		format     uint16
		channels   int
		sampleRate int
		bitDepth   int
		pcm        []byte
		haveFmt    bool
	)

	// Walk the RIFF chunks; unknown chunks are skipped.
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return Waveform{}, fmt.Errorf("audio: wav fmt chunk too short (%d bytes)", size)
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitDepth = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
		}
		// Chunks are word-aligned.
		if size%2 == 1 {
			size++
		}
		off = body + size
	}

	if !haveFmt {
		return Waveform{}, errors.New("audio: wav missing fmt chunk")
	}
	if pcm == nil {
		return Waveform{}, errors.New("audio: wav missing data chunk")
	}
	if channels < 1 || sampleRate <= 0 {
		return Waveform{}, fmt.Errorf("audio: wav header invalid (channels=%d rate=%d)", channels, sampleRate)
	}

	var samples []float32
	switch {
	case format == wavFormatPCM && bitDepth == 16:
		samples = pcm16ToFloat32Mono(pcm, channels)
	case format == wavFormatIEEEFloat && bitDepth == 32:
		samples = float32LEToMono(pcm, channels)
	default:
		return Waveform{}, fmt.Errorf("audio: unsupported wav encoding (format=%d bits=%d)", format, bitDepth)
	}

	return Waveform{Samples: samples, SampleRate: sampleRate}, nil
}

// EncodeWAV writes the waveform as a 16-bit signed PCM mono WAV stream.
// Samples outside [-1, 1] are clipped.
func EncodeWAV(w Waveform, wr io.Writer) error {
	dataLen := len(w.Samples) * 2
	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(header[22:24], 1) // mono
	binary.LittleEndian.PutUint32(header[24:28], uint32(w.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(w.SampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(header[32:34], 2)                      // block align
	binary.LittleEndian.PutUint16(header[34:36], 16)                     // bits per sample
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	if _, err := wr.Write(header); err != nil {
		return fmt.Errorf("audio: write wav header: %w", err)
	}

	buf := make([]byte, dataLen)
	for i, s := range w.Samples {
		v := float64(s)
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(buf[i*2:i*2+2], uint16(int16(math.Round(v*32767))))
	}
	if _, err := wr.Write(buf); err != nil {
		return fmt.Errorf("audio: write wav data: %w", err)
	}
	return nil
}

// pcm16ToFloat32Mono converts 16-bit signed little-endian PCM to mono float32
// samples normalised to [-1.0, 1.0], averaging all channels per frame.
func pcm16ToFloat32Mono(pcm []byte, channels int) []float32 {
	frames := len(pcm) / (2 * channels)
	mono := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[idx : idx+2]))
			sum += float32(sample) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// float32LEToMono converts 32-bit IEEE float little-endian samples to mono by
// averaging all channels per frame.
func float32LEToMono(pcm []byte, channels int) []float32 {
	frames := len(pcm) / (4 * channels)
	mono := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 4
			bits := binary.LittleEndian.Uint32(pcm[idx : idx+4])
			sum += math.Float32frombits(bits)
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
