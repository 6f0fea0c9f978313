// Package audio turns uploaded recordings into the canonical mono 16-bit PCM
// WAV expected by the assessment service, and summarises waveforms for display.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Canonical output.
const (
	DefaultSampleRate = 16000
	outBitDepth       = 16
	outChannels       = 1
	pcmFormat         = 1

	maxInt16 = 32767
	minInt16 = -32768
)

// Sentinel errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrEmptyRecording    = errors.New("empty recording")
)

// Info describes a normalization.
type Info struct {
	SourceRate     int           `json:"source_rate"`
	SourceChannels int           `json:"source_channels"`
	SourceBitDepth int           `json:"source_bit_depth"`
	Rate           int           `json:"rate"`
	Frames         int           `json:"frames"`
	Duration       time.Duration `json:"duration"`
}

// Normalize decodes a PCM WAV, downmixes it to mono by averaging channels,
// resamples it to rate by linear interpolation and encodes 16-bit mono WAV.
func Normalize(r io.ReadSeeker, rate int) ([]byte, Info, error) {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	samples, src, err := decode(r)
	if err != nil {
		return nil, Info{}, err
	}
	mono := downmix(samples, src.channels)
	mono = resample(mono, src.rate, rate)
	if len(mono) == 0 {
		return nil, Info{}, ErrEmptyRecording
	}

	out, err := encode(mono, rate)
	if err != nil {
		return nil, Info{}, err
	}
	info := Info{
		SourceRate:     src.rate,
		SourceChannels: src.channels,
		SourceBitDepth: src.bitDepth,
		Rate:           rate,
		Frames:         len(mono),
		Duration:       time.Duration(len(mono)) * time.Second / time.Duration(rate),
	}
	return out, info, nil
}

type source struct {
	rate     int
	channels int
	bitDepth int
}

// decode returns interleaved samples scaled to the int16 range.
func decode(r io.ReadSeeker) ([]int, source, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, source{}, fmt.Errorf("%w: not a PCM WAV file", ErrUnsupportedFormat)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, source{}, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	src := source{rate: int(d.SampleRate), channels: int(d.NumChans), bitDepth: int(d.BitDepth)}
	if src.channels <= 0 || src.rate <= 0 {
		return nil, source{}, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, src.channels, src.rate)
	}
	if len(buf.Data) == 0 {
		return nil, source{}, ErrEmptyRecording
	}
	samples := make([]int, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = toInt16Range(v, src.bitDepth)
	}
	return samples, src, nil
}

func toInt16Range(v, bitDepth int) int {
	switch bitDepth {
	case 8:
		// 8-bit WAV is unsigned
		return (v - 128) << 8
	case 24:
		return v >> 8
	case 32:
		return v >> 16
	default:
		return v
	}
}

// downmix averages each frame's channels.
func downmix(samples []int, channels int) []int {
	if channels == 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]int, frames)
	for i := range frames {
		sum := 0
		for c := range channels {
			sum += samples[i*channels+c]
		}
		out[i] = clamp(sum / channels)
	}
	return out
}

// resample converts mono samples from srcRate to dstRate with linear interpolation.
func resample(samples []int, srcRate, dstRate int) []int {
	if srcRate == dstRate || len(samples) < 2 {
		return samples
	}
	dst := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	out := make([]int, dst)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dst {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		s0 := samples[idx]
		s1 := s0
		if idx+1 < len(samples) {
			s1 = samples[idx+1]
		}
		out[i] = clamp(int(float64(s0)*(1-frac) + float64(s1)*frac))
	}
	return out
}

func clamp(v int) int {
	if v > maxInt16 {
		return maxInt16
	}
	if v < minInt16 {
		return minInt16
	}
	return v
}

func encode(mono []int, rate int) ([]byte, error) {
	ws := &writeSeeker{}
	e := wav.NewEncoder(ws, rate, outBitDepth, outChannels, pcmFormat)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: outChannels, SampleRate: rate},
		Data:           mono,
		SourceBitDepth: outBitDepth,
	}
	if err := e.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := e.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return ws.buf, nil
}

// Peak is the sample range of one envelope bin, in [-1, 1].
type Peak struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Envelope decodes a WAV and reduces it to bins min/max pairs, enough to draw
// a waveform. The duration of the recording is returned alongside.
func Envelope(data []byte, bins int) ([]Peak, time.Duration, error) {
	samples, src, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	mono := downmix(samples, src.channels)
	dur := time.Duration(len(mono)) * time.Second / time.Duration(src.rate)
	if bins <= 0 || bins > len(mono) {
		bins = len(mono)
	}
	peaks := make([]Peak, bins)
	per := float64(len(mono)) / float64(bins)
	for b := range bins {
		lo, hi := int(float64(b)*per), int(float64(b+1)*per)
		if hi <= lo {
			hi = lo + 1
		}
		p := Peak{Min: 1, Max: -1}
		for _, s := range mono[lo:hi] {
			v := float64(s) / -minInt16
			if v < p.Min {
				p.Min = v
			}
			if v > p.Max {
				p.Max = v
			}
		}
		peaks[b] = p
	}
	return peaks, dur, nil
}

// writeSeeker is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch chunk sizes on Close.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	end := w.pos + len(p)
	if end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	copy(w.buf[w.pos:], p)
	w.pos = end
	return len(p), nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("seek: negative position %d", abs)
	}
	w.pos = int(abs)
	return abs, nil
}
