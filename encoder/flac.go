package encoder

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// FlacEncoder writes interleaved 16-bit blocks as verbatim FLAC frames.
// When w is an io.WriteSeeker (a file) the stream header is patched with the
// final sample count on Close.
type FlacEncoder struct {
	enc         *flac.Encoder
	preset      Preset
	totalFrames uint64
	encodeTime  time.Duration
	mu          sync.Mutex
}

func NewFlac(w io.Writer, p Preset) (*FlacEncoder, error) {
	if p.Channels != 1 && p.Channels != 2 {
		return nil, fmt.Errorf("flac: unsupported channel count %d", p.Channels)
	}
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    p.SampleRate,
		NChannels:     uint8(p.Channels),
		BitsPerSample: BitsPerSample,
	}
	enc, err := flac.NewEncoder(w, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	return &FlacEncoder{enc: enc, preset: p}, nil
}

// EncodeBlock takes interleaved samples; len(block) must be a multiple of
// the channel count and hold at most BlockSize frames.
func (e *FlacEncoder) EncodeBlock(block []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	channels := int(e.preset.Channels)
	if len(block)%channels != 0 {
		return fmt.Errorf("flac: block of %d samples is not frame aligned", len(block))
	}
	n := len(block) / channels
	if n == 0 {
		return nil
	}
	if n > BlockSize {
		return fmt.Errorf("flac: block of %d frames exceeds %d", n, BlockSize)
	}

	start := time.Now()
	subframes := make([]*frame.Subframe, channels)
	for ch := range subframes {
		samples := make([]int32, n)
		for i := range samples {
			samples[i] = int32(block[i*channels+ch])
		}
		subframes[ch] = &frame.Subframe{
			SubHeader: frame.SubHeader{
				Pred: frame.PredVerbatim,
			},
			Samples:  samples,
			NSamples: n,
		}
	}

	layout := frame.ChannelsMono
	if channels == 2 {
		layout = frame.ChannelsLR
	}
	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(n),
			SampleRate:    e.preset.SampleRate,
			Channels:      layout,
			BitsPerSample: BitsPerSample,
		},
		Subframes: subframes,
	}

	if err := e.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	e.totalFrames += uint64(n)
	e.encodeTime += time.Since(start)
	return nil
}

func (e *FlacEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Close()
}

func (e *FlacEncoder) TotalFrames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalFrames
}

func (e *FlacEncoder) EncodeTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encodeTime
}
