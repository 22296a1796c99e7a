package encoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// PCM is a fully decoded clip as interleaved 16-bit little-endian samples.
type PCM struct {
	SampleRate uint32
	Channels   uint32
	Frames     uint64
	Data       []byte
}

// DurationMillis is the playable length of the clip.
func (p *PCM) DurationMillis() int64 {
	if p.SampleRate == 0 {
		return 0
	}
	return int64(p.Frames * 1000 / uint64(p.SampleRate))
}

// DecodeFile reads a 16-bit FLAC file written by FlacEncoder (or any other
// 16-bit FLAC) into memory.
func DecodeFile(path string) (*PCM, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening flac: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	if info.BitsPerSample != BitsPerSample {
		return nil, fmt.Errorf("flac: %d-bit audio not supported", info.BitsPerSample)
	}

	pcm := &PCM{
		SampleRate: info.SampleRate,
		Channels:   uint32(info.NChannels),
	}
	if info.NSamples > 0 {
		pcm.Data = make([]byte, 0, info.NSamples*uint64(info.NChannels)*2)
	}

	var sample [2]byte
	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding flac frame: %w", err)
		}
		if len(f.Subframes) == 0 {
			continue
		}
		n := f.Subframes[0].NSamples
		for i := 0; i < n; i++ {
			for _, sub := range f.Subframes {
				binary.LittleEndian.PutUint16(sample[:], uint16(int16(sub.Samples[i])))
				pcm.Data = append(pcm.Data, sample[:]...)
			}
		}
		pcm.Frames += uint64(n)
	}
	return pcm, nil
}
