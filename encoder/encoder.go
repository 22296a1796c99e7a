package encoder

import "time"

const (
	BitsPerSample = 16
	BlockSize     = 4096
)

// Preset is a fixed capture and container configuration. Recordings only
// ever use HighQuality; the type exists so the preset travels as one value.
type Preset struct {
	Name       string
	SampleRate uint32
	Channels   uint32
	Ext        string
}

var HighQuality = Preset{
	Name:       "high",
	SampleRate: 44100,
	Channels:   1,
	Ext:        ".flac",
}

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	TotalFrames() uint64
	EncodeTime() time.Duration
}
