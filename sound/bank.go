// Package sound keeps decoded clips in memory and plays them on demand.
package sound

import (
	"errors"
	"fmt"
	"sync"

	"voxclip/audio"
	"voxclip/encoder"
)

var (
	ErrUnknownSound = errors.New("unknown sound")
	ErrReleased     = errors.New("sound already released")
)

// Handle identifies a loaded clip. Handles are never reused, so a released
// handle stays invalid for the life of the bank.
type Handle uint64

type clip struct {
	format  audio.Format
	data    []byte
	playing audio.PlaybackDevice
}

// Bank owns every loaded clip. Replaying a clip that is still playing stops
// the old stream and starts again from the first sample; different clips
// play independently of each other.
type Bank struct {
	ctx audio.Context

	mu    sync.Mutex
	last  Handle
	clips map[Handle]*clip
}

func NewBank(ctx audio.Context) *Bank {
	return &Bank{ctx: ctx, clips: make(map[Handle]*clip)}
}

// Load decodes a recording and returns its handle and length in milliseconds.
func (b *Bank) Load(path string) (Handle, int64, error) {
	pcm, err := encoder.DecodeFile(path)
	if err != nil {
		return 0, 0, err
	}
	h := b.Add(pcm.Data, audio.Format{SampleRate: pcm.SampleRate, Channels: pcm.Channels})
	return h, pcm.DurationMillis(), nil
}

// Add registers raw PCM, e.g. a synthesized cue.
func (b *Bank) Add(pcm []byte, format audio.Format) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last++
	b.clips[b.last] = &clip{format: format, data: pcm}
	return b.last
}

func (b *Bank) lookup(h Handle) (*clip, error) {
	c, ok := b.clips[h]
	if ok {
		return c, nil
	}
	if h != 0 && h <= b.last {
		return nil, fmt.Errorf("sound %d: %w", h, ErrReleased)
	}
	return nil, fmt.Errorf("sound %d: %w", h, ErrUnknownSound)
}

// Replay starts h from the beginning and returns without waiting for it
// to finish.
func (b *Bank) Replay(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := b.lookup(h)
	if err != nil {
		return err
	}
	if c.playing != nil {
		c.playing.Stop()
		c.playing = nil
	}

	dev, err := b.ctx.NewPlayback(c.format)
	if err != nil {
		return fmt.Errorf("sound %d: %w", h, err)
	}
	if err := dev.Play(c.data); err != nil {
		dev.Close()
		return fmt.Errorf("sound %d: %w", h, err)
	}
	c.playing = dev

	go func() {
		<-dev.Done()
		b.mu.Lock()
		if c.playing == dev {
			c.playing = nil
		}
		b.mu.Unlock()
		dev.Close()
	}()
	return nil
}

// Playing reports whether h has a stream that has not drained yet.
func (b *Bank) Playing(h Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.clips[h]
	return ok && c.playing != nil
}

// Release stops h if it is playing and frees its samples.
func (b *Bank) Release(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := b.lookup(h)
	if err != nil {
		return err
	}
	if c.playing != nil {
		c.playing.Stop()
		c.playing = nil
	}
	delete(b.clips, h)
	return nil
}

// Len is the number of clips currently held.
func (b *Bank) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clips)
}

func (b *Bank) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for h, c := range b.clips {
		if c.playing != nil {
			c.playing.Stop()
		}
		delete(b.clips, h)
	}
}
