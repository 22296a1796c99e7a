package audio

import (
	"fmt"
	"os"
	"sync"
	"time"
)

const fakeFrameSize = 1024

// FakeContext replays a fixed PCM buffer as microphone input and records
// what is sent to playback. In realtime mode capture and playback are paced
// by the wall clock; otherwise capture delivers everything synchronously on
// Start and playback runs until stopped.
type FakeContext struct {
	pcm      []byte
	realtime bool

	mu      sync.Mutex
	devices []DeviceInfo
	played  [][]byte
	active  int
	last    *FakeCapture
}

func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) >= WAVHeaderSize {
		data = data[WAVHeaderSize:]
	}
	return NewFakeContextPCM(data, realtime), nil
}

func NewFakeContextPCM(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{
		pcm:      pcm,
		realtime: realtime,
		devices:  []DeviceInfo{{ID: "fake-0", Name: "fake"}},
	}
}

// SetDevices replaces the reported capture devices; an empty list makes
// the context look like a machine without a microphone.
func (f *FakeContext) SetDevices(devices []DeviceInfo) {
	f.mu.Lock()
	f.devices = devices
	f.mu.Unlock()
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]DeviceInfo(nil), f.devices...), nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(device *DeviceInfo, format Format) (CaptureDevice, error) {
	if format.SampleRate == 0 || format.Channels == 0 {
		return nil, fmt.Errorf("fake capture: invalid format %+v", format)
	}
	name := "fake"
	if device != nil {
		name = device.Name
	}
	c := &FakeCapture{
		pcm:       f.pcm,
		realtime:  f.realtime,
		format:    format,
		name:      name,
		audioDone: make(chan struct{}),
	}
	f.mu.Lock()
	f.last = c
	f.mu.Unlock()
	return c, nil
}

// AudioDone closes once the most recent capture has delivered the whole
// buffer. Before any capture exists it never closes.
func (f *FakeContext) AudioDone() <-chan struct{} {
	f.mu.Lock()
	c := f.last
	f.mu.Unlock()
	if c == nil {
		return make(chan struct{})
	}
	return c.AudioDone()
}

func (f *FakeContext) NewPlayback(format Format) (PlaybackDevice, error) {
	return &fakePlayback{ctx: f, format: format, done: make(chan struct{})}, nil
}

// Played returns copies of every buffer handed to playback, in order.
func (f *FakeContext) Played() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.played))
	copy(out, f.played)
	return out
}

// Active reports how many playback streams have started and not finished.
func (f *FakeContext) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

type FakeCapture struct {
	pcm       []byte
	realtime  bool
	format    Format
	name      string
	audioDone chan struct{}

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
}

func (f *FakeCapture) AudioDone() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audioDone
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return f.name }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) feedChunk(cb DataCallback, pos, chunkBytes int) int {
	end := min(pos+chunkBytes, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	cb(chunk, uint32(len(chunk)/(2*int(f.format.Channels))))
	return end
}

func (f *FakeCapture) Start() error {
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	f.mu.Lock()
	audioDone := make(chan struct{})
	f.audioDone = audioDone
	f.mu.Unlock()
	chunkBytes := fakeFrameSize * 2 * int(f.format.Channels)

	if !f.realtime {
		if cb := f.callback(); cb != nil {
			for pos := 0; pos < len(f.pcm); {
				pos = f.feedChunk(cb, pos, chunkBytes)
			}
		}
		close(audioDone)
		close(f.feedDone)
		return nil
	}

	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(f.format.SampleRate)
	go func() {
		defer close(f.feedDone)
		pos := 0
		silence := make([]byte, chunkBytes)
		audioFinished := false

		for {
			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}

			cb := f.callback()
			if cb == nil {
				continue
			}
			if pos < len(f.pcm) {
				pos = f.feedChunk(cb, pos, chunkBytes)
				continue
			}
			if !audioFinished {
				audioFinished = true
				close(audioDone)
			}
			cb(silence, fakeFrameSize)
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() { f.Stop() }

type fakePlayback struct {
	ctx    *FakeContext
	format Format

	once    sync.Once
	started bool
	done    chan struct{}
}

func (p *fakePlayback) Play(pcm []byte) error {
	if p.started {
		return fmt.Errorf("fake playback: device already used")
	}
	p.started = true

	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	p.ctx.mu.Lock()
	p.ctx.played = append(p.ctx.played, buf)
	p.ctx.active++
	p.ctx.mu.Unlock()

	if p.ctx.realtime {
		d := time.Duration(len(pcm)) * time.Second / time.Duration(p.format.BytesPerSecond())
		time.AfterFunc(d, p.finish)
	}
	return nil
}

func (p *fakePlayback) finish() {
	p.once.Do(func() {
		p.ctx.mu.Lock()
		p.ctx.active--
		p.ctx.mu.Unlock()
		close(p.done)
	})
}

func (p *fakePlayback) Stop() {
	if p.started {
		p.finish()
	}
}

func (p *fakePlayback) Done() <-chan struct{} { return p.done }

func (p *fakePlayback) Close() { p.Stop() }
