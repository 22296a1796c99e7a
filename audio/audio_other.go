//go:build !linux

package audio

import (
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

type malgoContext struct {
	ctx *malgo.AllocatedContext
}

func NewContext() (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	return &malgoContext{ctx: ctx}, nil
}

func (m *malgoContext) Devices() ([]DeviceInfo, error) {
	devices, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	var result []DeviceInfo
	for _, d := range devices {
		result = append(result, DeviceInfo{
			ID:   hex.EncodeToString(d.ID.Pointer()[:]),
			Name: d.Name(),
		})
	}
	return result, nil
}

func (m *malgoContext) NewCapture(device *DeviceInfo, format Format) (CaptureDevice, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = format.Channels
	deviceConfig.SampleRate = format.SampleRate

	if device != nil {
		idBytes, err := hex.DecodeString(device.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid device ID: %w", err)
		}
		var devID malgo.DeviceID
		copy(devID[:], idBytes)
		deviceConfig.Capture.DeviceID = devID.Pointer()
	}

	c := &malgoCapture{info: device}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, frameCount uint32) {
			if cb := c.callback.Load(); cb != nil {
				pcm := make([]byte, len(data))
				copy(pcm, data)
				(*cb)(pcm, frameCount)
			}
		},
	}

	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("malgo capture init: %w", err)
	}
	c.device = dev
	return c, nil
}

func (m *malgoContext) NewPlayback(format Format) (PlaybackDevice, error) {
	p := &malgoPlayback{
		format:  format,
		drained: make(chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = format.Channels
	deviceConfig.SampleRate = format.SampleRate

	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: p.fill})
	if err != nil {
		return nil, fmt.Errorf("malgo playback init: %w", err)
	}
	p.device = dev
	return p, nil
}

func (m *malgoContext) Close() {
	m.ctx.Uninit()
	m.ctx.Free()
}

type malgoCapture struct {
	device   *malgo.Device
	info     *DeviceInfo
	callback atomic.Pointer[DataCallback]
}

func (c *malgoCapture) Start() error {
	return c.device.Start()
}

func (c *malgoCapture) Stop() {
	c.device.Stop()
}

func (c *malgoCapture) Close() {
	c.device.Uninit()
}

func (c *malgoCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *malgoCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *malgoCapture) DeviceName() string {
	if c.info != nil {
		return c.info.Name
	}
	return "system default"
}

type malgoPlayback struct {
	device *malgo.Device
	format Format

	// written before Start, read only from the device callback afterwards
	pcm []byte
	pos atomic.Uint32

	drainOnce sync.Once
	drained   chan struct{}
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
	started   atomic.Bool
}

func (p *malgoPlayback) fill(out, _ []byte, frameCount uint32) {
	pos := p.pos.Load()
	total := uint32(len(p.pcm))
	want := frameCount * p.format.Channels * 2
	n := min(want, total-pos)

	copy(out[:n], p.pcm[pos:pos+n])
	for i := n; i < uint32(len(out)); i++ {
		out[i] = 0
	}
	p.pos.Store(pos + n)
	if pos+n >= total {
		p.drainOnce.Do(func() { close(p.drained) })
	}
}

func (p *malgoPlayback) Play(pcm []byte) error {
	if !p.started.CompareAndSwap(false, true) {
		return fmt.Errorf("malgo playback: device already used")
	}
	p.pcm = pcm
	if err := p.device.Start(); err != nil {
		close(p.done)
		return fmt.Errorf("malgo playback start: %w", err)
	}

	// The device must not be stopped from inside its own callback.
	go func() {
		defer close(p.done)
		select {
		case <-p.drained:
		case <-p.stop:
		}
		p.device.Stop()
	}()
	return nil
}

func (p *malgoPlayback) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *malgoPlayback) Done() <-chan struct{} { return p.done }

func (p *malgoPlayback) Close() {
	p.Stop()
	if p.started.Load() {
		<-p.done
	}
	p.device.Uninit()
}
