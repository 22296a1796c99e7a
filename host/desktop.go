package host

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"voxclip/audio"
	"voxclip/encoder"
	"voxclip/log"
	"voxclip/sound"
)

type DesktopConfig struct {
	Audio   audio.Context
	Device  *audio.DeviceInfo // nil = system default
	Dir     string            // where recordings are written
	Cues    bool
	OnLevel func(rms float64) // called from the capture thread
}

// Desktop implements Host on top of an audio.Context. Recordings are
// encoded to FLAC while they are captured and decoded fully into memory
// when loaded.
type Desktop struct {
	audio   audio.Context
	device  *audio.DeviceInfo
	dir     string
	bank    *sound.Bank
	cues    *sound.Cues
	onLevel func(float64)
	now     func() time.Time

	mu         sync.Mutex
	opts       SessionOptions
	configured bool
	lastID     SessionHandle
	active     *recording
}

type recording struct {
	id      SessionHandle
	capture audio.CaptureDevice
	file    *os.File
	enc     *encoder.FlacEncoder
	blocks  *encoder.Blocker
	started time.Time
}

func NewDesktop(cfg DesktopConfig) (*Desktop, error) {
	if cfg.Audio == nil {
		return nil, errors.New("desktop host: no audio context")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating recordings directory: %w", err)
	}
	bank := sound.NewBank(cfg.Audio)
	return &Desktop{
		audio:   cfg.Audio,
		device:  cfg.Device,
		dir:     cfg.Dir,
		bank:    bank,
		cues:    sound.NewCues(bank, cfg.Cues),
		onLevel: cfg.OnLevel,
		now:     time.Now,
	}, nil
}

// RequestMicrophonePermission grants access when the configured capture
// device (or any device, for the system default) is present.
func (d *Desktop) RequestMicrophonePermission(ctx context.Context) (Permission, error) {
	if err := ctx.Err(); err != nil {
		return Denied, err
	}
	devices, err := d.audio.Devices()
	if err != nil {
		return Denied, fmt.Errorf("%w: listing capture devices: %w", ErrMicrophoneUnavailable, err)
	}
	if d.device == nil {
		if len(devices) == 0 {
			return Denied, nil
		}
		return Granted, nil
	}
	for _, dev := range devices {
		if dev.ID == d.device.ID {
			return Granted, nil
		}
	}
	log.Warnf("capture device gone: %s", d.device.Name)
	return Denied, nil
}

func (d *Desktop) ConfigureAudioSession(ctx context.Context, opts SessionOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	d.opts = opts
	d.configured = true
	d.mu.Unlock()
	return nil
}

func (d *Desktop) BeginRecording(ctx context.Context, preset Preset) (SessionHandle, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.configured || !d.opts.AllowRecording {
		return 0, ErrSessionNotConfigured
	}
	if d.active != nil {
		return 0, ErrRecordingActive
	}

	started := d.now()
	path := d.nextPath(started, preset.Ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return 0, fmt.Errorf("creating recording file: %w", err)
	}
	abandon := func() {
		f.Close()
		os.Remove(path)
	}

	enc, err := encoder.NewFlac(f, preset)
	if err != nil {
		abandon()
		return 0, err
	}

	capture, err := d.audio.NewCapture(d.device, audio.Format{SampleRate: preset.SampleRate, Channels: preset.Channels})
	if err != nil {
		abandon()
		return 0, fmt.Errorf("opening capture device: %w", err)
	}

	blocks := encoder.NewBlocker(enc, preset.Channels)
	capture.SetCallback(func(data []byte, _ uint32) {
		if _, err := blocks.Write(data); err != nil {
			return // surfaced by Flush at finalize
		}
		if d.onLevel != nil && len(data) > 1 {
			d.onLevel(rms(data))
		}
	})
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		abandon()
		return 0, fmt.Errorf("starting capture: %w", err)
	}

	d.lastID++
	d.active = &recording{
		id:      d.lastID,
		capture: capture,
		file:    f,
		enc:     enc,
		blocks:  blocks,
		started: started,
	}
	log.RecordingStarted(capture.DeviceName(), preset.Name)
	if err := d.cues.Start(); err != nil {
		log.Warnf("start cue: %v", err)
	}
	return d.lastID, nil
}

// nextPath picks a file name that does not exist yet. Caller holds d.mu.
func (d *Desktop) nextPath(t time.Time, ext string) string {
	base := "recording-" + t.Format("20060102-150405")
	path := filepath.Join(d.dir, base+ext)
	for i := 2; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = filepath.Join(d.dir, fmt.Sprintf("%s-%d%s", base, i, ext))
	}
}

// FinalizeRecording always ends the session, even when the file could not
// be completed; a broken file is removed rather than handed out.
func (d *Desktop) FinalizeRecording(ctx context.Context, session SessionHandle) (FileLocation, error) {
	d.mu.Lock()
	rec := d.active
	if rec == nil || rec.id != session {
		d.mu.Unlock()
		return "", ErrNoSession
	}
	d.active = nil
	d.mu.Unlock()

	rec.capture.Stop()
	rec.capture.ClearCallback()
	rec.capture.Close()
	if err := d.cues.Stop(); err != nil {
		log.Warnf("stop cue: %v", err)
	}

	path := rec.file.Name()
	err := rec.blocks.Flush()
	if closeErr := rec.enc.Close(); err == nil {
		err = closeErr
	}
	if closeErr := rec.file.Close(); err == nil && !errors.Is(closeErr, os.ErrClosed) {
		err = closeErr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("finalizing recording: %w", err)
	}

	frames := rec.enc.TotalFrames()
	var sizeKB float64
	if st, statErr := os.Stat(path); statErr == nil {
		sizeKB = float64(st.Size()) / 1024
	}
	log.RecordingSaved(path, frames, d.now().Sub(rec.started), rec.enc.EncodeTime(), sizeKB)
	return FileLocation(path), nil
}

func (d *Desktop) LoadSound(ctx context.Context, file FileLocation) (SoundHandle, int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	h, ms, err := d.bank.Load(string(file))
	if err != nil {
		return 0, 0, fmt.Errorf("loading %s: %w", filepath.Base(string(file)), err)
	}
	return SoundHandle(h), ms, nil
}

func (d *Desktop) Replay(ctx context.Context, s SoundHandle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.bank.Replay(sound.Handle(s))
}

func (d *Desktop) ReleaseSound(ctx context.Context, s SoundHandle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.bank.Release(sound.Handle(s)); err != nil {
		return err
	}
	log.SoundReleased(uint64(s))
	return nil
}

// ErrorCue plays the failure tone; used when a user action is refused.
func (d *Desktop) ErrorCue() {
	if err := d.cues.Error(); err != nil {
		log.Warnf("error cue: %v", err)
	}
}

// Close abandons an in-flight recording and stops all playback.
func (d *Desktop) Close() {
	d.mu.Lock()
	rec := d.active
	d.active = nil
	d.mu.Unlock()

	if rec != nil {
		rec.capture.Stop()
		rec.capture.ClearCallback()
		rec.capture.Close()
		rec.enc.Close()
		rec.file.Close()
		os.Remove(rec.file.Name())
		log.Warn("recording abandoned on shutdown")
	}
	d.bank.Close()
}

func rms(data []byte) float64 {
	var sumSquares float64
	n := len(data) / 2
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(n))
}
