// Package doctor runs the `voxclip doctor` diagnostics.
package doctor

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"voxclip/audio"
	"voxclip/clipboard"
	"voxclip/config"
	"voxclip/host"
)

const quietLevel = 0.02

type Options struct {
	Device     string
	ConfigPath string
	LogDir     string
	Out        io.Writer

	// Audio replaces the system audio context when set.
	Audio audio.Context
	// RecordFor is how long the test recording runs; zero means one second.
	RecordFor time.Duration
	// Clipboard replaces the system clipboard when set.
	Clipboard Clipboard
}

type Clipboard interface {
	Available() bool
	Read() (string, error)
	Copy(text string) error
}

type systemClipboard struct{}

func (systemClipboard) Available() bool        { return clipboard.Available() }
func (systemClipboard) Read() (string, error)  { return clipboard.Read() }
func (systemClipboard) Copy(text string) error { return clipboard.Copy(text) }

// Run executes the checks and returns an exit code (0=all pass, 1=any fail).
func Run(ctx context.Context, opts Options) int {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if opts.RecordFor == 0 {
		opts.RecordFor = time.Second
	}
	if opts.Clipboard == nil {
		opts.Clipboard = systemClipboard{}
	}

	fmt.Fprintln(out, "voxclip doctor - system diagnostics")
	fmt.Fprintln(out, "===================================")

	allPass := checkConfig(out, opts.ConfigPath)

	actx := opts.Audio
	if actx == nil {
		var err error
		actx, err = audio.NewContext()
		if err != nil {
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  FAIL: cannot connect to audio: %v\n", err)
			return 1
		}
		defer actx.Close()
	}

	device, ok := checkDevices(out, actx, opts.Device)
	if !ok {
		allPass = false
	}
	if ok && !checkRoundTrip(ctx, out, actx, device, opts.RecordFor) {
		allPass = false
	}
	if !checkLogDir(out, opts.LogDir) {
		allPass = false
	}
	checkClipboard(out, opts.Clipboard)

	fmt.Fprintln(out)
	if allPass {
		fmt.Fprintln(out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(out, "Some checks failed. See details above.")
	return 1
}

func checkConfig(out io.Writer, path string) bool {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[1/5] Configuration")

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(out, "  FAIL: %v\n", err)
		return false
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(out, "  no config file at %s, using defaults\n", path)
	}
	fmt.Fprintf(out, "  recordings: %s\n", cfg.RecordingsDir)
	fmt.Fprintln(out, "  PASS: configuration loaded")
	return true
}

func checkDevices(out io.Writer, actx audio.Context, name string) (*audio.DeviceInfo, bool) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[2/5] Capture devices")

	devices, err := actx.Devices()
	if err != nil {
		fmt.Fprintf(out, "  FAIL: cannot list devices: %v\n", err)
		return nil, false
	}
	if len(devices) == 0 {
		fmt.Fprintln(out, "  FAIL: no capture devices found")
		return nil, false
	}
	for i, d := range devices {
		fmt.Fprintf(out, "  %d. %s\n", i+1, d.Name)
	}

	device, err := audio.FindDevice(actx, name)
	if err != nil {
		fmt.Fprintf(out, "  FAIL: %v\n", err)
		return nil, false
	}
	if device == nil {
		fmt.Fprintln(out, "  PASS: using system default device")
	} else {
		if audio.IsBluetooth(device.Name) {
			fmt.Fprintln(out, "  Warning: bluetooth microphones often capture at reduced quality")
		}
		fmt.Fprintf(out, "  PASS: using %s\n", device.Name)
	}
	return device, true
}

// checkRoundTrip records a short clip through the same path the recorder
// uses, then loads and plays it back.
func checkRoundTrip(ctx context.Context, out io.Writer, actx audio.Context, device *audio.DeviceInfo, d time.Duration) bool {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[3/5] Record and play back")

	dir, err := os.MkdirTemp("", "voxclip-doctor-")
	if err != nil {
		fmt.Fprintf(out, "  FAIL: %v\n", err)
		return false
	}
	defer os.RemoveAll(dir)

	var levelMu sync.Mutex
	var peak float64
	desk, err := host.NewDesktop(host.DesktopConfig{
		Audio:  actx,
		Device: device,
		Dir:    dir,
		OnLevel: func(rms float64) {
			levelMu.Lock()
			peak = math.Max(peak, rms)
			levelMu.Unlock()
		},
	})
	if err != nil {
		fmt.Fprintf(out, "  FAIL: %v\n", err)
		return false
	}
	defer desk.Close()

	if err := desk.ConfigureAudioSession(ctx, host.SessionOptions{AllowRecording: true, PlayInSilentMode: true}); err != nil {
		fmt.Fprintf(out, "  FAIL: %v\n", err)
		return false
	}
	session, err := desk.BeginRecording(ctx, host.HighQuality)
	if err != nil {
		fmt.Fprintf(out, "  FAIL: cannot start recording: %v\n", err)
		return false
	}

	fmt.Fprintf(out, "  Recording %s, speak now...", d)
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	fmt.Fprintln(out, " done")

	file, err := desk.FinalizeRecording(ctx, session)
	if err != nil {
		fmt.Fprintf(out, "  FAIL: cannot finish recording: %v\n", err)
		return false
	}
	sound, millis, err := desk.LoadSound(ctx, file)
	if err != nil {
		fmt.Fprintf(out, "  FAIL: cannot read recording back: %v\n", err)
		return false
	}
	defer desk.ReleaseSound(ctx, sound)

	if millis == 0 {
		fmt.Fprintln(out, "  FAIL: no audio captured")
		return false
	}

	levelMu.Lock()
	p := peak
	levelMu.Unlock()
	fmt.Fprintf(out, "  captured %.1fs, peak level %.3f\n", float64(millis)/1000, p)
	if p < quietLevel {
		fmt.Fprintln(out, "  Warning: input is very quiet, check the microphone gain")
	}

	if err := desk.Replay(ctx, sound); err != nil {
		fmt.Fprintf(out, "  FAIL: playback: %v\n", err)
		return false
	}
	select {
	case <-time.After(time.Duration(millis) * time.Millisecond):
	case <-ctx.Done():
	}
	fmt.Fprintln(out, "  PASS: recording played back")
	return true
}

func checkLogDir(out io.Writer, dir string) bool {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[4/5] Log directory")

	if dir == "" {
		fmt.Fprintln(out, "  FAIL: log directory not resolved")
		return false
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(out, "  FAIL: %v\n", err)
		return false
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		fmt.Fprintf(out, "  FAIL: %s is not writable: %v\n", dir, err)
		return false
	}
	f.Close()
	os.Remove(f.Name())
	fmt.Fprintf(out, "  PASS: %s\n", filepath.Clean(dir))
	return true
}

// checkClipboard is informational; copying paths is optional. The round
// trip puts the previous clipboard contents back afterwards.
func checkClipboard(out io.Writer, cb Clipboard) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[5/5] Clipboard")
	if !cb.Available() {
		fmt.Fprintln(out, "  Warning: no clipboard utility found (install xclip, xsel or wl-clipboard); copying paths is disabled")
		return
	}

	previous, err := cb.Read()
	if err != nil {
		fmt.Fprintf(out, "  Warning: could not read clipboard: %v\n", err)
		return
	}
	sentinel := fmt.Sprintf("voxclip-doctor-%d", time.Now().UnixNano())
	if err := cb.Copy(sentinel); err != nil {
		fmt.Fprintf(out, "  Warning: clipboard copy failed: %v\n", err)
		return
	}
	got, err := cb.Read()
	if restoreErr := cb.Copy(previous); restoreErr != nil {
		fmt.Fprintf(out, "  Warning: could not restore clipboard: %v\n", restoreErr)
	}
	if err != nil {
		fmt.Fprintf(out, "  Warning: could not read clipboard back: %v\n", err)
		return
	}
	if got != sentinel {
		fmt.Fprintf(out, "  Warning: clipboard did not keep the copied text (got %q)\n", got)
		return
	}
	fmt.Fprintln(out, "  PASS: clipboard copy verified")
}
