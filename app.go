package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"voxclip/audio"
	"voxclip/host"
	"voxclip/log"
	"voxclip/recorder"
	"voxclip/shutdown"
)

func runTUI(parent context.Context, opts *rootOptions) error {
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		return fmt.Errorf("initializing audio: %w", err)
	}
	defer actx.Close()

	device, err := resolveDevice(actx, opts)
	if err != nil {
		return err
	}
	log.Info("recording_device: " + deviceLabel(device))

	desk, err := host.NewDesktop(host.DesktopConfig{
		Audio:   actx,
		Device:  device,
		Dir:     opts.cfg.RecordingsDir,
		Cues:    opts.cfg.Cues,
		OnLevel: func(rms float64) { tuiSend(levelMsg{Level: rms}) },
	})
	if err != nil {
		return err
	}
	defer desk.Close()

	log.SessionStart(deviceLabel(device), host.HighQuality.Name, opts.cfg.RecordingsDir)

	ctx, stop := shutdown.Context(parent)
	defer stop()

	m := newTUIModel(ctx, recorder.NewController(desk), deviceLabel(device))
	m.onRefused = desk.ErrorCue

	p := NewTUIProgram(m)
	tuiMu.Lock()
	tuiProgram = p
	tuiMu.Unlock()

	final, err := p.Run()

	tuiMu.Lock()
	tuiProgram = nil
	tuiMu.Unlock()

	if fm, ok := final.(tuiModel); ok {
		log.SessionEnd(fm.state.Len())
	}
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		log.Error("tui exited: " + err.Error())
	}
	return err
}

// resolveDevice picks the capture device: the interactive picker with
// --setup, otherwise the configured name. An unknown name falls back to the
// system default.
func resolveDevice(actx audio.Context, opts *rootOptions) (*audio.DeviceInfo, error) {
	if opts.setup {
		dev, err := audio.SelectDevice(actx)
		if errors.Is(err, audio.ErrSelectionCancelled) {
			return nil, err
		}
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v\nFalling back to default device\n", err)
			return nil, nil
		}
		return dev, nil
	}

	dev, err := audio.FindDevice(actx, opts.cfg.Device)
	if err != nil {
		log.Warnf("device lookup failed: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: %v, using system default\n", err)
		return nil, nil
	}
	return dev, nil
}

func deviceLabel(dev *audio.DeviceInfo) string {
	if dev == nil {
		return "system default"
	}
	if audio.IsBluetooth(dev.Name) {
		return dev.Name + " (BT!)"
	}
	return dev.Name
}
