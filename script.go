package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"voxclip/audio"
	"voxclip/host"
	"voxclip/log"
	"voxclip/recorder"
)

// runScript drives the recorder from line commands on in, with the WAV file
// from --script standing in for the microphone. Indices are 1-based, as
// shown by LIST.
func runScript(ctx context.Context, opts *rootOptions, in io.Reader, out io.Writer) error {
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	fake, err := audio.NewFakeContext(opts.script, opts.realtime)
	if err != nil {
		return fmt.Errorf("loading WAV: %w", err)
	}
	desk, err := host.NewDesktop(host.DesktopConfig{
		Audio: fake,
		Dir:   opts.cfg.RecordingsDir,
	})
	if err != nil {
		return err
	}
	defer desk.Close()

	log.SessionStart("fake", host.HighQuality.Name, opts.cfg.RecordingsDir)

	ctl := recorder.NewController(desk)
	var s recorder.State
	defer func() { log.SessionEnd(s.Len()) }()

	started := false
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		switch strings.ToUpper(cmd) {
		case "":
		case "START":
			s = ctl.Start(ctx, s)
			started = started || s.Recording()
			printStatus(out, s)
		case "STOP":
			s = ctl.Stop(ctx, s)
			printStatus(out, s)
		case "PLAY":
			i, ok := scriptIndex(out, arg)
			if !ok {
				continue
			}
			if err := ctl.Play(ctx, s, i); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "playing %d\n", i+1)
		case "DELETE":
			i, ok := scriptIndex(out, arg)
			if !ok {
				continue
			}
			next, err := ctl.Delete(ctx, s, i)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			s = next
			printStatus(out, s)
		case "LIST":
			if s.Len() == 0 {
				fmt.Fprintln(out, "(no recordings)")
			}
			for i, e := range s.Entries {
				fmt.Fprintln(out, rowText(i, e))
			}
		case "SLEEP":
			ms, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Fprintf(out, "error: bad duration %q\n", arg)
				continue
			}
			time.Sleep(time.Duration(ms) * time.Millisecond)
		case "WAIT_AUDIO_DONE":
			if !started {
				fmt.Fprintln(out, "error: nothing recorded yet")
				continue
			}
			select {
			case <-fake.AudioDone():
			case <-ctx.Done():
				return nil
			}
		case "QUIT":
			return nil
		default:
			fmt.Fprintf(out, "error: unknown command %q\n", cmd)
		}
	}
	return scanner.Err()
}

func scriptIndex(out io.Writer, arg string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		fmt.Fprintf(out, "error: bad index %q\n", arg)
		return 0, false
	}
	return n - 1, true
}

func printStatus(out io.Writer, s recorder.State) {
	state := "idle"
	if s.Recording() {
		state = "recording"
	}
	fmt.Fprintf(out, "%s entries=%d", state, s.Len())
	if s.Message != "" {
		fmt.Fprintf(out, " message=%q", s.Message)
	}
	fmt.Fprintln(out)
}
