package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voxclip/audio"
	"voxclip/config"
	"voxclip/log"
)

// writeWAV writes frames of mono 44.1kHz audio behind a blank header; the
// fake capture skips the header without parsing it.
func writeWAV(t *testing.T, frames int) string {
	t.Helper()
	buf := make([]byte, audio.WAVHeaderSize+frames*2)
	copy(buf, "RIFF")
	for i := range frames {
		v := int16((i%200)*300 - 30000)
		binary.LittleEndian.PutUint16(buf[audio.WAVHeaderSize+i*2:], uint16(v))
	}
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runTestScript(t *testing.T, input string) string {
	t.Helper()
	return runScriptWAV(t, writeWAV(t, 44100), input)
}

func runScriptWAV(t *testing.T, wav, input string) string {
	t.Helper()
	log.SetDir(t.TempDir())
	opts := &rootOptions{
		script: wav,
		cfg:    config.Config{RecordingsDir: t.TempDir()},
	}
	var out bytes.Buffer
	if err := runScript(context.Background(), opts, strings.NewReader(input), &out); err != nil {
		t.Fatal(err)
	}
	return out.String()
}

func TestScriptRecordPlayDelete(t *testing.T) {
	out := runTestScript(t, strings.Join([]string{
		"START",
		"WAIT_AUDIO_DONE",
		"STOP",
		"LIST",
		"PLAY 1",
		"PLAY 2",
		"DELETE 1",
		"LIST",
		"QUIT",
		"START",
	}, "\n"))

	want := []string{
		"recording entries=0",
		"idle entries=1",
		"1. Recording 1 - 0:01",
		"playing 1",
		"error: index out of range",
		"idle entries=0",
		"(no recordings)",
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), out)
	}
	for i, w := range want {
		if !strings.HasPrefix(lines[i], w) {
			t.Errorf("line %d = %q, want prefix %q", i+1, lines[i], w)
		}
	}
}

func TestScriptNoops(t *testing.T) {
	out := runTestScript(t, "STOP\nWAIT_AUDIO_DONE\nSTART\nSTART\nBOGUS\nPLAY x\n")

	for _, w := range []string{
		"idle entries=0",
		"error: nothing recorded yet",
		"recording entries=0\nrecording entries=0",
		`error: unknown command "BOGUS"`,
		`error: bad index "x"`,
	} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestScriptEmptyRecording(t *testing.T) {
	out := runScriptWAV(t, writeWAV(t, 0), "START\nSTOP\nLIST\nPLAY 1\n")

	for _, w := range []string{"idle entries=1", "1. Recording 1 - 0:00", "playing 1"} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestScriptWritesDiagnostics(t *testing.T) {
	logDir := t.TempDir()
	opts := &rootOptions{
		script: writeWAV(t, 44100),
		cfg:    config.Config{RecordingsDir: t.TempDir()},
	}
	log.SetDir(logDir)
	if err := runScript(context.Background(), opts, strings.NewReader("START\nSTOP\nQUIT\n"), &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(logDir, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range []string{"session_start", "recording_start", "recording_saved", "session_end"} {
		if !strings.Contains(string(data), w) {
			t.Errorf("diagnostics missing %q:\n%s", w, data)
		}
	}
}
