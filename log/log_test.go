package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(wd, "logs"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("VOXCLIP_LOG_PATH", "/tmp/voxclip-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/voxclip-env-log" {
		t.Errorf("got %q, want /tmp/voxclip-env-log", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("VOXCLIP_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "voxclip") {
		t.Errorf("default directory %q does not mention voxclip", got)
	}
}

func TestNoopBeforeInit(t *testing.T) {
	setupLogDir(t)
	Info("dropped")
	Errorf("dropped %d", 1)
	RecordingSaved("x.flac", 1, time.Second, 0, 1)
	if _, err := os.Stat(filepath.Join(Dir(), diagFileName)); !os.IsNotExist(err) {
		t.Errorf("log file should not exist before Init, stat err = %v", err)
	}
}

func TestEventsWritten(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	RecordingStarted("fake", "high")
	RecordingSaved("/some/dir/recording-1.flac", 44100, time.Second, 20*time.Millisecond, 12.5)
	SoundReleased(7)
	Info("recording_device: fake")
	Error("tui exited: boom")
	Errorf("start failed: %v", os.ErrPermission)
	Close()

	data, err := os.ReadFile(filepath.Join(tmp, diagFileName))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		"recording_start", "device=fake",
		"recording_saved", "file=recording-1.flac", "frames=44100", "encode_ms=20",
		"sound_released", "sound=7",
		"recording_device: fake",
		"tui exited: boom",
		"start failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestCrashFileBanner(t *testing.T) {
	tmp := setupLogDir(t)
	f, err := CrashFile()
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	data, err := os.ReadFile(filepath.Join(tmp, "crash_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "=== Session") {
		t.Errorf("missing banner: %q", data)
	}
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}
