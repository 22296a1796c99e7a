package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	appName      = "voxclip"
	envLogPath   = "VOXCLIP_LOG_PATH"
	diagFileName = "diagnostics_log.txt"
)

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	logMu    sync.Mutex
	logReady bool
	dir      string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: --logpath flag
	if flagPath != "" {
		return absPath(flagPath)
	}

	// Priority 2: VOXCLIP_LOG_PATH environment variable
	if envPath := os.Getenv(envLogPath); envPath != "" {
		return absPath(envPath)
	}

	// Priority 3: default OS-specific location
	return defaultDir()
}

func absPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, diagFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", os.Getpid()).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

// CrashFile opens crash_log.txt in the log directory and writes a session
// banner; the caller hands it to debug.SetCrashOutput.
func CrashFile() (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(dir, "crash_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	return f, nil
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(device, preset, recordingsDir string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("device", device).
		Str("preset", preset).
		Str("dir", recordingsDir).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}

func RecordingStarted(device, preset string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("device", device).
		Str("preset", preset).
		Msg("recording_start")
}

func RecordingSaved(path string, frames uint64, wall, encode time.Duration, sizeKB float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("file", filepath.Base(path)).
		Uint64("frames", frames).
		Float64("wall_s", wall.Seconds()).
		Int64("encode_ms", encode.Milliseconds()).
		Float64("size_kb", sizeKB).
		Msg("recording_saved")
}

func SoundReleased(handle uint64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Uint64("sound", handle).
		Msg("sound_released")
}
