// Package host is the boundary between the recorder and the machine's audio
// subsystem. The recorder only talks to the Host interface; Desktop binds
// it to a real capture/playback backend and Fake is an in-memory double.
package host

import (
	"context"
	"errors"

	"voxclip/encoder"
)

var (
	ErrNoSession             = errors.New("no recording session")
	ErrSessionNotConfigured  = errors.New("audio session not configured for recording")
	ErrRecordingActive       = errors.New("a recording is already in progress")
	ErrMicrophoneUnavailable = errors.New("microphone unavailable")
)

type Permission int

const (
	Denied Permission = iota
	Granted
)

func (p Permission) String() string {
	if p == Granted {
		return "granted"
	}
	return "denied"
}

// SessionOptions mirror the mobile audio-mode switches. PlayInSilentMode
// has no effect on desktop hosts, which have no ringer switch.
type SessionOptions struct {
	AllowRecording   bool
	PlayInSilentMode bool
}

type Preset = encoder.Preset

// HighQuality is the only recording preset.
var HighQuality = encoder.HighQuality

type (
	SessionHandle uint64
	SoundHandle   uint64
	FileLocation  string
)

type Host interface {
	RequestMicrophonePermission(ctx context.Context) (Permission, error)
	ConfigureAudioSession(ctx context.Context, opts SessionOptions) error
	BeginRecording(ctx context.Context, preset Preset) (SessionHandle, error)
	FinalizeRecording(ctx context.Context, session SessionHandle) (FileLocation, error)
	LoadSound(ctx context.Context, file FileLocation) (SoundHandle, int64, error)
	Replay(ctx context.Context, sound SoundHandle) error
	ReleaseSound(ctx context.Context, sound SoundHandle) error
}
