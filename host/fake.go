package host

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fake is an in-memory Host with a manual clock. Set the exported error
// fields to make the matching call fail.
type Fake struct {
	mu sync.Mutex

	Permission    Permission
	PermissionErr error
	ConfigureErr  error
	BeginErr      error
	FinalizeErr   error
	LoadErr       error
	ReplayErr     error
	ReleaseErr    error

	options   SessionOptions
	now       time.Duration
	lastID    uint64
	active    map[SessionHandle]time.Duration
	files     map[FileLocation]int64
	sounds    map[SoundHandle]bool
	released  map[SoundHandle]int
	replayed  []SoundHandle
	begun     int
	permAsked int
}

func NewFake() *Fake {
	return &Fake{
		Permission: Granted,
		active:     make(map[SessionHandle]time.Duration),
		files:      make(map[FileLocation]int64),
		sounds:     make(map[SoundHandle]bool),
		released:   make(map[SoundHandle]int),
	}
}

// Advance moves the fake clock; a recording's length is the clock delta
// between BeginRecording and FinalizeRecording.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now += d
	f.mu.Unlock()
}

func (f *Fake) RequestMicrophonePermission(context.Context) (Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permAsked++
	if f.PermissionErr != nil {
		return Denied, f.PermissionErr
	}
	return f.Permission, nil
}

func (f *Fake) ConfigureAudioSession(_ context.Context, opts SessionOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConfigureErr != nil {
		return f.ConfigureErr
	}
	f.options = opts
	return nil
}

func (f *Fake) BeginRecording(_ context.Context, _ Preset) (SessionHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BeginErr != nil {
		return 0, f.BeginErr
	}
	if !f.options.AllowRecording {
		return 0, ErrSessionNotConfigured
	}
	if len(f.active) > 0 {
		return 0, ErrRecordingActive
	}
	f.lastID++
	h := SessionHandle(f.lastID)
	f.active[h] = f.now
	f.begun++
	return h, nil
}

func (f *Fake) FinalizeRecording(_ context.Context, s SessionHandle) (FileLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	started, ok := f.active[s]
	if !ok {
		return "", ErrNoSession
	}
	delete(f.active, s)
	if f.FinalizeErr != nil {
		return "", f.FinalizeErr
	}
	loc := FileLocation(fmt.Sprintf("file:///recordings/recording-%d.flac", s))
	f.files[loc] = (f.now - started).Milliseconds()
	return loc, nil
}

func (f *Fake) LoadSound(_ context.Context, file FileLocation) (SoundHandle, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoadErr != nil {
		return 0, 0, f.LoadErr
	}
	ms, ok := f.files[file]
	if !ok {
		return 0, 0, fmt.Errorf("no such recording %s", file)
	}
	f.lastID++
	h := SoundHandle(f.lastID)
	f.sounds[h] = true
	return h, ms, nil
}

func (f *Fake) Replay(_ context.Context, s SoundHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReplayErr != nil {
		return f.ReplayErr
	}
	if !f.sounds[s] {
		return fmt.Errorf("sound %d not loaded", s)
	}
	f.replayed = append(f.replayed, s)
	return nil
}

func (f *Fake) ReleaseSound(_ context.Context, s SoundHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released[s]++
	if f.ReleaseErr != nil {
		return f.ReleaseErr
	}
	if !f.sounds[s] {
		return fmt.Errorf("sound %d not loaded", s)
	}
	delete(f.sounds, s)
	return nil
}

// ActiveSessions is the number of recordings begun and not finalized.
func (f *Fake) ActiveSessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.active)
}

// Begun counts successful BeginRecording calls.
func (f *Fake) Begun() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begun
}

// ReleaseCalls counts ReleaseSound calls for s, successful or not.
func (f *Fake) ReleaseCalls(s SoundHandle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released[s]
}

func (f *Fake) Loaded(s SoundHandle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sounds[s]
}

func (f *Fake) Replayed() []SoundHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SoundHandle(nil), f.replayed...)
}

func (f *Fake) Options() SessionOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.options
}

// PermissionRequests counts RequestMicrophonePermission calls.
func (f *Fake) PermissionRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permAsked
}
