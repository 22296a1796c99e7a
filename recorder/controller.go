package recorder

import (
	"context"

	"voxclip/host"
	"voxclip/log"
)

const PermissionMessage = "Please grant permission to the app to access the microphone"

// Controller runs the host call sequence behind each user intent. It keeps
// no state of its own; callers pass the current State in and get the next
// one back, and must not run two transitions at once.
type Controller struct {
	host host.Host
}

func NewController(h host.Host) *Controller {
	return &Controller{host: h}
}

// Start begins a recording. It is a no-op while a recording is active.
// Otherwise the status message left by an earlier attempt is dropped, so a
// non-empty Message on return always comes from this attempt.
func (c *Controller) Start(ctx context.Context, s State) State {
	if s.Recording() {
		return s
	}
	s.Message = ""

	perm, err := c.host.RequestMicrophonePermission(ctx)
	if err != nil {
		log.Errorf("Failed to start recording: permission request: %v", err)
		return s
	}
	if perm != host.Granted {
		s.Message = PermissionMessage
		return s
	}

	if err := c.host.ConfigureAudioSession(ctx, host.SessionOptions{
		AllowRecording:   true,
		PlayInSilentMode: true,
	}); err != nil {
		log.Errorf("Failed to start recording: configure session: %v", err)
		return s
	}

	handle, err := c.host.BeginRecording(ctx, host.HighQuality)
	if err != nil {
		log.Errorf("Failed to start recording: %v", err)
		return s
	}

	s.Session = &Session{Handle: handle}
	return s
}

// Stop ends the active recording, loads it and appends it to the list. The
// session is cleared even when a step fails; no entry is added then.
func (c *Controller) Stop(ctx context.Context, s State) State {
	if !s.Recording() {
		return s
	}
	session := s.Session
	s.Session = nil

	file, err := c.host.FinalizeRecording(ctx, session.Handle)
	if err != nil {
		log.Errorf("Error while stopping recording: %v", err)
		return s
	}

	sound, millis, err := c.host.LoadSound(ctx, file)
	if err != nil {
		log.Errorf("Error while creating loaded sound: %v", err)
		return s
	}

	return s.Append(Entry{
		Sound:    sound,
		Duration: FormatDuration(millis),
		File:     file,
	})
}

// Play replays entry i from its start and returns without waiting for it to
// finish.
func (c *Controller) Play(ctx context.Context, s State, i int) error {
	if err := s.check(i); err != nil {
		return err
	}
	if err := c.host.Replay(ctx, s.Entries[i].Sound); err != nil {
		log.Errorf("Failed to play recording %d: %v", i+1, err)
		return err
	}
	return nil
}

// Delete releases entry i's sound and removes it from the list. A failed
// release is logged and the entry is removed anyway.
func (c *Controller) Delete(ctx context.Context, s State, i int) (State, error) {
	if err := s.check(i); err != nil {
		return s, err
	}
	if err := c.host.ReleaseSound(ctx, s.Entries[i].Sound); err != nil {
		log.Warnf("Failed to release recording %d: %v", i+1, err)
	}
	next, _, err := s.RemoveAt(i)
	return next, err
}
