package recorder

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"voxclip/host"
)

var errBoom = errors.New("boom")

func newTestController() (*Controller, *host.Fake) {
	f := host.NewFake()
	return NewController(f), f
}

// record runs one start/stop pair of length d and fails the test if it did
// not add an entry.
func record(t *testing.T, c *Controller, f *host.Fake, s State, d time.Duration) State {
	t.Helper()
	ctx := context.Background()
	n := s.Len()
	s = c.Start(ctx, s)
	if !s.Recording() {
		t.Fatal("start did not begin a session")
	}
	f.Advance(d)
	s = c.Stop(ctx, s)
	if s.Recording() || s.Len() != n+1 {
		t.Fatalf("stop: recording=%v len=%d, want idle with %d entries", s.Recording(), s.Len(), n+1)
	}
	return s
}

func TestStartStopAppendsEntry(t *testing.T) {
	c, f := newTestController()
	ctx := context.Background()

	s := c.Start(ctx, State{})
	if !s.Recording() {
		t.Fatal("expected recording state")
	}
	if got, want := f.Options(), (host.SessionOptions{AllowRecording: true, PlayInSilentMode: true}); got != want {
		t.Errorf("session options = %+v, want %+v", got, want)
	}

	f.Advance(65 * time.Second)
	s = c.Stop(ctx, s)

	if s.Recording() {
		t.Error("still recording after stop")
	}
	if s.Len() != 1 {
		t.Fatalf("got %d entries, want 1", s.Len())
	}
	e := s.Entries[0]
	if e.Duration != "1:05" {
		t.Errorf("duration = %q, want 1:05", e.Duration)
	}
	if e.File == "" {
		t.Error("entry has no file location")
	}
	if !f.Loaded(e.Sound) {
		t.Error("entry sound is not loaded")
	}
	if f.ActiveSessions() != 0 {
		t.Errorf("%d sessions left open", f.ActiveSessions())
	}
}

func TestStartWhileRecordingIsNoop(t *testing.T) {
	c, f := newTestController()
	ctx := context.Background()

	s := c.Start(ctx, State{})
	again := c.Start(ctx, s)

	if !reflect.DeepEqual(again, s) {
		t.Errorf("state changed: %+v -> %+v", s, again)
	}
	if f.Begun() != 1 || f.ActiveSessions() != 1 {
		t.Errorf("begun=%d active=%d, want 1 and 1", f.Begun(), f.ActiveSessions())
	}
	if f.PermissionRequests() != 1 {
		t.Errorf("permission asked %d times", f.PermissionRequests())
	}
}

func TestStopWhenIdleIsNoop(t *testing.T) {
	c, f := newTestController()
	s := State{Entries: entries(5), Message: "keep"}

	got := c.Stop(context.Background(), s)

	if !reflect.DeepEqual(got, s) {
		t.Errorf("state changed: %+v -> %+v", s, got)
	}
	if f.Begun() != 0 {
		t.Error("stop touched the host")
	}
}

func TestPermissionDenied(t *testing.T) {
	c, f := newTestController()
	f.Permission = host.Denied
	ctx := context.Background()

	s := c.Start(ctx, State{})
	if s.Message != PermissionMessage {
		t.Errorf("message = %q", s.Message)
	}
	if s.Recording() {
		t.Error("recording despite denied permission")
	}
	if f.Begun() != 0 {
		t.Error("session begun despite denied permission")
	}

	s = c.Stop(ctx, s)
	if s.Len() != 0 {
		t.Errorf("entry added without a session: %+v", s.Entries)
	}
}

func TestPermissionErrorLeavesIdle(t *testing.T) {
	c, f := newTestController()
	f.PermissionErr = errBoom

	s := c.Start(context.Background(), State{})
	if s.Recording() || s.Message != "" || f.Begun() != 0 {
		t.Errorf("got %+v begun=%d", s, f.Begun())
	}
}

func TestStartClearsStaleMessage(t *testing.T) {
	c, f := newTestController()
	ctx := context.Background()

	f.Permission = host.Denied
	s := c.Start(ctx, State{})
	if s.Message == "" {
		t.Fatal("expected a permission message")
	}

	f.Permission = host.Granted
	s = c.Start(ctx, s)
	if !s.Recording() || s.Message != "" {
		t.Errorf("recording=%v message=%q", s.Recording(), s.Message)
	}
}

func TestFailedStartDropsPermissionMessage(t *testing.T) {
	c, f := newTestController()
	ctx := context.Background()

	f.Permission = host.Denied
	s := c.Start(ctx, State{})

	f.Permission = host.Granted
	f.BeginErr = errBoom
	s = c.Start(ctx, s)
	if s.Recording() || s.Message != "" {
		t.Errorf("recording=%v message=%q", s.Recording(), s.Message)
	}

	f.BeginErr = nil
	f.PermissionErr = errBoom
	s = c.Start(ctx, State{Message: PermissionMessage})
	if s.Message != "" {
		t.Errorf("permission error kept message %q", s.Message)
	}
}

func TestStartHostFailures(t *testing.T) {
	tests := []struct {
		name string
		set  func(f *host.Fake)
	}{
		{"configure", func(f *host.Fake) { f.ConfigureErr = errBoom }},
		{"begin", func(f *host.Fake) { f.BeginErr = errBoom }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, f := newTestController()
			tt.set(f)
			in := State{Entries: entries(1)}

			s := c.Start(context.Background(), in)

			if !reflect.DeepEqual(s, in) {
				t.Errorf("state changed: %+v", s)
			}
			if f.ActiveSessions() != 0 {
				t.Errorf("%d sessions leaked", f.ActiveSessions())
			}
		})
	}
}

func TestStopHostFailures(t *testing.T) {
	tests := []struct {
		name string
		set  func(f *host.Fake)
	}{
		{"finalize", func(f *host.Fake) { f.FinalizeErr = errBoom }},
		{"load", func(f *host.Fake) { f.LoadErr = errBoom }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, f := newTestController()
			ctx := context.Background()
			s := c.Start(ctx, State{})
			tt.set(f)

			s = c.Stop(ctx, s)

			if s.Recording() {
				t.Error("session not cleared")
			}
			if s.Len() != 0 {
				t.Errorf("entry appended after failure: %+v", s.Entries)
			}
			if f.ActiveSessions() != 0 {
				t.Errorf("%d sessions left open", f.ActiveSessions())
			}
		})
	}
}

func TestDeleteSingleReleasesOnce(t *testing.T) {
	c, f := newTestController()
	s := record(t, c, f, State{}, time.Second)
	sound := s.Entries[0].Sound

	s, err := c.Delete(context.Background(), s, 0)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Errorf("got %d entries", s.Len())
	}
	if n := f.ReleaseCalls(sound); n != 1 {
		t.Errorf("released %d times, want 1", n)
	}
	if f.Loaded(sound) {
		t.Error("sound still loaded")
	}
}

func TestDeleteShiftsLaterEntries(t *testing.T) {
	c, f := newTestController()
	var s State
	for i := 1; i <= 4; i++ {
		s = record(t, c, f, s, time.Duration(i)*time.Second)
	}
	before := soundsOf(s)

	s, err := c.Delete(context.Background(), s, 1)
	if err != nil {
		t.Fatal(err)
	}

	want := []host.SoundHandle{before[0], before[2], before[3]}
	if got := soundsOf(s); !reflect.DeepEqual(got, want) {
		t.Errorf("after delete: %v, want %v", got, want)
	}
	if got := []string{s.Entries[0].Duration, s.Entries[1].Duration, s.Entries[2].Duration}; !reflect.DeepEqual(got, []string{"0:01", "0:03", "0:04"}) {
		t.Errorf("durations %v", got)
	}
}

func TestDeleteReleaseFailureStillRemoves(t *testing.T) {
	c, f := newTestController()
	s := record(t, c, f, State{}, time.Second)
	f.ReleaseErr = errBoom

	s, err := c.Delete(context.Background(), s, 0)
	if err != nil {
		t.Fatalf("release failure surfaced: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("entry kept after failed release")
	}
}

func TestDeleteOutOfRange(t *testing.T) {
	c, f := newTestController()
	s := record(t, c, f, State{}, time.Second)

	for _, i := range []int{-1, 1, 7} {
		got, err := c.Delete(context.Background(), s, i)
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Delete(%d) err = %v", i, err)
		}
		if !reflect.DeepEqual(got, s) {
			t.Errorf("Delete(%d) changed state", i)
		}
	}
	if n := f.ReleaseCalls(s.Entries[0].Sound); n != 0 {
		t.Errorf("sound released %d times", n)
	}
}

func TestPlay(t *testing.T) {
	c, f := newTestController()
	ctx := context.Background()
	s := record(t, c, f, State{}, time.Second)
	s = record(t, c, f, s, time.Second)

	if err := c.Play(ctx, s, 1); err != nil {
		t.Fatal(err)
	}
	if err := c.Play(ctx, s, 1); err != nil {
		t.Fatal(err)
	}
	want := []host.SoundHandle{s.Entries[1].Sound, s.Entries[1].Sound}
	if got := f.Replayed(); !reflect.DeepEqual(got, want) {
		t.Errorf("replayed %v, want %v", got, want)
	}

	if err := c.Play(ctx, s, 2); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Play(2) err = %v", err)
	}

	f.ReplayErr = errBoom
	if err := c.Play(ctx, s, 0); !errors.Is(err, errBoom) {
		t.Errorf("Play with host failure err = %v", err)
	}
}

func TestSoundHandlesNotReused(t *testing.T) {
	c, f := newTestController()
	s := record(t, c, f, State{}, time.Second)
	old := s.Entries[0].Sound

	s, err := c.Delete(context.Background(), s, 0)
	if err != nil {
		t.Fatal(err)
	}
	s = record(t, c, f, s, time.Second)

	if s.Entries[0].Sound == old {
		t.Errorf("handle %d reused", old)
	}
}
