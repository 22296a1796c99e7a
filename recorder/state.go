// Package recorder holds the recording list and the start/stop/play/delete
// transitions over it. A State is a snapshot: every transition returns a new
// value and leaves the receiver untouched.
package recorder

import (
	"errors"
	"fmt"

	"voxclip/host"
)

var ErrOutOfRange = errors.New("index out of range")

// Session is the in-progress recording between Start and Stop.
type Session struct {
	Handle host.SessionHandle
}

// Entry is a finished recording. Its Sound stays loaded until the entry is
// deleted.
type Entry struct {
	Sound    host.SoundHandle
	Duration string
	File     host.FileLocation
}

type State struct {
	Session *Session
	Entries []Entry
	Message string
}

func (s State) Recording() bool {
	return s.Session != nil
}

func (s State) Len() int {
	return len(s.Entries)
}

func (s State) Append(e Entry) State {
	entries := make([]Entry, len(s.Entries), len(s.Entries)+1)
	copy(entries, s.Entries)
	s.Entries = append(entries, e)
	return s
}

// RemoveAt drops entry i; later entries move down by one. On a bad index the
// original state is returned with ErrOutOfRange.
func (s State) RemoveAt(i int) (State, Entry, error) {
	if err := s.check(i); err != nil {
		return s, Entry{}, err
	}
	removed := s.Entries[i]
	entries := make([]Entry, 0, len(s.Entries)-1)
	entries = append(entries, s.Entries[:i]...)
	entries = append(entries, s.Entries[i+1:]...)
	s.Entries = entries
	return s, removed, nil
}

func (s State) check(i int) error {
	if i < 0 || i >= len(s.Entries) {
		return fmt.Errorf("%w: %d (have %d)", ErrOutOfRange, i, len(s.Entries))
	}
	return nil
}
