package recorder

import (
	"errors"
	"reflect"
	"testing"

	"voxclip/host"
)

func entries(sounds ...host.SoundHandle) []Entry {
	out := make([]Entry, len(sounds))
	for i, s := range sounds {
		out[i] = Entry{Sound: s, Duration: "0:01"}
	}
	return out
}

func soundsOf(s State) []host.SoundHandle {
	var out []host.SoundHandle
	for _, e := range s.Entries {
		out = append(out, e.Sound)
	}
	return out
}

func TestAppendDoesNotAlias(t *testing.T) {
	base := State{Entries: make([]Entry, 1, 8)}
	a := base.Append(Entry{Sound: 1})
	b := base.Append(Entry{Sound: 2})

	if len(base.Entries) != 1 {
		t.Fatalf("receiver modified: %d entries", len(base.Entries))
	}
	if a.Entries[1].Sound != 1 || b.Entries[1].Sound != 2 {
		t.Errorf("appends share storage: a=%v b=%v", soundsOf(a), soundsOf(b))
	}
}

func TestRemoveAtShifts(t *testing.T) {
	s := State{Entries: entries(1, 2, 3, 4, 5)}
	for i := range s.Entries {
		next, removed, err := s.RemoveAt(i)
		if err != nil {
			t.Fatalf("RemoveAt(%d): %v", i, err)
		}
		if removed.Sound != s.Entries[i].Sound {
			t.Errorf("RemoveAt(%d) removed %d", i, removed.Sound)
		}
		want := append(append([]host.SoundHandle{}, soundsOf(s)[:i]...), soundsOf(s)[i+1:]...)
		if got := soundsOf(next); !reflect.DeepEqual(got, want) {
			t.Errorf("RemoveAt(%d) = %v, want %v", i, got, want)
		}
	}
	if got := soundsOf(s); !reflect.DeepEqual(got, []host.SoundHandle{1, 2, 3, 4, 5}) {
		t.Errorf("receiver modified: %v", got)
	}
}

func TestRemoveAtOutOfRange(t *testing.T) {
	s := State{Entries: entries(1, 2)}
	for _, i := range []int{-1, 2, 100} {
		next, _, err := s.RemoveAt(i)
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("RemoveAt(%d) err = %v, want ErrOutOfRange", i, err)
		}
		if !reflect.DeepEqual(next, s) {
			t.Errorf("RemoveAt(%d) changed state to %+v", i, next)
		}
	}
	if _, _, err := (State{}).RemoveAt(0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("RemoveAt on empty list: %v", err)
	}
}

func TestAppendThenRemoveSingle(t *testing.T) {
	s := State{}.Append(Entry{Sound: 9})
	next, removed, err := s.RemoveAt(0)
	if err != nil {
		t.Fatal(err)
	}
	if next.Len() != 0 || removed.Sound != 9 {
		t.Errorf("got len %d removed %d", next.Len(), removed.Sound)
	}
}
