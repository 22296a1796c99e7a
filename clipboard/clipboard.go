// Package clipboard copies recording locations to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	cb "github.com/atotto/clipboard"
)

var ErrUnavailable = errors.New("no clipboard utility available")

func Available() bool {
	return !cb.Unsupported
}

func Read() (string, error) {
	if !Available() {
		return "", ErrUnavailable
	}
	return cb.ReadAll()
}

func Copy(text string) error {
	if !Available() {
		return ErrUnavailable
	}
	if err := cb.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	return nil
}
