// Package injector places transcribed text at the cursor. The text
// goes through the system clipboard followed by a synthetic paste
// keystroke, which works across far more applications than typing
// each character.
package injector

import (
	"errors"
	"fmt"
	"time"

	cb "github.com/atotto/clipboard"

	"dictap/log"
)

var (
	ErrClipboardUnavailable = errors.New("clipboard unavailable")
	ErrPasteUnavailable     = errors.New("paste keystroke unavailable")
)

type Injector interface {
	Inject(text string) error
}

type Options struct {
	// Paste sends the paste keystroke after copying. When false the
	// text is only left on the clipboard.
	Paste bool
	// RestoreClipboard puts the previous clipboard contents back
	// shortly after pasting.
	RestoreClipboard bool
}

// Clipboard is the production Injector.
type Clipboard struct {
	opts Options

	// replaced in tests
	read  func() (string, error)
	write func(string) error
	paste func() error

	restoreDelay time.Duration
}

func NewClipboard(opts Options) *Clipboard {
	return &Clipboard{
		opts:         opts,
		read:         cb.ReadAll,
		write:        cb.WriteAll,
		paste:        sendPaste,
		restoreDelay: 600 * time.Millisecond,
	}
}

func (c *Clipboard) Inject(text string) error {
	if text == "" {
		return nil
	}

	var previous string
	var hadPrevious bool
	if c.opts.RestoreClipboard {
		if prev, err := c.read(); err == nil {
			previous = prev
			hadPrevious = true
		}
	}

	if err := c.write(text); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)
	}

	if c.opts.Paste {
		if err := c.paste(); err != nil {
			return fmt.Errorf("%w: %v", ErrPasteUnavailable, err)
		}
	}

	if hadPrevious {
		// wait for the target application to consume the paste
		// before putting the old contents back
		go func() {
			time.Sleep(c.restoreDelay)
			if err := c.write(previous); err != nil {
				log.Warnf("restoring clipboard: %v", err)
			}
		}()
	}
	return nil
}
