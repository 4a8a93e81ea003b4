//go:build !linux

package notify

// Desktop is a no-op outside Linux; the log sink still records every
// notification.
type Desktop struct{}

func NewDesktop() *Desktop { return &Desktop{} }

func (d *Desktop) Notify(Event) {}
