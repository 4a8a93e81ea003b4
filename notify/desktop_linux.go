//go:build linux

package notify

import (
	"os/exec"
	"sync/atomic"
	"time"

	"dictap/log"
)

// Desktop shows notifications through notify-send. Absent or broken
// notification daemons are tolerated silently after the first warning.
type Desktop struct {
	warned atomic.Bool
}

func NewDesktop() *Desktop { return &Desktop{} }

func (d *Desktop) Notify(ev Event) {
	urgency := "normal"
	if ev.Kind == Failed {
		urgency = "critical"
	}
	cmd := exec.Command("notify-send",
		"--app-name=dictap",
		"--urgency="+urgency,
		"--expire-time=2000",
		ev.Title, ev.Body)

	go func() {
		done := make(chan error, 1)
		if err := cmd.Start(); err != nil {
			done <- err
		} else {
			go func() { done <- cmd.Wait() }()
		}
		select {
		case err := <-done:
			if err != nil && d.warned.CompareAndSwap(false, true) {
				log.Warnf("notify-send: %v", err)
			}
		case <-time.After(3 * time.Second):
			cmd.Process.Kill()
		}
	}()
}
