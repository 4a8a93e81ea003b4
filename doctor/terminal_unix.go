//go:build !windows

package doctor

import "os/exec"

// Keyboard grabbing can leave the terminal in raw mode; stty puts it
// back regardless of how the previous check ended.
func resetTerminal() {
	exec.Command("stty", "sane").Run()
}
