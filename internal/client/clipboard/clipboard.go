// Package clipboard abstracts the system clipboard behind a small interface
// so the hygiene worker can be tested without touching the real one.
package clipboard

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Clipboard writes text to the system clipboard. Clearing is writing the
// empty string.
type Clipboard interface {
	Write(text string) error
}

// System shells out to the platform clipboard tool.
type System struct{}

func NewSystem() *System { return &System{} }

func (s *System) Write(text string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "linux":
		if _, err := exec.LookPath("xclip"); err == nil {
			cmd = exec.Command("xclip", "-selection", "clipboard")
		} else if _, err := exec.LookPath("xsel"); err == nil {
			cmd = exec.Command("xsel", "--clipboard", "--input")
		} else {
			return fmt.Errorf("clipboard tool not found: install xclip or xsel")
		}
	case "windows":
		cmd = exec.Command("clip")
	default:
		return fmt.Errorf("clipboard not supported on %s", runtime.GOOS)
	}

	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
