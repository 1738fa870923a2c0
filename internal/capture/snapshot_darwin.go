//go:build darwin

package capture

import "os/exec"

func defaultSnapshotCommand() []string {
	if _, err := exec.LookPath("imagesnap"); err == nil {
		return []string{"imagesnap", "-q", OutPlaceholder}
	}
	return nil
}
