//go:build linux

package capture

import "os/exec"

// defaultSnapshotCommand prefers the Raspberry Pi camera stack, then any
// V4L2 webcam through fswebcam.
func defaultSnapshotCommand() []string {
	if _, err := exec.LookPath("libcamera-still"); err == nil {
		return []string{"libcamera-still", "-n", "-t", "1", "--immediate", "-o", OutPlaceholder}
	}
	if _, err := exec.LookPath("fswebcam"); err == nil {
		return []string{"fswebcam", "-q", "--no-banner", OutPlaceholder}
	}
	return nil
}
