//go:build !linux && !darwin

package capture

func defaultSnapshotCommand() []string { return nil }
