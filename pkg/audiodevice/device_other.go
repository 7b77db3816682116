//go:build !linux

package audiodevice

func newPlatformDevice(cfg Config) (Device, error) {
	return newLoopDevice(cfg), nil
}
