//go:build linux

package audiodevice

import (
	"os"

	"golang.org/x/sys/unix"
)

// linuxDevice wraps loopDevice and raises the process's scheduling priority
// for the lifetime of the audio loop, the same trade the RTP transport
// layer makes for its socket (SO_PRIORITY) but applied at the process
// level via setpriority(2), since there is no real device fd here to tag.
type linuxDevice struct {
	*loopDevice
	prevNice int
}

func newPlatformDevice(cfg Config) (Device, error) {
	return &linuxDevice{loopDevice: newLoopDevice(cfg)}, nil
}

func (d *linuxDevice) Start() error {
	if prio, err := unix.Getpriority(unix.PRIO_PROCESS, 0); err == nil {
		d.prevNice = 20 - prio // the raw getpriority syscall returns 20-nice
	}
	// Best effort: raise our scheduling priority for the audio loop.
	// Ignored on systems without CAP_SYS_NICE; the loop still runs, just
	// without the real-time-ish priority bump.
	_ = unix.Setpriority(unix.PRIO_PROCESS, os.Getpid(), -5)
	return d.loopDevice.Start()
}

func (d *linuxDevice) Stop() error {
	err := d.loopDevice.Stop()
	_ = unix.Setpriority(unix.PRIO_PROCESS, os.Getpid(), d.prevNice)
	return err
}
