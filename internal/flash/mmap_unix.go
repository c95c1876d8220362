//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package flash

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mapImage maps the image read-write and shared. A failed mapping is not an
// error: the device falls back to file I/O and keeps the cause for MapError.
func (d *File) mapImage() error {
	b, err := unix.Mmap(int(d.f.Fd()), 0, int(d.size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		d.mapErr = fmt.Errorf("flash: mmap %s: %w", d.path, err)
		return nil
	}
	d.data = b
	return nil
}

func (d *File) unmapImage() error {
	if d.data == nil {
		return nil
	}
	err := unix.Munmap(d.data)
	d.data = nil
	return err
}

func (d *File) syncImage() error {
	if d.data != nil {
		return unix.Msync(d.data, unix.MS_SYNC)
	}
	return d.f.Sync()
}
