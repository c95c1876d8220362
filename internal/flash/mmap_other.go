//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package flash

import "errors"

// No mapping on this platform; reads and writes use ReadAt/WriteAt.

var errNoMmap = errors.New("flash: mmap not supported on this platform")

func (d *File) mapImage() error {
	d.data = nil
	d.mapErr = errNoMmap
	return nil
}

func (d *File) unmapImage() error {
	return nil
}

func (d *File) syncImage() error {
	return d.f.Sync()
}
